package access

import "github.com/carebridge/community-api/internal/models"

// CanRead decides read access to a content record. hasShare tells whether an
// explicit share row exists for the actor; callers only need to resolve it
// when visibility is SHARED. Checks are ordered cheapest first.
func CanRead(c *models.Content, actor Actor, hasShare bool) bool {
	switch Lookup(OpRead, actor.Role) {
	case Allow:
		return true
	case Deny:
		return false
	}
	if c.CreatedBy == actor.ID {
		return true
	}
	switch c.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityFamily:
		return actor.FamilyID != nil && c.FamilyID != nil && *actor.FamilyID == *c.FamilyID
	case models.VisibilityShared:
		return hasShare
	default:
		return false
	}
}

// CanCreate decides whether the actor may create content of the given type.
// Note creation is open to every authenticated role; resource creation is
// closed to members.
func CanCreate(contentType models.ContentType, actor Actor) bool {
	op := OpCreateNote
	if contentType == models.ContentTypeResource {
		op = OpCreateResource
	}
	return Lookup(op, actor.Role) == Allow
}

// CanUpdate decides write access. editShare reports whether a share row
// grants can_edit to the actor; it only carries weight for notes that allow
// editing, so a note-only share bit can never leak into resource updates.
func CanUpdate(c *models.Content, actor Actor, editShare bool) bool {
	switch Lookup(OpUpdate, actor.Role) {
	case Allow:
		return true
	case Deny:
		return false
	}
	if c.CreatedBy == actor.ID {
		return true
	}
	return c.IsNote() && c.AllowEditing && editShare
}

// CanDelete restricts deletion to admins and the creator.
func CanDelete(c *models.Content, actor Actor) bool {
	switch Lookup(OpDelete, actor.Role) {
	case Allow:
		return true
	case Deny:
		return false
	}
	return c.CreatedBy == actor.ID
}

// CanAssign decides whether the actor may create an assignment targeting a
// user in targetFamilyID. Admins assign to anyone. Volunteers are restricted
// to users belonging to one of the families they created; createdFamilyIDs
// holds those. Members never assign.
func CanAssign(actor Actor, targetFamilyID *string, createdFamilyIDs []string) bool {
	switch Lookup(OpAssign, actor.Role) {
	case Allow:
		return true
	case Deny:
		return false
	}
	if targetFamilyID == nil {
		return false
	}
	for _, id := range createdFamilyIDs {
		if id == *targetFamilyID {
			return true
		}
	}
	return false
}

// CanCurate restricts approval and featuring to admins.
func CanCurate(actor Actor) bool {
	return Lookup(OpCurate, actor.Role) == Allow
}
