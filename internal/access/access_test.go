package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carebridge/community-api/internal/models"
)

func strPtr(s string) *string { return &s }

func noteContent(createdBy string, visibility models.ContentVisibility) *models.Content {
	return &models.Content{
		ID:          "c1",
		ContentType: models.ContentTypeNote,
		CreatedBy:   createdBy,
		Visibility:  visibility,
	}
}

func TestCanReadPrivate(t *testing.T) {
	c := noteContent("owner", models.VisibilityPrivate)

	assert.True(t, CanRead(c, Actor{ID: "owner", Role: models.RoleMember}, false))
	assert.True(t, CanRead(c, Actor{ID: "someone", Role: models.RoleAdmin}, false))
	assert.False(t, CanRead(c, Actor{ID: "someone", Role: models.RoleMember}, false))
	assert.False(t, CanRead(c, Actor{ID: "someone", Role: models.RoleVolunteer}, false))
}

func TestCanReadPublic(t *testing.T) {
	c := noteContent("owner", models.VisibilityPublic)
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleVolunteer, models.RoleMember} {
		assert.True(t, CanRead(c, Actor{ID: "anyone", Role: role}, false))
	}
}

func TestCanReadFamily(t *testing.T) {
	c := noteContent("owner", models.VisibilityFamily)
	c.FamilyID = strPtr("fam1")

	assert.True(t, CanRead(c, Actor{ID: "kin", Role: models.RoleMember, FamilyID: strPtr("fam1")}, false))
	assert.False(t, CanRead(c, Actor{ID: "stranger", Role: models.RoleMember, FamilyID: strPtr("fam2")}, false))
	assert.False(t, CanRead(c, Actor{ID: "nofamily", Role: models.RoleMember}, false))
}

func TestCanReadShared(t *testing.T) {
	c := noteContent("owner", models.VisibilityShared)

	assert.True(t, CanRead(c, Actor{ID: "guest", Role: models.RoleMember}, true))
	assert.False(t, CanRead(c, Actor{ID: "guest", Role: models.RoleMember}, false))
}

func TestCanCreate(t *testing.T) {
	cases := []struct {
		role        models.UserRole
		contentType models.ContentType
		want        bool
	}{
		{models.RoleMember, models.ContentTypeNote, true},
		{models.RoleVolunteer, models.ContentTypeNote, true},
		{models.RoleAdmin, models.ContentTypeNote, true},
		{models.RoleMember, models.ContentTypeResource, false},
		{models.RoleVolunteer, models.ContentTypeResource, true},
		{models.RoleAdmin, models.ContentTypeResource, true},
	}
	for _, tc := range cases {
		got := CanCreate(tc.contentType, Actor{ID: "u", Role: tc.role})
		assert.Equal(t, tc.want, got, "role %s type %s", tc.role, tc.contentType)
	}
}

func TestCanUpdate(t *testing.T) {
	c := noteContent("owner", models.VisibilityPrivate)
	c.AllowEditing = true

	assert.True(t, CanUpdate(c, Actor{ID: "owner", Role: models.RoleMember}, false))
	assert.True(t, CanUpdate(c, Actor{ID: "admin", Role: models.RoleAdmin}, false))
	assert.True(t, CanUpdate(c, Actor{ID: "editor", Role: models.RoleMember}, true))
	assert.False(t, CanUpdate(c, Actor{ID: "reader", Role: models.RoleMember}, false))

	// The edit-share bit must not apply when the note disallows editing.
	c.AllowEditing = false
	assert.False(t, CanUpdate(c, Actor{ID: "editor", Role: models.RoleMember}, true))
}

func TestCanUpdateEditShareNeverAppliesToResources(t *testing.T) {
	c := &models.Content{
		ID:          "r1",
		ContentType: models.ContentTypeResource,
		CreatedBy:   "owner",
		Visibility:  models.VisibilityShared,
	}
	assert.False(t, CanUpdate(c, Actor{ID: "editor", Role: models.RoleVolunteer}, true))
}

func TestCanDelete(t *testing.T) {
	c := noteContent("owner", models.VisibilityPublic)

	assert.True(t, CanDelete(c, Actor{ID: "owner", Role: models.RoleMember}))
	assert.True(t, CanDelete(c, Actor{ID: "admin", Role: models.RoleAdmin}))
	assert.False(t, CanDelete(c, Actor{ID: "other", Role: models.RoleVolunteer}))
}

func TestCanAssign(t *testing.T) {
	admin := Actor{ID: "a", Role: models.RoleAdmin}
	volunteer := Actor{ID: "v", Role: models.RoleVolunteer}
	member := Actor{ID: "m", Role: models.RoleMember}

	assert.True(t, CanAssign(admin, nil, nil))
	assert.True(t, CanAssign(volunteer, strPtr("fam1"), []string{"fam1", "fam2"}))
	assert.False(t, CanAssign(volunteer, strPtr("fam3"), []string{"fam1", "fam2"}))
	assert.False(t, CanAssign(volunteer, nil, []string{"fam1"}))
	assert.False(t, CanAssign(member, strPtr("fam1"), []string{"fam1"}))
}

func TestCanCurate(t *testing.T) {
	assert.True(t, CanCurate(Actor{ID: "a", Role: models.RoleAdmin}))
	assert.False(t, CanCurate(Actor{ID: "v", Role: models.RoleVolunteer}))
	assert.False(t, CanCurate(Actor{ID: "m", Role: models.RoleMember}))
}

func TestLookupUnknownDenies(t *testing.T) {
	assert.Equal(t, Deny, Lookup(Operation("unknown"), models.RoleAdmin))
	assert.Equal(t, Deny, Lookup(OpCurate, models.UserRole("GHOST")))
}
