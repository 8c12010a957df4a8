// Package access contains the pure authorization predicates for content
// operations. Nothing here performs I/O: callers resolve any store-derived
// facts (share rows, created families) first and pass them in, so every
// decision is a deterministic function of its inputs.
package access

import "github.com/carebridge/community-api/internal/models"

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	ID       string
	Role     models.UserRole
	FamilyID *string
}

// Operation names an authorizable action on content.
type Operation string

const (
	OpRead           Operation = "read"
	OpCreateNote     Operation = "create_note"
	OpCreateResource Operation = "create_resource"
	OpUpdate         Operation = "update"
	OpDelete         Operation = "delete"
	OpAssign         Operation = "assign"
	OpCurate         Operation = "curate"
)

// Decision is a policy table cell.
type Decision int

const (
	// Deny refuses the operation outright.
	Deny Decision = iota
	// Allow permits the operation with no further conditions.
	Allow
	// Conditional defers to the operation's condition predicate.
	Conditional
)

// policy is the single auditable operation x role table. Role rules that the
// table marks Conditional are resolved by the predicate functions in
// predicates.go; everything else is decided right here.
var policy = map[Operation]map[models.UserRole]Decision{
	OpRead: {
		models.RoleAdmin:     Allow,
		models.RoleVolunteer: Conditional,
		models.RoleMember:    Conditional,
	},
	OpCreateNote: {
		models.RoleAdmin:     Allow,
		models.RoleVolunteer: Allow,
		models.RoleMember:    Allow,
	},
	OpCreateResource: {
		models.RoleAdmin:     Allow,
		models.RoleVolunteer: Allow,
		models.RoleMember:    Deny,
	},
	OpUpdate: {
		models.RoleAdmin:     Allow,
		models.RoleVolunteer: Conditional,
		models.RoleMember:    Conditional,
	},
	OpDelete: {
		models.RoleAdmin:     Allow,
		models.RoleVolunteer: Conditional,
		models.RoleMember:    Conditional,
	},
	OpAssign: {
		models.RoleAdmin:     Allow,
		models.RoleVolunteer: Conditional,
		models.RoleMember:    Deny,
	},
	OpCurate: {
		models.RoleAdmin: Allow,
	},
}

// Lookup returns the table decision for an operation and role. Unknown
// operations and roles deny.
func Lookup(op Operation, role models.UserRole) Decision {
	roles, ok := policy[op]
	if !ok {
		return Deny
	}
	decision, ok := roles[role]
	if !ok {
		return Deny
	}
	return decision
}
