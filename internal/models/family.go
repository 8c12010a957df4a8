package models

import "time"

// Family groups the members of one care circle. CreatedBy records which
// user (typically a volunteer) registered the family; the assignment
// authorization rule for volunteers is scoped to families they created.
type Family struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Category is a content category for notes and resources.
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Icon      *string   `db:"icon" json:"icon,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
