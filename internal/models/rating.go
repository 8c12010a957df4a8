package models

import "time"

// ContentRating is one user's rating of a resource. At most one row exists
// per (content, user) pair; re-rating overwrites the previous row.
type ContentRating struct {
	ID        string    `db:"id" json:"id"`
	ContentID string    `db:"content_id" json:"content_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Review    *string   `db:"review" json:"review,omitempty"`
	IsHelpful *bool     `db:"is_helpful" json:"is_helpful,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
