package models

import "time"

// ContentDocument joins a content record to an externally managed document.
// IsMain marks the resource cover document; note attachments never set it.
type ContentDocument struct {
	ID           string    `db:"id" json:"id"`
	ContentID    string    `db:"content_id" json:"content_id"`
	DocumentID   string    `db:"document_id" json:"document_id"`
	AttachedBy   string    `db:"attached_by" json:"attached_by"`
	DisplayOrder int       `db:"display_order" json:"order"`
	IsMain       bool      `db:"is_main" json:"is_main"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ContentShare grants a user explicit access to a content record. The
// permission bits only carry meaning for note shares; resource shares are
// access-only and leave them false.
type ContentShare struct {
	ID         string    `db:"id" json:"id"`
	ContentID  string    `db:"content_id" json:"content_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	SharedBy   string    `db:"shared_by" json:"shared_by"`
	CanEdit    bool      `db:"can_edit" json:"can_edit"`
	CanComment bool      `db:"can_comment" json:"can_comment"`
	CanShare   bool      `db:"can_share" json:"can_share"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
