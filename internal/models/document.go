package models

import (
	"time"

	"github.com/lib/pq"
)

// Document holds metadata for an uploaded file. Content records reference
// documents only by this opaque id; file bytes live in the blob store.
type Document struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	FileName    string    `db:"file_name" json:"file_name"`
	MimeType    string    `db:"mime_type" json:"mime_type"`
	Size        int64     `db:"size" json:"size"`
	StoragePath string    `db:"storage_path" json:"-"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HealthcareCategory maps a named category to its constituent tags. Filter
// construction expands category names into tag-overlap filters before the
// query runs.
type HealthcareCategory struct {
	Name string         `db:"name" json:"name"`
	Tags pq.StringArray `db:"tags" json:"tags"`
}
