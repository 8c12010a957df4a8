package models

import "time"

// AssignmentReportRow is one line of the assignments report.
type AssignmentReportRow struct {
	ContentTitle string     `db:"content_title"`
	AssigneeName string     `db:"assignee_name"`
	FamilyName   *string    `db:"family_name"`
	Status       string     `db:"status"`
	Priority     string     `db:"priority"`
	DueDate      *time.Time `db:"due_date"`
	CompletedAt  *time.Time `db:"completed_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// CurationReportRow is one line of the curation report.
type CurationReportRow struct {
	Title        string     `db:"title"`
	ResourceType *string    `db:"resource_type"`
	Status       *string    `db:"status"`
	CreatorName  *string    `db:"creator_name"`
	Rating       *float64   `db:"rating"`
	RatingCount  int        `db:"rating_count"`
	ApprovedAt   *time.Time `db:"approved_at"`
	CreatedAt    time.Time  `db:"created_at"`
}
