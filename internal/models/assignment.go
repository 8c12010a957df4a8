package models

import "time"

// AssignmentStatus tracks the task lifecycle bound to a note.
type AssignmentStatus string

const (
	AssignmentStatusAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentStatusInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentStatusCompleted  AssignmentStatus = "COMPLETED"
	AssignmentStatusCancelled  AssignmentStatus = "CANCELLED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusCancelled
}

// CanTransitionTo validates a status transition against the lifecycle.
// ASSIGNED may move to IN_PROGRESS, COMPLETED or CANCELLED; IN_PROGRESS may
// move to COMPLETED or CANCELLED. Terminal states accept nothing.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case AssignmentStatusInProgress:
		return s == AssignmentStatusAssigned
	case AssignmentStatusCompleted, AssignmentStatusCancelled:
		return true
	default:
		return false
	}
}

// AssignmentPriority orders tasks in the assignee inbox.
type AssignmentPriority string

const (
	PriorityLow    AssignmentPriority = "LOW"
	PriorityMedium AssignmentPriority = "MEDIUM"
	PriorityHigh   AssignmentPriority = "HIGH"
	PriorityUrgent AssignmentPriority = "URGENT"
)

// ContentAssignment binds a note to an assignee with a status lifecycle.
type ContentAssignment struct {
	ID              string             `db:"id" json:"id"`
	ContentID       string             `db:"content_id" json:"content_id"`
	AssignedTo      string             `db:"assigned_to" json:"assigned_to"`
	AssignedBy      string             `db:"assigned_by" json:"assigned_by"`
	Status          AssignmentStatus   `db:"status" json:"status"`
	Priority        AssignmentPriority `db:"priority" json:"priority"`
	DueDate         *time.Time         `db:"due_date" json:"due_date,omitempty"`
	CompletedAt     *time.Time         `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy     *string            `db:"completed_by" json:"completed_by,omitempty"`
	CompletionNotes *string            `db:"completion_notes" json:"completion_notes,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail joins an assignment with its content title for listings.
type AssignmentDetail struct {
	ContentAssignment
	ContentTitle string `db:"content_title" json:"content_title"`
}
