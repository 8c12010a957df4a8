package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebridge/community-api/internal/models"
)

// AssignmentRepository manages persistence for content assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.ContentAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO content_assignments (id, content_id, assigned_to, assigned_by, status, priority, due_date, completed_at, completed_by, completion_notes, created_at, updated_at)
        VALUES (:id, :content_id, :assigned_to, :assigned_by, :status, :priority, :due_date, :completed_at, :completed_by, :completion_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// FindByID fetches an assignment by ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.ContentAssignment, error) {
	const query = `SELECT id, content_id, assigned_to, assigned_by, status, priority, due_date, completed_at, completed_by, completion_notes, created_at, updated_at
        FROM content_assignments WHERE id = $1`
	var assignment models.ContentAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// UpdateStatus persists a status transition with its completion metadata.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, assignment *models.ContentAssignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE content_assignments SET status = :status, completed_at = :completed_at, completed_by = :completed_by,
        completion_notes = :completion_notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	return nil
}

// ListByContent returns every assignment attached to a content record,
// newest first.
func (r *AssignmentRepository) ListByContent(ctx context.Context, contentID string) ([]models.ContentAssignment, error) {
	const query = `SELECT id, content_id, assigned_to, assigned_by, status, priority, due_date, completed_at, completed_by, completion_notes, created_at, updated_at
        FROM content_assignments WHERE content_id = $1 ORDER BY created_at DESC`
	var assignments []models.ContentAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, contentID); err != nil {
		return nil, fmt.Errorf("list assignments by content: %w", err)
	}
	return assignments, nil
}

// ListByAssignee returns the assignee inbox, ordered by priority weight,
// then earliest due date, then recency. Optional statuses narrow the view.
func (r *AssignmentRepository) ListByAssignee(ctx context.Context, userID string, statuses []models.AssignmentStatus) ([]models.AssignmentDetail, error) {
	base := `FROM content_assignments a JOIN content c ON c.id = a.content_id AND c.is_deleted = FALSE`
	args := []interface{}{userID}
	conditions := []string{"a.assigned_to = $1"}

	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, status := range statuses {
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
			args = append(args, status)
		}
		conditions = append(conditions, fmt.Sprintf("a.status IN (%s)", strings.Join(placeholders, ", ")))
	}

	query := fmt.Sprintf(`SELECT a.id, a.content_id, a.assigned_to, a.assigned_by, a.status, a.priority, a.due_date,
        a.completed_at, a.completed_by, a.completion_notes, a.created_at, a.updated_at, c.title AS content_title
        %s WHERE %s
        ORDER BY CASE a.priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC,
        a.due_date ASC NULLS LAST, a.created_at DESC`, base, strings.Join(conditions, " AND "))

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments by assignee: %w", err)
	}
	return assignments, nil
}
