package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carebridge/community-api/internal/models"
)

// ReportingRepository serves the read-only queries behind report exports.
type ReportingRepository struct {
	db *sqlx.DB
}

// NewReportingRepository constructs a ReportingRepository.
func NewReportingRepository(db *sqlx.DB) *ReportingRepository {
	return &ReportingRepository{db: db}
}

// AssignmentSummary returns assignment rows joined with content, assignee
// and family data. An empty familyID includes everything.
func (r *ReportingRepository) AssignmentSummary(ctx context.Context, familyID string) ([]models.AssignmentReportRow, error) {
	query := `SELECT c.title AS content_title, u.full_name AS assignee_name, f.name AS family_name,
        a.status, a.priority, a.due_date, a.completed_at, a.created_at
        FROM content_assignments a
        JOIN content c ON c.id = a.content_id
        JOIN users u ON u.id = a.assigned_to
        LEFT JOIN families f ON f.id = u.family_id`
	args := []interface{}{}
	if familyID != "" {
		query += " WHERE u.family_id = $1"
		args = append(args, familyID)
	}
	query += " ORDER BY a.created_at DESC"

	var rows []models.AssignmentReportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("assignment summary: %w", err)
	}
	return rows, nil
}

// CurationSummary returns one row per resource with its curation state and
// rating aggregate.
func (r *ReportingRepository) CurationSummary(ctx context.Context) ([]models.CurationReportRow, error) {
	const query = `SELECT c.title, c.resource_type, c.status, u.full_name AS creator_name,
        c.rating, c.rating_count, c.approved_at, c.created_at
        FROM content c
        LEFT JOIN users u ON u.id = c.created_by
        WHERE c.content_type = 'RESOURCE' AND c.is_deleted = FALSE
        ORDER BY c.created_at DESC`
	var rows []models.CurationReportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("curation summary: %w", err)
	}
	return rows, nil
}
