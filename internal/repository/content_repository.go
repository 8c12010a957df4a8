package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/carebridge/community-api/internal/models"
)

const contentColumns = `c.id, c.content_type, c.title, c.description, c.body, c.tags, c.category_id, c.family_id, c.created_by, c.visibility, c.view_count,
        c.note_type, c.is_pinned, c.allow_comments, c.allow_editing, c.last_edited_by, c.last_edited_at,
        c.resource_type, c.url, c.target_audience, c.external_meta, c.status, c.approved_by, c.approved_at, c.featured_by, c.featured_at, c.rating, c.rating_count,
        c.has_assignments, c.has_curation, c.has_ratings, c.has_sharing, c.is_deleted, c.deleted_at, c.created_at, c.updated_at`

// ContentRepository manages persistence for the unified content table.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs a ContentRepository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a new content record.
func (r *ContentRepository) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now
	const query = `INSERT INTO content (id, content_type, title, description, body, tags, category_id, family_id, created_by, visibility, view_count,
        note_type, is_pinned, allow_comments, allow_editing, last_edited_by, last_edited_at,
        resource_type, url, target_audience, external_meta, status, approved_by, approved_at, featured_by, featured_at, rating, rating_count,
        has_assignments, has_curation, has_ratings, has_sharing, is_deleted, deleted_at, created_at, updated_at)
        VALUES (:id, :content_type, :title, :description, :body, :tags, :category_id, :family_id, :created_by, :visibility, :view_count,
        :note_type, :is_pinned, :allow_comments, :allow_editing, :last_edited_by, :last_edited_at,
        :resource_type, :url, :target_audience, :external_meta, :status, :approved_by, :approved_at, :featured_by, :featured_at, :rating, :rating_count,
        :has_assignments, :has_curation, :has_ratings, :has_sharing, :is_deleted, :deleted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, content); err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// FindByID fetches a live content row by ID.
func (r *ContentRepository) FindByID(ctx context.Context, id string) (*models.Content, error) {
	query := fmt.Sprintf("SELECT %s FROM content c WHERE c.id = $1 AND c.is_deleted = FALSE", contentColumns)
	var content models.Content
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		return nil, err
	}
	return &content, nil
}

// FindDetailByID fetches a content row joined with creator, family and
// category names.
func (r *ContentRepository) FindDetailByID(ctx context.Context, id string) (*models.ContentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name AS creator_name, f.name AS family_name, cat.name AS category_name
        FROM content c
        LEFT JOIN users u ON u.id = c.created_by
        LEFT JOIN families f ON f.id = c.family_id
        LEFT JOIN categories cat ON cat.id = c.category_id
        WHERE c.id = $1 AND c.is_deleted = FALSE`, contentColumns)
	var detail models.ContentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns content matching the filter, restricted by the visibility
// gate, with the total row count for pagination. All filter criteria are
// conjunctive.
func (r *ContentRepository) List(ctx context.Context, filter models.ContentFilter, gate models.VisibilityGate) ([]models.ContentDetail, int, error) {
	base := `FROM content c
        LEFT JOIN users u ON u.id = c.created_by
        LEFT JOIN families f ON f.id = c.family_id
        LEFT JOIN categories cat ON cat.id = c.category_id`
	args := []interface{}{}
	conditions := []string{"c.is_deleted = FALSE"}

	if len(filter.ContentTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("c.content_type = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ContentTypes))
	}
	if len(filter.NoteTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("c.note_type = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.NoteTypes))
	}
	if len(filter.ResourceTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("c.resource_type = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ResourceTypes))
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("c.status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.Statuses))
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("c.created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.FamilyID != "" {
		conditions = append(conditions, fmt.Sprintf("c.family_id = $%d", len(args)+1))
		args = append(args, filter.FamilyID)
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("c.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if len(filter.Visibilities) > 0 {
		conditions = append(conditions, fmt.Sprintf("c.visibility = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.Visibilities))
	}
	if len(filter.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("c.tags && $%d", len(args)+1))
		args = append(args, pq.Array(filter.Tags))
	}
	if filter.Search != "" {
		term := strings.ToLower(filter.Search)
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d OR LOWER(c.description) LIKE $%d OR LOWER(c.body) LIKE $%d OR $%d = ANY(c.tags))", len(args)+1, len(args)+1, len(args)+1, len(args)+2))
		args = append(args, "%"+term+"%", term)
	}
	if filter.HasAssignments != nil {
		conditions = append(conditions, fmt.Sprintf("c.has_assignments = $%d", len(args)+1))
		args = append(args, *filter.HasAssignments)
	}
	if filter.HasCuration != nil {
		conditions = append(conditions, fmt.Sprintf("c.has_curation = $%d", len(args)+1))
		args = append(args, *filter.HasCuration)
	}
	if filter.HasRatings != nil {
		conditions = append(conditions, fmt.Sprintf("c.has_ratings = $%d", len(args)+1))
		args = append(args, *filter.HasRatings)
	}
	if filter.HasSharing != nil {
		conditions = append(conditions, fmt.Sprintf("c.has_sharing = $%d", len(args)+1))
		args = append(args, *filter.HasSharing)
	}
	if filter.Featured != nil {
		if *filter.Featured {
			conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
			args = append(args, models.StatusFeatured)
		} else {
			conditions = append(conditions, fmt.Sprintf("(c.status IS NULL OR c.status <> $%d)", len(args)+1))
			args = append(args, models.StatusFeatured)
		}
	}
	if filter.Verified != nil {
		if *filter.Verified {
			conditions = append(conditions, fmt.Sprintf("c.status = ANY($%d)", len(args)+1))
			args = append(args, pq.Array([]models.ResourceStatus{models.StatusApproved, models.StatusFeatured}))
		} else {
			conditions = append(conditions, fmt.Sprintf("(c.status IS NULL OR c.status <> ALL($%d))", len(args)+1))
			args = append(args, pq.Array([]models.ResourceStatus{models.StatusApproved, models.StatusFeatured}))
		}
	}
	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("c.rating >= $%d", len(args)+1))
		args = append(args, *filter.MinRating)
	}

	if !gate.Admin {
		clause := fmt.Sprintf(`(c.created_by = $%d OR c.visibility = 'PUBLIC'
            OR (c.visibility = 'SHARED' AND EXISTS (SELECT 1 FROM content_shares cs WHERE cs.content_id = c.id AND cs.user_id = $%d))`, len(args)+1, len(args)+1)
		args = append(args, gate.ActorID)
		if gate.FamilyID != nil {
			clause += fmt.Sprintf(" OR (c.visibility = 'FAMILY' AND c.family_id = $%d)", len(args)+1)
			args = append(args, *gate.FamilyID)
		}
		clause += ")"
		conditions = append(conditions, clause)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"created_at": "c.created_at",
		"updated_at": "c.updated_at",
		"title":      "c.title",
		"view_count": "c.view_count",
		"rating":     "c.rating",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s, u.full_name AS creator_name, f.name AS family_name, cat.name AS category_name
        %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d`, contentColumns, base, column, order, limit, offset)

	var items []models.ContentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list content: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(c.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count content: %w", err)
	}
	return items, total, nil
}

// Update modifies the mutable columns of an existing content record. The
// content_type, created_by and curation columns are never touched here.
func (r *ContentRepository) Update(ctx context.Context, content *models.Content) error {
	content.UpdatedAt = time.Now().UTC()
	const query = `UPDATE content SET title = :title, description = :description, body = :body, tags = :tags,
        category_id = :category_id, family_id = :family_id, visibility = :visibility,
        note_type = :note_type, is_pinned = :is_pinned, allow_comments = :allow_comments, allow_editing = :allow_editing,
        last_edited_by = :last_edited_by, last_edited_at = :last_edited_at,
        resource_type = :resource_type, url = :url, target_audience = :target_audience, external_meta = :external_meta,
        updated_at = :updated_at
        WHERE id = :id AND is_deleted = FALSE`
	if _, err := r.db.NamedExecContext(ctx, query, content); err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}

// SoftDelete marks a content record as deleted without removing the row.
func (r *ContentRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE content SET is_deleted = TRUE, deleted_at = $2, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("soft delete content: %w", err)
	}
	return nil
}

// IncrementViewCount bumps the view counter atomically.
func (r *ContentRepository) IncrementViewCount(ctx context.Context, id string) error {
	const query = `UPDATE content SET view_count = view_count + 1 WHERE id = $1 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// UpdateCuration persists a curation state change on a resource.
func (r *ContentRepository) UpdateCuration(ctx context.Context, content *models.Content) error {
	content.UpdatedAt = time.Now().UTC()
	const query = `UPDATE content SET status = :status, approved_by = :approved_by, approved_at = :approved_at,
        featured_by = :featured_by, featured_at = :featured_at, has_curation = :has_curation, updated_at = :updated_at
        WHERE id = :id AND is_deleted = FALSE`
	if _, err := r.db.NamedExecContext(ctx, query, content); err != nil {
		return fmt.Errorf("update curation: %w", err)
	}
	return nil
}

// SetHasAssignments raises the assignment workflow flag. The flag is
// one-way; it is never cleared.
func (r *ContentRepository) SetHasAssignments(ctx context.Context, id string) error {
	const query = `UPDATE content SET has_assignments = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("set has_assignments: %w", err)
	}
	return nil
}

// SetHasSharing raises the sharing workflow flag.
func (r *ContentRepository) SetHasSharing(ctx context.Context, id string) error {
	const query = `UPDATE content SET has_sharing = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("set has_sharing: %w", err)
	}
	return nil
}

// UpdateRatingAggregate stores the re-computed rating mean and count. A nil
// rating clears the aggregate when the last rating disappears; has_ratings
// follows the count.
func (r *ContentRepository) UpdateRatingAggregate(ctx context.Context, id string, rating *float64, count int) error {
	const query = `UPDATE content SET rating = $2, rating_count = $3, has_ratings = $4, updated_at = $5 WHERE id = $1 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, rating, count, count > 0, time.Now().UTC()); err != nil {
		return fmt.Errorf("update rating aggregate: %w", err)
	}
	return nil
}
