package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebridge/community-api/internal/models"
)

// RatingRepository manages persistence for resource ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs a RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert inserts a rating or overwrites the user's previous one for the
// same content.
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.ContentRating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = now
	}
	rating.UpdatedAt = now
	const query = `INSERT INTO content_ratings (id, content_id, user_id, rating, review, is_helpful, created_at, updated_at)
        VALUES (:id, :content_id, :user_id, :rating, :review, :is_helpful, :created_at, :updated_at)
        ON CONFLICT (content_id, user_id) DO UPDATE SET rating = EXCLUDED.rating, review = EXCLUDED.review,
        is_helpful = EXCLUDED.is_helpful, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// Aggregate computes the mean and count over all ratings of a content
// record. The mean is NULL when no ratings exist.
func (r *RatingRepository) Aggregate(ctx context.Context, contentID string) (*float64, int, error) {
	const query = `SELECT AVG(rating) AS mean, COUNT(*) AS total FROM content_ratings WHERE content_id = $1`
	var row struct {
		Mean  *float64 `db:"mean"`
		Total int      `db:"total"`
	}
	if err := r.db.GetContext(ctx, &row, query, contentID); err != nil {
		return nil, 0, fmt.Errorf("aggregate ratings: %w", err)
	}
	return row.Mean, row.Total, nil
}

// ListByContent returns all ratings for a content record, newest first.
func (r *RatingRepository) ListByContent(ctx context.Context, contentID string) ([]models.ContentRating, error) {
	const query = `SELECT id, content_id, user_id, rating, review, is_helpful, created_at, updated_at
        FROM content_ratings WHERE content_id = $1 ORDER BY updated_at DESC`
	var ratings []models.ContentRating
	if err := r.db.SelectContext(ctx, &ratings, query, contentID); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}
