package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/carebridge/community-api/internal/models"
)

// TaxonomyRepository reads the content categories and the healthcare
// category-to-tag mapping used by filter expansion.
type TaxonomyRepository struct {
	db *sqlx.DB
}

// NewTaxonomyRepository constructs a TaxonomyRepository.
func NewTaxonomyRepository(db *sqlx.DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

// ListCategories returns all content categories ordered by name.
func (r *TaxonomyRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, name, icon, created_at FROM categories ORDER BY name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindCategoryByID fetches one content category.
func (r *TaxonomyRepository) FindCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	const query = `SELECT id, name, icon, created_at FROM categories WHERE id = $1 LIMIT 1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// ExpandCategories resolves healthcare category names into the union of
// their mapped tags. Unknown names expand to nothing.
func (r *TaxonomyRepository) ExpandCategories(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	const query = `SELECT name, tags FROM healthcare_categories WHERE name = ANY($1)`
	var rows []models.HealthcareCategory
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("expand healthcare categories: %w", err)
	}

	seen := map[string]struct{}{}
	var tags []string
	for _, row := range rows {
		for _, tag := range row.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// ListHealthcareCategories returns the full category-to-tag mapping.
func (r *TaxonomyRepository) ListHealthcareCategories(ctx context.Context) ([]models.HealthcareCategory, error) {
	const query = `SELECT name, tags FROM healthcare_categories ORDER BY name ASC`
	var rows []models.HealthcareCategory
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list healthcare categories: %w", err)
	}
	return rows, nil
}
