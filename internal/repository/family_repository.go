package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebridge/community-api/internal/models"
)

// FamilyRepository manages persistence for care-circle families.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository constructs a FamilyRepository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// FindByID fetches a family by ID.
func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*models.Family, error) {
	const query = `SELECT id, name, created_by, active, created_at, updated_at FROM families WHERE id = $1 LIMIT 1`
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, id); err != nil {
		return nil, err
	}
	return &family, nil
}

// ListCreatedIDs returns the IDs of every family a user created. Volunteer
// assignment authorization is scoped to this set.
func (r *FamilyRepository) ListCreatedIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT id FROM families WHERE created_by = $1 AND active = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list created family ids: %w", err)
	}
	return ids, nil
}

// List returns all active families ordered by name.
func (r *FamilyRepository) List(ctx context.Context) ([]models.Family, error) {
	const query = `SELECT id, name, created_by, active, created_at, updated_at FROM families WHERE active = TRUE ORDER BY name ASC`
	var families []models.Family
	if err := r.db.SelectContext(ctx, &families, query); err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	return families, nil
}

// Create inserts a new family.
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if family.CreatedAt.IsZero() {
		family.CreatedAt = now
	}
	family.UpdatedAt = now
	const query = `INSERT INTO families (id, name, created_by, active, created_at, updated_at) VALUES (:id, :name, :created_by, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, family); err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}
