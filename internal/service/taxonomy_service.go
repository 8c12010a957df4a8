package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
)

type taxonomyRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ExpandCategories(ctx context.Context, names []string) ([]string, error)
	ListHealthcareCategories(ctx context.Context) ([]models.HealthcareCategory, error)
}

const (
	cacheKeyCategories           = "taxonomy:categories"
	cacheKeyHealthcareCategories = "taxonomy:healthcare"
	taxonomyCacheTTL             = 30 * time.Minute
)

// TaxonomyService serves the category vocabulary. Both listings change
// rarely, so results sit in cache with a long TTL.
type TaxonomyService struct {
	repo   taxonomyRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewTaxonomyService constructs the taxonomy service.
func NewTaxonomyService(repo taxonomyRepository, cache *CacheService, logger *zap.Logger) *TaxonomyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxonomyService{repo: repo, cache: cache, logger: logger}
}

// ListCategories returns all content categories.
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if hit, _ := s.cache.Get(ctx, cacheKeyCategories, &cached); hit {
		return cached, nil
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	_ = s.cache.Set(ctx, cacheKeyCategories, categories, taxonomyCacheTTL)
	return categories, nil
}

// ListHealthcareCategories returns the healthcare category-to-tag mapping.
func (s *TaxonomyService) ListHealthcareCategories(ctx context.Context) ([]models.HealthcareCategory, error) {
	var cached []models.HealthcareCategory
	if hit, _ := s.cache.Get(ctx, cacheKeyHealthcareCategories, &cached); hit {
		return cached, nil
	}
	categories, err := s.repo.ListHealthcareCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list healthcare categories")
	}
	_ = s.cache.Set(ctx, cacheKeyHealthcareCategories, categories, taxonomyCacheTTL)
	return categories, nil
}

// ExpandCategories resolves healthcare category names into their tags.
func (s *TaxonomyService) ExpandCategories(ctx context.Context, names []string) ([]string, error) {
	return s.repo.ExpandCategories(ctx, names)
}
