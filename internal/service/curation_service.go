package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
)

type curationContentStore interface {
	FindByID(ctx context.Context, id string) (*models.Content, error)
	List(ctx context.Context, filter models.ContentFilter, gate models.VisibilityGate) ([]models.ContentDetail, int, error)
	UpdateCuration(ctx context.Context, content *models.Content) error
	UpdateRatingAggregate(ctx context.Context, id string, rating *float64, count int) error
}

type ratingStore interface {
	Upsert(ctx context.Context, rating *models.ContentRating) error
	Aggregate(ctx context.Context, contentID string) (*float64, int, error)
}

type curationShareReader interface {
	FindShare(ctx context.Context, contentID, userID string) (*models.ContentShare, error)
}

// RateContentRequest holds one user's rating of a resource.
type RateContentRequest struct {
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Review    *string `json:"review"`
	IsHelpful *bool   `json:"is_helpful"`
}

// CurationService handles the admin curation pipeline and resource ratings.
type CurationService struct {
	content   curationContentStore
	ratings   ratingStore
	shares    curationShareReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCurationService constructs the curation service.
func NewCurationService(content curationContentStore, ratings ratingStore, shares curationShareReader, validate *validator.Validate, logger *zap.Logger) *CurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurationService{content: content, ratings: ratings, shares: shares, validator: validate, logger: logger}
}

// Queue returns resources awaiting review, oldest first. Admin only.
func (s *CurationService) Queue(ctx context.Context, actor access.Actor, page, limit int) ([]models.ContentDetail, *models.Pagination, error) {
	if !access.CanCurate(actor) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "curation requires admin access")
	}
	hasCuration := true
	filter := models.ContentFilter{
		ContentTypes: []models.ContentType{models.ContentTypeResource},
		Statuses:     []models.ResourceStatus{models.StatusPending},
		HasCuration:  &hasCuration,
		Page:         page,
		Limit:        limit,
		SortBy:       "created_at",
		SortOrder:    "ASC",
	}
	items, total, err := s.content.List(ctx, filter, models.VisibilityGate{Admin: true})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list curation queue")
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	pagination := &models.Pagination{Page: page, PageSize: limit, TotalCount: total, TotalPages: (total + limit - 1) / limit}
	return items, pagination, nil
}

// Approve marks a pending resource as reviewed and publishable.
func (s *CurationService) Approve(ctx context.Context, actor access.Actor, id string) (*models.Content, error) {
	content, err := s.loadResource(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	status := models.StatusApproved
	content.Status = &status
	content.ApprovedBy = &actor.ID
	content.ApprovedAt = &now
	content.HasCuration = false
	if err := s.content.UpdateCuration(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve resource")
	}
	s.logger.Info("resource approved", zap.String("content_id", id), zap.String("approved_by", actor.ID))
	return content, nil
}

// Reject removes a pending resource from the queue without publishing it.
func (s *CurationService) Reject(ctx context.Context, actor access.Actor, id string) (*models.Content, error) {
	content, err := s.loadResource(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	status := models.StatusRejected
	content.Status = &status
	content.HasCuration = false
	if err := s.content.UpdateCuration(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject resource")
	}
	s.logger.Info("resource rejected", zap.String("content_id", id), zap.String("rejected_by", actor.ID))
	return content, nil
}

// Feature promotes a resource to the featured shelf. Approval is not a
// prerequisite; featuring implies the admin has reviewed it.
func (s *CurationService) Feature(ctx context.Context, actor access.Actor, id string) (*models.Content, error) {
	content, err := s.loadResource(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	status := models.StatusFeatured
	content.Status = &status
	content.FeaturedBy = &actor.ID
	content.FeaturedAt = &now
	if content.ApprovedBy == nil {
		content.ApprovedBy = &actor.ID
		content.ApprovedAt = &now
	}
	content.HasCuration = false
	if err := s.content.UpdateCuration(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to feature resource")
	}
	s.logger.Info("resource featured", zap.String("content_id", id), zap.String("featured_by", actor.ID))
	return content, nil
}

// Rate stores the actor's rating of a resource and re-computes the stored
// aggregate from all rating rows. The mean rounds to two decimals.
func (s *CurationService) Rate(ctx context.Context, actor access.Actor, contentID string, req RateContentRequest) (*models.ContentRating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}

	content, err := s.content.FindByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if !content.IsResource() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only resources can be rated")
	}

	hasShare := false
	if actor.Role != models.RoleAdmin && content.CreatedBy != actor.ID && content.Visibility == models.VisibilityShared {
		share, err := s.shares.FindShare(ctx, contentID, actor.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve share")
		}
		hasShare = share != nil
	}
	if !access.CanRead(content, actor, hasShare) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}

	rating := &models.ContentRating{
		ContentID: contentID,
		UserID:    actor.ID,
		Rating:    req.Rating,
		Review:    req.Review,
		IsHelpful: req.IsHelpful,
	}
	if err := s.ratings.Upsert(ctx, rating); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rating")
	}

	mean, count, err := s.ratings.Aggregate(ctx, contentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate ratings")
	}
	if mean != nil {
		rounded := math.Round(*mean*100) / 100
		mean = &rounded
	}
	if err := s.content.UpdateRatingAggregate(ctx, contentID, mean, count); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rating aggregate")
	}
	return rating, nil
}

func (s *CurationService) loadResource(ctx context.Context, actor access.Actor, id string) (*models.Content, error) {
	if !access.CanCurate(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "curation requires admin access")
	}
	content, err := s.content.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if !content.IsResource() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only resources go through curation")
	}
	return content, nil
}
