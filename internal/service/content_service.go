package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
)

type contentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	FindByID(ctx context.Context, id string) (*models.Content, error)
	FindDetailByID(ctx context.Context, id string) (*models.ContentDetail, error)
	List(ctx context.Context, filter models.ContentFilter, gate models.VisibilityGate) ([]models.ContentDetail, int, error)
	Update(ctx context.Context, content *models.Content) error
	SoftDelete(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error
}

type shareReader interface {
	FindShare(ctx context.Context, contentID, userID string) (*models.ContentShare, error)
	ListShares(ctx context.Context, contentID string) ([]models.ContentShare, error)
	ListDocuments(ctx context.Context, contentID string) ([]models.ContentDocument, error)
}

type assignmentReader interface {
	ListByContent(ctx context.Context, contentID string) ([]models.ContentAssignment, error)
}

type ratingReader interface {
	ListByContent(ctx context.Context, contentID string) ([]models.ContentRating, error)
}

type categoryExpander interface {
	ExpandCategories(ctx context.Context, names []string) ([]string, error)
}

// CreateContentRequest holds the payload for creating notes and resources.
// Fields outside the requested content type are ignored.
type CreateContentRequest struct {
	ContentType models.ContentType       `json:"content_type" validate:"required,oneof=NOTE RESOURCE"`
	Title       string                   `json:"title" validate:"required,max=255"`
	Description *string                  `json:"description"`
	Body        *string                  `json:"body"`
	Tags        []string                 `json:"tags"`
	CategoryID  *string                  `json:"category_id"`
	FamilyID    *string                  `json:"family_id"`
	Visibility  models.ContentVisibility `json:"visibility" validate:"omitempty,oneof=PRIVATE FAMILY SHARED PUBLIC"`

	NoteType      *models.NoteType `json:"note_type" validate:"omitempty,oneof=TEXT MARKDOWN CHECKLIST"`
	IsPinned      *bool            `json:"is_pinned"`
	AllowComments *bool            `json:"allow_comments"`
	AllowEditing  *bool            `json:"allow_editing"`

	ResourceType   *models.ResourceType `json:"resource_type" validate:"omitempty,oneof=ARTICLE LINK DOCUMENT TEMPLATE VIDEO"`
	URL            *string              `json:"url" validate:"omitempty,url"`
	TargetAudience []string             `json:"target_audience"`
	ExternalMeta   json.RawMessage      `json:"external_meta"`
}

// UpdateContentRequest holds the mutable fields of a content record. Nil
// fields are left untouched.
type UpdateContentRequest struct {
	Title       *string                   `json:"title" validate:"omitempty,max=255"`
	Description *string                   `json:"description"`
	Body        *string                   `json:"body"`
	Tags        []string                  `json:"tags"`
	CategoryID  *string                   `json:"category_id"`
	Visibility  *models.ContentVisibility `json:"visibility" validate:"omitempty,oneof=PRIVATE FAMILY SHARED PUBLIC"`

	NoteType      *models.NoteType `json:"note_type" validate:"omitempty,oneof=TEXT MARKDOWN CHECKLIST"`
	IsPinned      *bool            `json:"is_pinned"`
	AllowComments *bool            `json:"allow_comments"`
	AllowEditing  *bool            `json:"allow_editing"`

	ResourceType   *models.ResourceType `json:"resource_type" validate:"omitempty,oneof=ARTICLE LINK DOCUMENT TEMPLATE VIDEO"`
	URL            *string              `json:"url" validate:"omitempty,url"`
	TargetAudience []string             `json:"target_audience"`
	ExternalMeta   json.RawMessage      `json:"external_meta"`
}

// ContentService handles the unified note and resource use-cases.
type ContentService struct {
	repo        contentRepository
	shares      shareReader
	assignments assignmentReader
	ratings     ratingReader
	taxonomy    categoryExpander
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewContentService constructs the content service.
func NewContentService(repo contentRepository, shares shareReader, assignments assignmentReader, ratings ratingReader, taxonomy categoryExpander, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{
		repo:        repo,
		shares:      shares,
		assignments: assignments,
		ratings:     ratings,
		taxonomy:    taxonomy,
		validator:   validate,
		logger:      logger,
	}
}

// Create stores a new note or resource for the actor. Resources created by
// admins are approved immediately; everyone else's enter the curation queue
// as PENDING.
func (s *ContentService) Create(ctx context.Context, actor access.Actor, req CreateContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	if !access.CanCreate(req.ContentType, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create this content type")
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	content := &models.Content{
		ContentType: req.ContentType,
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		Tags:        req.Tags,
		CategoryID:  req.CategoryID,
		FamilyID:    req.FamilyID,
		CreatedBy:   actor.ID,
		Visibility:  visibility,
	}
	if content.FamilyID == nil {
		content.FamilyID = actor.FamilyID
	}

	switch req.ContentType {
	case models.ContentTypeNote:
		noteType := models.NoteTypeText
		if req.NoteType != nil {
			noteType = *req.NoteType
		}
		content.NoteType = &noteType
		content.AllowComments = true
		if req.AllowComments != nil {
			content.AllowComments = *req.AllowComments
		}
		if req.IsPinned != nil {
			content.IsPinned = *req.IsPinned
		}
		if req.AllowEditing != nil {
			content.AllowEditing = *req.AllowEditing
		}
	case models.ContentTypeResource:
		if req.ResourceType == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "resource_type is required for resources")
		}
		content.ResourceType = req.ResourceType
		content.URL = req.URL
		content.TargetAudience = req.TargetAudience
		content.ExternalMeta = req.ExternalMeta

		status := models.StatusPending
		content.HasCuration = true
		if actor.Role == models.RoleAdmin {
			status = models.StatusApproved
			content.HasCuration = false
			now := time.Now().UTC()
			content.ApprovedBy = &actor.ID
			content.ApprovedAt = &now
		}
		content.Status = &status
	}

	if err := s.repo.Create(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}
	s.logger.Info("content created",
		zap.String("content_id", content.ID),
		zap.String("content_type", string(content.ContentType)),
		zap.String("created_by", actor.ID))
	return content, nil
}

// Get loads a content record with the requested relations. Records the
// actor may not read surface as not-found rather than forbidden, so their
// existence never leaks.
func (s *ContentService) Get(ctx context.Context, actor access.Actor, id string, opts models.ContentLoadOptions) (*models.ContentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}

	hasShare, _, err := s.resolveShare(ctx, &detail.Content, actor)
	if err != nil {
		return nil, err
	}
	if !access.CanRead(&detail.Content, actor, hasShare) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}

	if err := s.hydrate(ctx, detail, opts); err != nil {
		return nil, err
	}
	return detail, nil
}

// List returns content visible to the actor matching the filter criteria.
// Healthcare category names expand into their mapped tags before the query
// runs.
func (s *ContentService) List(ctx context.Context, actor access.Actor, filter models.ContentFilter) ([]models.ContentDetail, *models.Pagination, error) {
	if len(filter.HealthcareCategories) > 0 {
		expanded, err := s.taxonomy.ExpandCategories(ctx, filter.HealthcareCategories)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expand healthcare categories")
		}
		if len(expanded) == 0 && len(filter.Tags) == 0 {
			// Unknown category names match nothing, not everything.
			return []models.ContentDetail{}, listPagination(filter, 0), nil
		}
		filter.Tags = append(filter.Tags, expanded...)
	}

	gate := models.VisibilityGate{
		Admin:    actor.Role == models.RoleAdmin,
		ActorID:  actor.ID,
		FamilyID: actor.FamilyID,
	}
	items, total, err := s.repo.List(ctx, filter, gate)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content")
	}

	return items, listPagination(filter, total), nil
}

func listPagination(filter models.ContentFilter, total int) *models.Pagination {
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
	pagination := &models.Pagination{Page: page, PageSize: limit, TotalCount: total}
	pagination.TotalPages = (total + limit - 1) / limit
	return pagination
}

// Update modifies a content record. Type-specific fields only apply to the
// matching content type; note edits stamp the editor.
func (s *ContentService) Update(ctx context.Context, actor access.Actor, id string, req UpdateContentRequest) (*models.Content, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}

	content, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	hasShare, editShare, err := s.resolveShare(ctx, content, actor)
	if err != nil {
		return nil, err
	}
	if !access.CanUpdate(content, actor, editShare) {
		if !access.CanRead(content, actor, hasShare) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify this content")
	}

	if req.Title != nil {
		content.Title = *req.Title
	}
	if req.Description != nil {
		content.Description = req.Description
	}
	if req.Body != nil {
		content.Body = req.Body
	}
	if req.Tags != nil {
		content.Tags = req.Tags
	}
	if req.CategoryID != nil {
		content.CategoryID = req.CategoryID
	}
	if req.Visibility != nil {
		content.Visibility = *req.Visibility
	}

	if content.IsNote() {
		if req.NoteType != nil {
			content.NoteType = req.NoteType
		}
		if req.IsPinned != nil {
			content.IsPinned = *req.IsPinned
		}
		if req.AllowComments != nil {
			content.AllowComments = *req.AllowComments
		}
		if req.AllowEditing != nil {
			content.AllowEditing = *req.AllowEditing
		}
		now := time.Now().UTC()
		content.LastEditedBy = &actor.ID
		content.LastEditedAt = &now
	} else {
		if req.ResourceType != nil {
			content.ResourceType = req.ResourceType
		}
		if req.URL != nil {
			content.URL = req.URL
		}
		if req.TargetAudience != nil {
			content.TargetAudience = req.TargetAudience
		}
		if req.ExternalMeta != nil {
			content.ExternalMeta = req.ExternalMeta
		}
	}

	if err := s.repo.Update(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update content")
	}
	return content, nil
}

// Delete soft-deletes a content record. Only the creator and admins may
// delete; the row survives for auditability.
func (s *ContentService) Delete(ctx context.Context, actor access.Actor, id string) error {
	content, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return err
	}
	if !access.CanDelete(content, actor) {
		hasShare, _, shareErr := s.resolveShare(ctx, content, actor)
		if shareErr != nil {
			return shareErr
		}
		if !access.CanRead(content, actor, hasShare) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this content")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete content")
	}
	s.logger.Info("content deleted", zap.String("content_id", id), zap.String("deleted_by", actor.ID))
	return nil
}

// RecordView bumps the view counter. Failures are logged, never surfaced;
// a read must not fail because its counter did.
func (s *ContentService) RecordView(ctx context.Context, id string) {
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		s.logger.Warn("failed to record content view", zap.String("content_id", id), zap.Error(err))
	}
}

func (s *ContentService) loadForWrite(ctx context.Context, actor access.Actor, id string) (*models.Content, error) {
	content, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return content, nil
}

// resolveShare fetches the actor's share row once and derives both access
// bits from it. Creators and admins skip the lookup.
func (s *ContentService) resolveShare(ctx context.Context, content *models.Content, actor access.Actor) (hasShare bool, editShare bool, err error) {
	if actor.Role == models.RoleAdmin || content.CreatedBy == actor.ID {
		return false, false, nil
	}
	share, err := s.shares.FindShare(ctx, content.ID, actor.ID)
	if err != nil {
		return false, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve share")
	}
	if share == nil {
		return false, false, nil
	}
	return true, share.CanEdit, nil
}

func (s *ContentService) hydrate(ctx context.Context, detail *models.ContentDetail, opts models.ContentLoadOptions) error {
	if opts.Documents {
		docs, err := s.shares.ListDocuments(ctx, detail.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load documents")
		}
		detail.Documents = docs
	}
	if opts.Shares {
		shares, err := s.shares.ListShares(ctx, detail.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shares")
		}
		detail.Shares = shares
	}
	if opts.Assignments {
		assignments, err := s.assignments.ListByContent(ctx, detail.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
		}
		detail.Assignments = assignments
	}
	if opts.Ratings {
		ratings, err := s.ratings.ListByContent(ctx, detail.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ratings")
		}
		detail.Ratings = ratings
	}
	return nil
}
