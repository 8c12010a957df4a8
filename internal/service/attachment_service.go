package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
)

type attachmentRepository interface {
	AttachDocument(ctx context.Context, doc *models.ContentDocument) error
	DetachDocument(ctx context.Context, contentID, documentID string) (int64, error)
	ListDocuments(ctx context.Context, contentID string) ([]models.ContentDocument, error)
	CreateShare(ctx context.Context, share *models.ContentShare) error
	FindShare(ctx context.Context, contentID, userID string) (*models.ContentShare, error)
	DeleteShare(ctx context.Context, contentID, userID string) (int64, error)
	ListShares(ctx context.Context, contentID string) ([]models.ContentShare, error)
}

type attachmentContentStore interface {
	FindByID(ctx context.Context, id string) (*models.Content, error)
	SetHasSharing(ctx context.Context, id string) error
}

type attachmentDocumentReader interface {
	FindByID(ctx context.Context, id string) (*models.Document, error)
}

type attachmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AttachDocumentRequest links an uploaded document to a content record.
type AttachDocumentRequest struct {
	DocumentID   string `json:"document_id" validate:"required"`
	DisplayOrder int    `json:"order" validate:"min=0"`
	IsMain       bool   `json:"is_main"`
}

// ShareContentRequest grants a user access to a content record. Permission
// bits are only honored for notes.
type ShareContentRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	CanEdit    *bool  `json:"can_edit"`
	CanComment *bool  `json:"can_comment"`
	CanShare   *bool  `json:"can_share"`
}

// AttachmentService handles document links and share grants on content.
type AttachmentService struct {
	repo      attachmentRepository
	content   attachmentContentStore
	documents attachmentDocumentReader
	users     attachmentUserReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttachmentService constructs the attachment service.
func NewAttachmentService(repo attachmentRepository, content attachmentContentStore, documents attachmentDocumentReader, users attachmentUserReader, validate *validator.Validate, logger *zap.Logger) *AttachmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{repo: repo, content: content, documents: documents, users: users, validator: validate, logger: logger}
}

// AttachDocument links a document to a content record. Notes never carry a
// main document; the bit is forced off for them.
func (s *AttachmentService) AttachDocument(ctx context.Context, actor access.Actor, contentID string, req AttachDocumentRequest) (*models.ContentDocument, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attachment payload")
	}
	content, err := s.loadWritable(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.documents.FindByID(ctx, req.DocumentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	isMain := req.IsMain
	if content.IsNote() {
		isMain = false
	}
	doc := &models.ContentDocument{
		ContentID:    contentID,
		DocumentID:   req.DocumentID,
		AttachedBy:   actor.ID,
		DisplayOrder: req.DisplayOrder,
		IsMain:       isMain,
	}
	if err := s.repo.AttachDocument(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach document")
	}
	return doc, nil
}

// DetachDocument removes a document link from a content record.
func (s *AttachmentService) DetachDocument(ctx context.Context, actor access.Actor, contentID, documentID string) error {
	if _, err := s.loadWritable(ctx, actor, contentID); err != nil {
		return err
	}
	affected, err := s.repo.DetachDocument(ctx, contentID, documentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach document")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	return nil
}

// Share grants a user access to a content record. Note shares default to
// comment-only; resource shares are access-only and carry no permission
// bits.
func (s *AttachmentService) Share(ctx context.Context, actor access.Actor, contentID string, req ShareContentRequest) (*models.ContentShare, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload")
	}
	content, err := s.loadOwned(ctx, actor, contentID)
	if err != nil {
		return nil, err
	}
	if req.UserID == content.CreatedBy {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot share content with its creator")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	share := &models.ContentShare{
		ContentID: contentID,
		UserID:    req.UserID,
		SharedBy:  actor.ID,
	}
	if content.IsNote() {
		share.CanComment = true
		if req.CanEdit != nil {
			share.CanEdit = *req.CanEdit
		}
		if req.CanComment != nil {
			share.CanComment = *req.CanComment
		}
		if req.CanShare != nil {
			share.CanShare = *req.CanShare
		}
	}
	if err := s.repo.CreateShare(ctx, share); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to share content")
	}
	if !content.HasSharing {
		if err := s.content.SetHasSharing(ctx, contentID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag content sharing")
		}
	}
	s.logger.Info("content shared",
		zap.String("content_id", contentID),
		zap.String("user_id", req.UserID),
		zap.String("shared_by", actor.ID))
	return share, nil
}

// Unshare revokes a user's access to a content record.
func (s *AttachmentService) Unshare(ctx context.Context, actor access.Actor, contentID, userID string) error {
	if _, err := s.loadOwned(ctx, actor, contentID); err != nil {
		return err
	}
	affected, err := s.repo.DeleteShare(ctx, contentID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke share")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "share not found")
	}
	return nil
}

// loadWritable loads content and requires update access for the actor.
func (s *AttachmentService) loadWritable(ctx context.Context, actor access.Actor, contentID string) (*models.Content, error) {
	content, err := s.content.FindByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}

	editShare := false
	hasShare := false
	if actor.Role != models.RoleAdmin && content.CreatedBy != actor.ID {
		share, err := s.repo.FindShare(ctx, contentID, actor.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve share")
		}
		hasShare = share != nil
		editShare = share != nil && share.CanEdit
	}
	if !access.CanUpdate(content, actor, editShare) {
		if !access.CanRead(content, actor, hasShare) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify this content")
	}
	return content, nil
}

// loadOwned loads content and restricts the operation to the creator and
// admins. Sharing is an owner concern; edit shares do not extend to it.
func (s *AttachmentService) loadOwned(ctx context.Context, actor access.Actor, contentID string) (*models.Content, error) {
	content, err := s.content.FindByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if actor.Role != models.RoleAdmin && content.CreatedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	return content, nil
}
