package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
	"github.com/carebridge/community-api/pkg/storage"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	Delete(ctx context.Context, id string) error
}

type documentStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// DocumentConfig constrains uploads and signs downloads.
type DocumentConfig struct {
	APIPrefix        string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// UploadDocumentRequest carries upload metadata alongside the stream.
type UploadDocumentRequest struct {
	Title    string
	FileName string
	MimeType string
	Size     int64
}

// DocumentDownload bundles an open file with response metadata.
type DocumentDownload struct {
	File     *os.File
	Document *models.Document
}

// DocumentService handles document upload, download signing, and removal.
type DocumentService struct {
	repo    documentRepository
	storage documentStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     DocumentConfig
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(repo documentRepository, fs documentStorage, signer *storage.SignedURLSigner, cfg DocumentConfig, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 25 << 20
	}
	return &DocumentService{
		repo:    repo,
		storage: fs,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Upload streams a file into storage and records its metadata.
func (s *DocumentService) Upload(ctx context.Context, actor access.Actor, req UploadDocumentRequest, r io.Reader) (*models.Document, error) {
	if req.FileName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
	}
	if req.Size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds maximum size of %d bytes", s.cfg.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(req.MimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}

	title := req.Title
	if title == "" {
		title = req.FileName
	}

	id := uuid.NewString()
	relPath := filepath.Join("documents", fmt.Sprintf("%s%s", id, sanitizeExt(req.FileName)))

	limited := io.LimitReader(r, s.cfg.MaxFileSizeBytes+1)
	storedPath, err := s.storage.SaveStream(relPath, limited)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	doc := &models.Document{
		ID:          id,
		Title:       title,
		FileName:    req.FileName,
		MimeType:    req.MimeType,
		Size:        req.Size,
		StoragePath: storedPath,
		UploadedBy:  actor.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if cleanupErr := s.storage.Delete(storedPath); cleanupErr != nil {
			s.logger.Sugar().Warnw("orphaned upload cleanup failed", "path", storedPath, "error", cleanupErr)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document metadata")
	}
	return doc, nil
}

// Get returns document metadata.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// SignDownloadURL issues a time-limited download link for the document.
func (s *DocumentService) SignDownloadURL(ctx context.Context, id string) (string, time.Time, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.StoragePath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/downloads/documents/%s", prefix, token), expiresAt, nil
}

// ResolveDownload validates a token and opens the referenced file.
func (s *DocumentService) ResolveDownload(ctx context.Context, token string) (*DocumentDownload, error) {
	docID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	doc, err := s.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.StoragePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return &DocumentDownload{File: file, Document: doc}, nil
}

// Delete removes the document file and metadata. Only the uploader or an
// admin may delete.
func (s *DocumentService) Delete(ctx context.Context, actor access.Actor, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin && doc.UploadedBy != actor.ID {
		return appErrors.ErrForbidden
	}
	if err := s.storage.Delete(doc.StoragePath); err != nil {
		s.logger.Sugar().Warnw("failed to delete stored file", "document_id", id, "error", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	return nil
}

func (s *DocumentService) mimeAllowed(mime string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, mime) {
			return true
		}
	}
	return false
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
