package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebridge/community-api/internal/models"
)

// AttachmentRepository manages document links and share grants on content.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs an AttachmentRepository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// AttachDocument links a document to a content record.
func (r *AttachmentRepository) AttachDocument(ctx context.Context, doc *models.ContentDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO content_documents (id, content_id, document_id, attached_by, display_order, is_main, created_at)
        VALUES (:id, :content_id, :document_id, :attached_by, :display_order, :is_main, :created_at)
        ON CONFLICT (content_id, document_id) DO UPDATE SET display_order = EXCLUDED.display_order, is_main = EXCLUDED.is_main`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("attach document: %w", err)
	}
	return nil
}

// DetachDocument removes a document link. It returns the number of rows
// removed so callers can distinguish a missing link.
func (r *AttachmentRepository) DetachDocument(ctx context.Context, contentID, documentID string) (int64, error) {
	const query = `DELETE FROM content_documents WHERE content_id = $1 AND document_id = $2`
	result, err := r.db.ExecContext(ctx, query, contentID, documentID)
	if err != nil {
		return 0, fmt.Errorf("detach document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("detach document rows: %w", err)
	}
	return affected, nil
}

// ListDocuments returns document links for a content record ordered by
// display position.
func (r *AttachmentRepository) ListDocuments(ctx context.Context, contentID string) ([]models.ContentDocument, error) {
	const query = `SELECT id, content_id, document_id, attached_by, display_order, is_main, created_at
        FROM content_documents WHERE content_id = $1 ORDER BY display_order ASC, created_at ASC`
	var docs []models.ContentDocument
	if err := r.db.SelectContext(ctx, &docs, query, contentID); err != nil {
		return nil, fmt.Errorf("list content documents: %w", err)
	}
	return docs, nil
}

// CreateShare grants a user access to a content record. Re-sharing with the
// same user refreshes the permission bits.
func (r *AttachmentRepository) CreateShare(ctx context.Context, share *models.ContentShare) error {
	if share.ID == "" {
		share.ID = uuid.NewString()
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO content_shares (id, content_id, user_id, shared_by, can_edit, can_comment, can_share, created_at)
        VALUES (:id, :content_id, :user_id, :shared_by, :can_edit, :can_comment, :can_share, :created_at)
        ON CONFLICT (content_id, user_id) DO UPDATE SET shared_by = EXCLUDED.shared_by, can_edit = EXCLUDED.can_edit,
        can_comment = EXCLUDED.can_comment, can_share = EXCLUDED.can_share`
	if _, err := r.db.NamedExecContext(ctx, query, share); err != nil {
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// FindShare returns the share row for a (content, user) pair, or nil when
// none exists.
func (r *AttachmentRepository) FindShare(ctx context.Context, contentID, userID string) (*models.ContentShare, error) {
	const query = `SELECT id, content_id, user_id, shared_by, can_edit, can_comment, can_share, created_at
        FROM content_shares WHERE content_id = $1 AND user_id = $2`
	var share models.ContentShare
	if err := r.db.GetContext(ctx, &share, query, contentID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find share: %w", err)
	}
	return &share, nil
}

// DeleteShare revokes a user's share on a content record.
func (r *AttachmentRepository) DeleteShare(ctx context.Context, contentID, userID string) (int64, error) {
	const query = `DELETE FROM content_shares WHERE content_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, contentID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete share: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete share rows: %w", err)
	}
	return affected, nil
}

// ListShares returns all share grants for a content record.
func (r *AttachmentRepository) ListShares(ctx context.Context, contentID string) ([]models.ContentShare, error) {
	const query = `SELECT id, content_id, user_id, shared_by, can_edit, can_comment, can_share, created_at
        FROM content_shares WHERE content_id = $1 ORDER BY created_at ASC`
	var shares []models.ContentShare
	if err := r.db.SelectContext(ctx, &shares, query, contentID); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}
