package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
)

// Note is the legacy note shape kept for clients that predate the unified
// content model. Content here means the note text, stored as body on the
// content record.
type Note struct {
	ID            string                   `json:"id"`
	Title         string                   `json:"title"`
	Content       string                   `json:"content"`
	Type          models.NoteType          `json:"type"`
	Tags          []string                 `json:"tags"`
	CategoryID    *string                  `json:"category_id,omitempty"`
	Visibility    models.ContentVisibility `json:"visibility"`
	IsPinned      bool                     `json:"is_pinned"`
	AllowComments bool                     `json:"allow_comments"`
	AllowEditing  bool                     `json:"allow_editing"`
	CreatedBy     string                   `json:"created_by"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// CreateNoteRequest is the legacy create payload.
type CreateNoteRequest struct {
	Title      string                   `json:"title" validate:"required,max=255"`
	Content    string                   `json:"content"`
	Type       *models.NoteType         `json:"type" validate:"omitempty,oneof=TEXT MARKDOWN CHECKLIST"`
	Tags       []string                 `json:"tags"`
	CategoryID *string                  `json:"category_id"`
	Visibility models.ContentVisibility `json:"visibility" validate:"omitempty,oneof=PRIVATE FAMILY SHARED PUBLIC"`
	IsPinned   *bool                    `json:"is_pinned"`
}

// UpdateNoteRequest is the legacy update payload.
type UpdateNoteRequest struct {
	Title      *string                   `json:"title" validate:"omitempty,max=255"`
	Content    *string                   `json:"content"`
	Type       *models.NoteType          `json:"type" validate:"omitempty,oneof=TEXT MARKDOWN CHECKLIST"`
	Tags       []string                  `json:"tags"`
	CategoryID *string                   `json:"category_id"`
	Visibility *models.ContentVisibility `json:"visibility" validate:"omitempty,oneof=PRIVATE FAMILY SHARED PUBLIC"`
	IsPinned   *bool                     `json:"is_pinned"`
}

// NoteService is a thin facade over the content service that speaks the
// legacy note API. It forces the NOTE content type everywhere and never
// exposes resource fields.
type NoteService struct {
	content *ContentService
	logger  *zap.Logger
}

// NewNoteService constructs the legacy note facade.
func NewNoteService(content *ContentService, logger *zap.Logger) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{content: content, logger: logger}
}

// Create stores a legacy note.
func (s *NoteService) Create(ctx context.Context, actor access.Actor, req CreateNoteRequest) (*Note, error) {
	body := req.Content
	created, err := s.content.Create(ctx, actor, CreateContentRequest{
		ContentType: models.ContentTypeNote,
		Title:       req.Title,
		Body:        &body,
		Tags:        req.Tags,
		CategoryID:  req.CategoryID,
		Visibility:  req.Visibility,
		NoteType:    req.Type,
		IsPinned:    req.IsPinned,
	})
	if err != nil {
		return nil, err
	}
	return noteFromContent(created), nil
}

// Get loads a legacy note by ID.
func (s *NoteService) Get(ctx context.Context, actor access.Actor, id string) (*Note, error) {
	detail, err := s.content.Get(ctx, actor, id, models.ContentLoadOptions{})
	if err != nil {
		return nil, err
	}
	if !detail.Content.IsNote() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
	}
	return noteFromContent(&detail.Content), nil
}

// List returns legacy notes visible to the actor.
func (s *NoteService) List(ctx context.Context, actor access.Actor, filter models.ContentFilter) ([]Note, *models.Pagination, error) {
	filter.ContentTypes = []models.ContentType{models.ContentTypeNote}
	items, pagination, err := s.content.List(ctx, actor, filter)
	if err != nil {
		return nil, nil, err
	}
	notes := make([]Note, 0, len(items))
	for i := range items {
		notes = append(notes, *noteFromContent(&items[i].Content))
	}
	return notes, pagination, nil
}

// Update modifies a legacy note.
func (s *NoteService) Update(ctx context.Context, actor access.Actor, id string, req UpdateNoteRequest) (*Note, error) {
	if err := s.requireNote(ctx, actor, id); err != nil {
		return nil, err
	}
	updated, err := s.content.Update(ctx, actor, id, UpdateContentRequest{
		Title:      req.Title,
		Body:       req.Content,
		Tags:       req.Tags,
		CategoryID: req.CategoryID,
		Visibility: req.Visibility,
		NoteType:   req.Type,
		IsPinned:   req.IsPinned,
	})
	if err != nil {
		return nil, err
	}
	return noteFromContent(updated), nil
}

// Delete removes a legacy note.
func (s *NoteService) Delete(ctx context.Context, actor access.Actor, id string) error {
	if err := s.requireNote(ctx, actor, id); err != nil {
		return err
	}
	return s.content.Delete(ctx, actor, id)
}

// requireNote hides any non-note record from the legacy surface.
func (s *NoteService) requireNote(ctx context.Context, actor access.Actor, id string) error {
	detail, err := s.content.Get(ctx, actor, id, models.ContentLoadOptions{})
	if err != nil {
		return err
	}
	if !detail.Content.IsNote() {
		return appErrors.Clone(appErrors.ErrNotFound, "note not found")
	}
	return nil
}

func noteFromContent(c *models.Content) *Note {
	note := &Note{
		ID:            c.ID,
		Title:         c.Title,
		Type:          models.NoteTypeText,
		Tags:          c.Tags,
		CategoryID:    c.CategoryID,
		Visibility:    c.Visibility,
		IsPinned:      c.IsPinned,
		AllowComments: c.AllowComments,
		AllowEditing:  c.AllowEditing,
		CreatedBy:     c.CreatedBy,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.Body != nil {
		note.Content = *c.Body
	}
	if c.NoteType != nil {
		note.Type = *c.NoteType
	}
	return note
}
