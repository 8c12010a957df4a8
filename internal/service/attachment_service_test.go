package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
)

type mockAttachmentRepo struct {
	attached   *models.ContentDocument
	detachRows int64
	shares     map[string]*models.ContentShare
	shared     *models.ContentShare
	unshareRow int64
}

func (m *mockAttachmentRepo) AttachDocument(ctx context.Context, doc *models.ContentDocument) error {
	m.attached = doc
	return nil
}

func (m *mockAttachmentRepo) DetachDocument(ctx context.Context, contentID, documentID string) (int64, error) {
	return m.detachRows, nil
}

func (m *mockAttachmentRepo) ListDocuments(ctx context.Context, contentID string) ([]models.ContentDocument, error) {
	return nil, nil
}

func (m *mockAttachmentRepo) CreateShare(ctx context.Context, share *models.ContentShare) error {
	m.shared = share
	return nil
}

func (m *mockAttachmentRepo) FindShare(ctx context.Context, contentID, userID string) (*models.ContentShare, error) {
	if s, ok := m.shares[contentID+":"+userID]; ok {
		return s, nil
	}
	return nil, nil
}

func (m *mockAttachmentRepo) DeleteShare(ctx context.Context, contentID, userID string) (int64, error) {
	return m.unshareRow, nil
}

func (m *mockAttachmentRepo) ListShares(ctx context.Context, contentID string) ([]models.ContentShare, error) {
	return nil, nil
}

type mockAttachmentContent struct {
	contents map[string]models.Content
	flagged  []string
}

func (m *mockAttachmentContent) FindByID(ctx context.Context, id string) (*models.Content, error) {
	if c, ok := m.contents[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttachmentContent) SetHasSharing(ctx context.Context, id string) error {
	m.flagged = append(m.flagged, id)
	return nil
}

type mockDocumentReader struct {
	documents map[string]*models.Document
}

func (m *mockDocumentReader) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if d, ok := m.documents[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func newAttachmentService(repo *mockAttachmentRepo, content *mockAttachmentContent, docs *mockDocumentReader, users *mockUserReader) *AttachmentService {
	if docs == nil {
		docs = &mockDocumentReader{}
	}
	if users == nil {
		users = &mockUserReader{}
	}
	return NewAttachmentService(repo, content, docs, users, validator.New(), zap.NewNop())
}

func TestAttachmentServiceAttachToNoteForcesMainOff(t *testing.T) {
	repo := &mockAttachmentRepo{}
	content := &mockAttachmentContent{contents: map[string]models.Content{"n1": noteContent("n1", "u1")}}
	docs := &mockDocumentReader{documents: map[string]*models.Document{"d1": {ID: "d1"}}}
	svc := newAttachmentService(repo, content, docs, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	attached, err := svc.AttachDocument(context.Background(), actor, "n1", AttachDocumentRequest{DocumentID: "d1", IsMain: true})
	require.NoError(t, err)
	assert.False(t, attached.IsMain)
	assert.Equal(t, "u1", attached.AttachedBy)
}

func TestAttachmentServiceAttachToResourceKeepsMain(t *testing.T) {
	repo := &mockAttachmentRepo{}
	content := &mockAttachmentContent{contents: map[string]models.Content{"r1": pendingResource("r1", "vol-1")}}
	docs := &mockDocumentReader{documents: map[string]*models.Document{"d1": {ID: "d1"}}}
	svc := newAttachmentService(repo, content, docs, nil)
	actor := access.Actor{ID: "vol-1", Role: models.RoleVolunteer}

	attached, err := svc.AttachDocument(context.Background(), actor, "r1", AttachDocumentRequest{DocumentID: "d1", IsMain: true})
	require.NoError(t, err)
	assert.True(t, attached.IsMain)
}

func TestAttachmentServiceAttachMissingDocument(t *testing.T) {
	repo := &mockAttachmentRepo{}
	content := &mockAttachmentContent{contents: map[string]models.Content{"n1": noteContent("n1", "u1")}}
	svc := newAttachmentService(repo, content, nil, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	_, err := svc.AttachDocument(context.Background(), actor, "n1", AttachDocumentRequest{DocumentID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttachmentServiceDetachMissingLink(t *testing.T) {
	repo := &mockAttachmentRepo{detachRows: 0}
	content := &mockAttachmentContent{contents: map[string]models.Content{"n1": noteContent("n1", "u1")}}
	svc := newAttachmentService(repo, content, nil, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	err := svc.DetachDocument(context.Background(), actor, "n1", "d1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttachmentServiceShareNoteDefaults(t *testing.T) {
	repo := &mockAttachmentRepo{}
	content := &mockAttachmentContent{contents: map[string]models.Content{"n1": noteContent("n1", "u1")}}
	users := &mockUserReader{users: map[string]*models.User{"u2": {ID: "u2"}}}
	svc := newAttachmentService(repo, content, nil, users)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	share, err := svc.Share(context.Background(), actor, "n1", ShareContentRequest{UserID: "u2"})
	require.NoError(t, err)
	assert.True(t, share.CanComment)
	assert.False(t, share.CanEdit)
	assert.False(t, share.CanShare)
	assert.Contains(t, content.flagged, "n1")
}

func TestAttachmentServiceShareResourceDropsPermissionBits(t *testing.T) {
	repo := &mockAttachmentRepo{}
	content := &mockAttachmentContent{contents: map[string]models.Content{"r1": pendingResource("r1", "vol-1")}}
	users := &mockUserReader{users: map[string]*models.User{"u2": {ID: "u2"}}}
	svc := newAttachmentService(repo, content, nil, users)
	actor := access.Actor{ID: "vol-1", Role: models.RoleVolunteer}

	yes := true
	share, err := svc.Share(context.Background(), actor, "r1", ShareContentRequest{UserID: "u2", CanEdit: &yes, CanComment: &yes, CanShare: &yes})
	require.NoError(t, err)
	assert.False(t, share.CanEdit)
	assert.False(t, share.CanComment)
	assert.False(t, share.CanShare)
}

func TestAttachmentServiceShareWithCreatorRejected(t *testing.T) {
	repo := &mockAttachmentRepo{}
	content := &mockAttachmentContent{contents: map[string]models.Content{"n1": noteContent("n1", "u1")}}
	svc := newAttachmentService(repo, content, nil, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	_, err := svc.Share(context.Background(), actor, "n1", ShareContentRequest{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttachmentServiceShareHiddenFromNonOwners(t *testing.T) {
	repo := &mockAttachmentRepo{}
	content := &mockAttachmentContent{contents: map[string]models.Content{
		"n1": {ID: "n1", ContentType: models.ContentTypeNote, Title: "Public note", CreatedBy: "owner", Visibility: models.VisibilityPublic},
	}}
	users := &mockUserReader{users: map[string]*models.User{"u2": {ID: "u2"}}}
	svc := newAttachmentService(repo, content, nil, users)
	actor := access.Actor{ID: "reader", Role: models.RoleMember}

	_, err := svc.Share(context.Background(), actor, "n1", ShareContentRequest{UserID: "u2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttachmentServiceUnshareMissing(t *testing.T) {
	repo := &mockAttachmentRepo{unshareRow: 0}
	content := &mockAttachmentContent{contents: map[string]models.Content{"n1": noteContent("n1", "u1")}}
	svc := newAttachmentService(repo, content, nil, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	err := svc.Unshare(context.Background(), actor, "n1", "u2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
