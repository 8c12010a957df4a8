package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
	"github.com/carebridge/community-api/pkg/storage"
)

type mockDocumentRepo struct {
	documents map[string]*models.Document
	created   *models.Document
	deleted   []string
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	if m.documents == nil {
		m.documents = make(map[string]*models.Document)
	}
	m.documents[doc.ID] = doc
	m.created = doc
	return nil
}

func (m *mockDocumentRepo) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if d, ok := m.documents[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockDocumentStorage struct {
	saved   map[string][]byte
	deleted []string
}

func (m *mockDocumentStorage) SaveStream(filename string, r io.Reader) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockDocumentStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *mockDocumentStorage) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

func newDocumentService(repo *mockDocumentRepo, fs *mockDocumentStorage, cfg DocumentConfig) *DocumentService {
	signer := storage.NewSignedURLSigner("doc-secret", time.Hour)
	return NewDocumentService(repo, fs, signer, cfg, zap.NewNop())
}

func TestDocumentServiceUpload(t *testing.T) {
	repo := &mockDocumentRepo{}
	fs := &mockDocumentStorage{}
	svc := newDocumentService(repo, fs, DocumentConfig{})
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	doc, err := svc.Upload(context.Background(), actor, UploadDocumentRequest{
		FileName: "care-plan.pdf",
		MimeType: "application/pdf",
		Size:     42,
	}, bytes.NewReader([]byte("pdf bytes")))
	require.NoError(t, err)
	assert.Equal(t, "care-plan.pdf", doc.FileName)
	assert.Equal(t, "care-plan.pdf", doc.Title)
	assert.Equal(t, "u1", doc.UploadedBy)
	assert.True(t, strings.HasSuffix(doc.StoragePath, ".pdf"))
	assert.Contains(t, fs.saved, doc.StoragePath)
	require.NotNil(t, repo.created)
}

func TestDocumentServiceUploadRejectsOversize(t *testing.T) {
	svc := newDocumentService(&mockDocumentRepo{}, &mockDocumentStorage{}, DocumentConfig{MaxFileSizeBytes: 10})
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	_, err := svc.Upload(context.Background(), actor, UploadDocumentRequest{
		FileName: "big.pdf",
		MimeType: "application/pdf",
		Size:     11,
	}, bytes.NewReader(make([]byte, 11)))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceUploadRejectsDisallowedMIME(t *testing.T) {
	svc := newDocumentService(&mockDocumentRepo{}, &mockDocumentStorage{}, DocumentConfig{AllowedMIMEs: []string{"application/pdf"}})
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	_, err := svc.Upload(context.Background(), actor, UploadDocumentRequest{
		FileName: "script.sh",
		MimeType: "application/x-sh",
		Size:     5,
	}, bytes.NewReader([]byte("#!/sh")))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceSignDownloadURL(t *testing.T) {
	repo := &mockDocumentRepo{documents: map[string]*models.Document{
		"d1": {ID: "d1", FileName: "plan.pdf", StoragePath: "documents/d1.pdf", UploadedBy: "u1"},
	}}
	svc := newDocumentService(repo, &mockDocumentStorage{}, DocumentConfig{APIPrefix: "/api/v1"})

	url, expiresAt, err := svc.SignDownloadURL(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/api/v1/downloads/documents/"))
	assert.True(t, expiresAt.After(time.Now()))
}

func TestDocumentServiceDeleteRestrictedToUploader(t *testing.T) {
	repo := &mockDocumentRepo{documents: map[string]*models.Document{
		"d1": {ID: "d1", StoragePath: "documents/d1.pdf", UploadedBy: "u1"},
	}}
	fs := &mockDocumentStorage{}
	svc := newDocumentService(repo, fs, DocumentConfig{})

	err := svc.Delete(context.Background(), access.Actor{ID: "u2", Role: models.RoleMember}, "d1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), access.Actor{ID: "u1", Role: models.RoleMember}, "d1"))
	assert.Contains(t, repo.deleted, "d1")
	assert.Contains(t, fs.deleted, "documents/d1.pdf")
}
