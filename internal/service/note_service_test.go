package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
)

func newNoteService(repo *mockContentRepo) *NoteService {
	return NewNoteService(newContentService(repo, nil, nil), zap.NewNop())
}

func TestNoteServiceCreateMapsLegacyShape(t *testing.T) {
	repo := &mockContentRepo{}
	svc := newNoteService(repo)
	actor := access.Actor{ID: "u1", Role: models.RoleMember, FamilyID: strPtr("fam-1")}

	note, err := svc.Create(context.Background(), actor, CreateNoteRequest{
		Title:   "Visit summary",
		Content: "Patient was comfortable today.",
		Tags:    []string{"visit"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Visit summary", note.Title)
	assert.Equal(t, "Patient was comfortable today.", note.Content)
	assert.Equal(t, models.NoteTypeText, note.Type)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.ContentTypeNote, repo.created.ContentType)
	require.NotNil(t, repo.created.Body)
	assert.Equal(t, "Patient was comfortable today.", *repo.created.Body)
}

func TestNoteServiceGetHidesResources(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"r1": pendingResource("r1", "u1"),
	}}
	svc := newNoteService(repo)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	_, err := svc.Get(context.Background(), actor, "r1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNoteServiceListForcesNoteFilter(t *testing.T) {
	repo := &mockContentRepo{}
	svc := newNoteService(repo)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	_, _, err := svc.List(context.Background(), actor, models.ContentFilter{ContentTypes: []models.ContentType{models.ContentTypeResource}})
	require.NoError(t, err)
	assert.Equal(t, []models.ContentType{models.ContentTypeNote}, repo.listFilter.ContentTypes)
}

func TestNoteServiceUpdateRewritesBody(t *testing.T) {
	body := "old text"
	repo := &mockContentRepo{contents: map[string]models.Content{
		"n1": {ID: "n1", ContentType: models.ContentTypeNote, Title: "Note", Body: &body, CreatedBy: "u1", Visibility: models.VisibilityPrivate},
	}}
	svc := newNoteService(repo)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	note, err := svc.Update(context.Background(), actor, "n1", UpdateNoteRequest{Content: strPtr("new text")})
	require.NoError(t, err)
	assert.Equal(t, "new text", note.Content)
}

func TestNoteServiceDeleteGuardsNonNotes(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"r1": pendingResource("r1", "u1"),
	}}
	svc := newNoteService(repo)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	err := svc.Delete(context.Background(), actor, "r1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
