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

type mockContentRepo struct {
	contents   map[string]models.Content
	created    *models.Content
	updated    *models.Content
	deleted    []string
	views      []string
	listFilter models.ContentFilter
	listGate   models.VisibilityGate
	listItems  []models.ContentDetail
	listTotal  int
}

func (m *mockContentRepo) Create(ctx context.Context, content *models.Content) error {
	if m.contents == nil {
		m.contents = make(map[string]models.Content)
	}
	if content.ID == "" {
		content.ID = "new-content"
	}
	m.contents[content.ID] = *content
	m.created = content
	return nil
}

func (m *mockContentRepo) FindByID(ctx context.Context, id string) (*models.Content, error) {
	if c, ok := m.contents[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockContentRepo) FindDetailByID(ctx context.Context, id string) (*models.ContentDetail, error) {
	if c, ok := m.contents[id]; ok {
		return &models.ContentDetail{Content: c}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockContentRepo) List(ctx context.Context, filter models.ContentFilter, gate models.VisibilityGate) ([]models.ContentDetail, int, error) {
	m.listFilter = filter
	m.listGate = gate
	return m.listItems, m.listTotal, nil
}

func (m *mockContentRepo) Update(ctx context.Context, content *models.Content) error {
	m.contents[content.ID] = *content
	m.updated = content
	return nil
}

func (m *mockContentRepo) SoftDelete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockContentRepo) IncrementViewCount(ctx context.Context, id string) error {
	m.views = append(m.views, id)
	return nil
}

type mockShareReader struct {
	shares map[string]*models.ContentShare
}

func (m *mockShareReader) FindShare(ctx context.Context, contentID, userID string) (*models.ContentShare, error) {
	if s, ok := m.shares[contentID+":"+userID]; ok {
		return s, nil
	}
	return nil, nil
}

func (m *mockShareReader) ListShares(ctx context.Context, contentID string) ([]models.ContentShare, error) {
	return nil, nil
}

func (m *mockShareReader) ListDocuments(ctx context.Context, contentID string) ([]models.ContentDocument, error) {
	return nil, nil
}

type mockAssignmentReader struct{}

func (m *mockAssignmentReader) ListByContent(ctx context.Context, contentID string) ([]models.ContentAssignment, error) {
	return nil, nil
}

type mockRatingReader struct{}

func (m *mockRatingReader) ListByContent(ctx context.Context, contentID string) ([]models.ContentRating, error) {
	return nil, nil
}

type mockTaxonomy struct {
	expansions map[string][]string
	requested  []string
}

func (m *mockTaxonomy) ExpandCategories(ctx context.Context, names []string) ([]string, error) {
	m.requested = names
	var tags []string
	for _, name := range names {
		tags = append(tags, m.expansions[name]...)
	}
	return tags, nil
}

func newContentService(repo *mockContentRepo, shares *mockShareReader, taxonomy *mockTaxonomy) *ContentService {
	if shares == nil {
		shares = &mockShareReader{}
	}
	if taxonomy == nil {
		taxonomy = &mockTaxonomy{}
	}
	return NewContentService(repo, shares, &mockAssignmentReader{}, &mockRatingReader{}, taxonomy, validator.New(), zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestContentServiceCreateNoteDefaults(t *testing.T) {
	repo := &mockContentRepo{}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember, FamilyID: strPtr("fam-1")}

	created, err := svc.Create(context.Background(), actor, CreateContentRequest{
		ContentType: models.ContentTypeNote,
		Title:       "Medication schedule",
	})
	require.NoError(t, err)
	require.NotNil(t, created.NoteType)
	assert.Equal(t, models.NoteTypeText, *created.NoteType)
	assert.Equal(t, models.VisibilityPrivate, created.Visibility)
	assert.True(t, created.AllowComments)
	require.NotNil(t, created.FamilyID)
	assert.Equal(t, "fam-1", *created.FamilyID)
	assert.Equal(t, "u1", created.CreatedBy)
}

func TestContentServiceCreateResourceAdminAutoApproved(t *testing.T) {
	repo := &mockContentRepo{}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "admin-1", Role: models.RoleAdmin}

	resourceType := models.ResourceTypeArticle
	created, err := svc.Create(context.Background(), actor, CreateContentRequest{
		ContentType:  models.ContentTypeResource,
		Title:        "Grief support guide",
		ResourceType: &resourceType,
	})
	require.NoError(t, err)
	require.NotNil(t, created.Status)
	assert.Equal(t, models.StatusApproved, *created.Status)
	assert.False(t, created.HasCuration)
	require.NotNil(t, created.ApprovedBy)
	assert.Equal(t, "admin-1", *created.ApprovedBy)
	assert.NotNil(t, created.ApprovedAt)
}

func TestContentServiceCreateResourceVolunteerPending(t *testing.T) {
	repo := &mockContentRepo{}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "vol-1", Role: models.RoleVolunteer}

	resourceType := models.ResourceTypeLink
	created, err := svc.Create(context.Background(), actor, CreateContentRequest{
		ContentType:  models.ContentTypeResource,
		Title:        "Hospice directory",
		ResourceType: &resourceType,
		URL:          strPtr("https://example.org/hospice"),
	})
	require.NoError(t, err)
	require.NotNil(t, created.Status)
	assert.Equal(t, models.StatusPending, *created.Status)
	assert.True(t, created.HasCuration)
	assert.Nil(t, created.ApprovedBy)
}

func TestContentServiceCreateResourceMemberForbidden(t *testing.T) {
	repo := &mockContentRepo{}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	resourceType := models.ResourceTypeArticle
	_, err := svc.Create(context.Background(), actor, CreateContentRequest{
		ContentType:  models.ContentTypeResource,
		Title:        "Not allowed",
		ResourceType: &resourceType,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestContentServiceCreateResourceRequiresType(t *testing.T) {
	repo := &mockContentRepo{}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "vol-1", Role: models.RoleVolunteer}

	_, err := svc.Create(context.Background(), actor, CreateContentRequest{
		ContentType: models.ContentTypeResource,
		Title:       "Missing type",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContentServiceGetHidesInaccessible(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Private note", CreatedBy: "owner", Visibility: models.VisibilityPrivate},
	}}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "stranger", Role: models.RoleMember}

	_, err := svc.Get(context.Background(), actor, "c1", models.ContentLoadOptions{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestContentServiceGetSharedViaShareRow(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Shared note", CreatedBy: "owner", Visibility: models.VisibilityShared},
	}}
	shares := &mockShareReader{shares: map[string]*models.ContentShare{
		"c1:reader": {ContentID: "c1", UserID: "reader"},
	}}
	svc := newContentService(repo, shares, nil)
	actor := access.Actor{ID: "reader", Role: models.RoleMember}

	detail, err := svc.Get(context.Background(), actor, "c1", models.ContentLoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Shared note", detail.Title)
}

func TestContentServiceListExpandsHealthcareCategories(t *testing.T) {
	repo := &mockContentRepo{}
	taxonomy := &mockTaxonomy{expansions: map[string][]string{
		"pain-management": {"pain", "medication", "comfort"},
	}}
	svc := newContentService(repo, nil, taxonomy)
	actor := access.Actor{ID: "u1", Role: models.RoleMember, FamilyID: strPtr("fam-1")}

	_, _, err := svc.List(context.Background(), actor, models.ContentFilter{
		HealthcareCategories: []string{"pain-management"},
		Tags:                 []string{"existing"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"existing", "pain", "medication", "comfort"}, repo.listFilter.Tags)
	assert.False(t, repo.listGate.Admin)
	assert.Equal(t, "u1", repo.listGate.ActorID)
}

func TestContentServiceListUnknownCategoryMatchesNothing(t *testing.T) {
	repo := &mockContentRepo{
		listItems: []models.ContentDetail{{Content: models.Content{ID: "c1"}}},
		listTotal: 1,
	}
	svc := newContentService(repo, nil, &mockTaxonomy{})
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	items, pagination, err := svc.List(context.Background(), actor, models.ContentFilter{
		HealthcareCategories: []string{"no-such-category"},
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pagination.TotalCount)
	assert.Empty(t, repo.listFilter.HealthcareCategories)
}

func TestContentServiceListPagination(t *testing.T) {
	repo := &mockContentRepo{listTotal: 45}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "admin-1", Role: models.RoleAdmin}

	_, pagination, err := svc.List(context.Background(), actor, models.ContentFilter{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 45, pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.True(t, repo.listGate.Admin)
}

func TestContentServiceListClampsLimit(t *testing.T) {
	repo := &mockContentRepo{listTotal: 500}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "admin-1", Role: models.RoleAdmin}

	_, pagination, err := svc.List(context.Background(), actor, models.ContentFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, pagination.PageSize)
	assert.Equal(t, 5, pagination.TotalPages)
}

func TestContentServiceUpdateStampsNoteEditor(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Old title", CreatedBy: "u1", Visibility: models.VisibilityPrivate},
	}}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	updated, err := svc.Update(context.Background(), actor, "c1", UpdateContentRequest{Title: strPtr("New title")})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	require.NotNil(t, updated.LastEditedBy)
	assert.Equal(t, "u1", *updated.LastEditedBy)
	assert.NotNil(t, updated.LastEditedAt)
}

func TestContentServiceUpdateForbiddenWhenReadable(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Public note", CreatedBy: "owner", Visibility: models.VisibilityPublic},
	}}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "reader", Role: models.RoleMember}

	_, err := svc.Update(context.Background(), actor, "c1", UpdateContentRequest{Title: strPtr("Hijack")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestContentServiceUpdateHiddenWhenUnreadable(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Private note", CreatedBy: "owner", Visibility: models.VisibilityPrivate},
	}}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "stranger", Role: models.RoleMember}

	_, err := svc.Update(context.Background(), actor, "c1", UpdateContentRequest{Title: strPtr("Hijack")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestContentServiceUpdateViaEditShare(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Care plan", CreatedBy: "owner", Visibility: models.VisibilityShared, AllowEditing: true},
	}}
	shares := &mockShareReader{shares: map[string]*models.ContentShare{
		"c1:editor": {ContentID: "c1", UserID: "editor", CanEdit: true},
	}}
	svc := newContentService(repo, shares, nil)
	actor := access.Actor{ID: "editor", Role: models.RoleMember}

	updated, err := svc.Update(context.Background(), actor, "c1", UpdateContentRequest{Title: strPtr("Revised care plan")})
	require.NoError(t, err)
	assert.Equal(t, "Revised care plan", updated.Title)
}

func TestContentServiceDeleteSoftDeletes(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Mine", CreatedBy: "u1", Visibility: models.VisibilityPrivate},
	}}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	require.NoError(t, svc.Delete(context.Background(), actor, "c1"))
	assert.Contains(t, repo.deleted, "c1")
}

func TestContentServiceDeleteForbiddenForSharedReader(t *testing.T) {
	repo := &mockContentRepo{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Not mine", CreatedBy: "owner", Visibility: models.VisibilityPublic},
	}}
	svc := newContentService(repo, nil, nil)
	actor := access.Actor{ID: "reader", Role: models.RoleMember}

	err := svc.Delete(context.Background(), actor, "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
