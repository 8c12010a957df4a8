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

type mockAssignmentRepo struct {
	assignments map[string]models.ContentAssignment
	created     *models.ContentAssignment
	updated     *models.ContentAssignment
	listUser    string
	listStatus  []models.AssignmentStatus
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.ContentAssignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]models.ContentAssignment)
	}
	if assignment.ID == "" {
		assignment.ID = "new-assignment"
	}
	m.assignments[assignment.ID] = *assignment
	m.created = assignment
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.ContentAssignment, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) UpdateStatus(ctx context.Context, assignment *models.ContentAssignment) error {
	m.assignments[assignment.ID] = *assignment
	m.updated = assignment
	return nil
}

func (m *mockAssignmentRepo) ListByAssignee(ctx context.Context, userID string, statuses []models.AssignmentStatus) ([]models.AssignmentDetail, error) {
	m.listUser = userID
	m.listStatus = statuses
	return nil, nil
}

type mockAssignmentContent struct {
	contents map[string]models.Content
	flagged  []string
}

func (m *mockAssignmentContent) FindByID(ctx context.Context, id string) (*models.Content, error) {
	if c, ok := m.contents[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentContent) SetHasAssignments(ctx context.Context, id string) error {
	m.flagged = append(m.flagged, id)
	return nil
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockFamilyReader struct {
	created map[string][]string
}

func (m *mockFamilyReader) ListCreatedIDs(ctx context.Context, userID string) ([]string, error) {
	return m.created[userID], nil
}

func newAssignmentService(repo *mockAssignmentRepo, content *mockAssignmentContent, users *mockUserReader, families *mockFamilyReader) *AssignmentService {
	if families == nil {
		families = &mockFamilyReader{}
	}
	return NewAssignmentService(repo, content, &mockShareReader{}, users, families, validator.New(), zap.NewNop())
}

func noteContent(id, createdBy string) models.Content {
	return models.Content{ID: id, ContentType: models.ContentTypeNote, Title: "Task note", CreatedBy: createdBy, Visibility: models.VisibilityFamily}
}

func TestAssignmentServiceCreate(t *testing.T) {
	repo := &mockAssignmentRepo{}
	content := &mockAssignmentContent{contents: map[string]models.Content{"c1": noteContent("c1", "admin-1")}}
	users := &mockUserReader{users: map[string]*models.User{"u1": {ID: "u1", FamilyID: strPtr("fam-1")}}}
	svc := newAssignmentService(repo, content, users, nil)
	actor := access.Actor{ID: "admin-1", Role: models.RoleAdmin}

	created, err := svc.Create(context.Background(), actor, CreateAssignmentRequest{ContentID: "c1", AssignedTo: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusAssigned, created.Status)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Equal(t, "admin-1", created.AssignedBy)
	assert.Contains(t, content.flagged, "c1")
}

func TestAssignmentServiceCreateRejectsResources(t *testing.T) {
	resourceType := models.ResourceTypeArticle
	repo := &mockAssignmentRepo{}
	content := &mockAssignmentContent{contents: map[string]models.Content{
		"r1": {ID: "r1", ContentType: models.ContentTypeResource, Title: "Guide", ResourceType: &resourceType, CreatedBy: "admin-1"},
	}}
	users := &mockUserReader{users: map[string]*models.User{"u1": {ID: "u1"}}}
	svc := newAssignmentService(repo, content, users, nil)
	actor := access.Actor{ID: "admin-1", Role: models.RoleAdmin}

	_, err := svc.Create(context.Background(), actor, CreateAssignmentRequest{ContentID: "r1", AssignedTo: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceCreateHidesUnreadableContent(t *testing.T) {
	repo := &mockAssignmentRepo{}
	content := &mockAssignmentContent{contents: map[string]models.Content{
		"c1": {ID: "c1", ContentType: models.ContentTypeNote, Title: "Private note", CreatedBy: "owner", Visibility: models.VisibilityPrivate},
	}}
	users := &mockUserReader{users: map[string]*models.User{"inside": {ID: "inside", FamilyID: strPtr("fam-1")}}}
	families := &mockFamilyReader{created: map[string][]string{"vol-1": {"fam-1"}}}
	actor := access.Actor{ID: "vol-1", Role: models.RoleVolunteer}

	svc := NewAssignmentService(repo, content, &mockShareReader{}, users, families, validator.New(), zap.NewNop())
	_, err := svc.Create(context.Background(), actor, CreateAssignmentRequest{ContentID: "c1", AssignedTo: "inside"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)

	shared := content.contents["c1"]
	shared.Visibility = models.VisibilityShared
	content.contents["c1"] = shared
	shares := &mockShareReader{shares: map[string]*models.ContentShare{"c1:vol-1": {ContentID: "c1", UserID: "vol-1"}}}
	svc = NewAssignmentService(repo, content, shares, users, families, validator.New(), zap.NewNop())
	_, err = svc.Create(context.Background(), actor, CreateAssignmentRequest{ContentID: "c1", AssignedTo: "inside"})
	require.NoError(t, err)
}

func TestAssignmentServiceVolunteerScopedToCreatedFamilies(t *testing.T) {
	repo := &mockAssignmentRepo{}
	content := &mockAssignmentContent{contents: map[string]models.Content{"c1": noteContent("c1", "vol-1")}}
	users := &mockUserReader{users: map[string]*models.User{
		"inside":  {ID: "inside", FamilyID: strPtr("fam-1")},
		"outside": {ID: "outside", FamilyID: strPtr("fam-2")},
	}}
	families := &mockFamilyReader{created: map[string][]string{"vol-1": {"fam-1"}}}
	svc := newAssignmentService(repo, content, users, families)
	actor := access.Actor{ID: "vol-1", Role: models.RoleVolunteer}

	_, err := svc.Create(context.Background(), actor, CreateAssignmentRequest{ContentID: "c1", AssignedTo: "inside"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), actor, CreateAssignmentRequest{ContentID: "c1", AssignedTo: "outside"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceMemberCannotAssign(t *testing.T) {
	repo := &mockAssignmentRepo{}
	content := &mockAssignmentContent{contents: map[string]models.Content{"c1": noteContent("c1", "u1")}}
	users := &mockUserReader{users: map[string]*models.User{"u2": {ID: "u2", FamilyID: strPtr("fam-1")}}}
	svc := newAssignmentService(repo, content, users, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember, FamilyID: strPtr("fam-1")}

	_, err := svc.Create(context.Background(), actor, CreateAssignmentRequest{ContentID: "c1", AssignedTo: "u2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceStatusTransitions(t *testing.T) {
	cases := []struct {
		name string
		from models.AssignmentStatus
		to   models.AssignmentStatus
		ok   bool
	}{
		{"assigned to in progress", models.AssignmentStatusAssigned, models.AssignmentStatusInProgress, true},
		{"assigned to completed", models.AssignmentStatusAssigned, models.AssignmentStatusCompleted, true},
		{"assigned to cancelled", models.AssignmentStatusAssigned, models.AssignmentStatusCancelled, true},
		{"in progress to completed", models.AssignmentStatusInProgress, models.AssignmentStatusCompleted, true},
		{"in progress to assigned", models.AssignmentStatusInProgress, models.AssignmentStatusAssigned, false},
		{"completed immutable", models.AssignmentStatusCompleted, models.AssignmentStatusCancelled, false},
		{"cancelled immutable", models.AssignmentStatusCancelled, models.AssignmentStatusInProgress, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockAssignmentRepo{assignments: map[string]models.ContentAssignment{
				"a1": {ID: "a1", ContentID: "c1", AssignedTo: "u1", AssignedBy: "admin-1", Status: tc.from},
			}}
			svc := newAssignmentService(repo, &mockAssignmentContent{}, &mockUserReader{}, nil)
			actor := access.Actor{ID: "u1", Role: models.RoleMember}

			_, err := svc.UpdateStatus(context.Background(), actor, "a1", UpdateAssignmentStatusRequest{Status: tc.to})
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, repo.updated.Status)
			} else {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			}
		})
	}
}

func TestAssignmentServiceCompleteStampsFields(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: map[string]models.ContentAssignment{
		"a1": {ID: "a1", ContentID: "c1", AssignedTo: "u1", AssignedBy: "admin-1", Status: models.AssignmentStatusInProgress},
	}}
	svc := newAssignmentService(repo, &mockAssignmentContent{}, &mockUserReader{}, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	notes := "all done"
	updated, err := svc.UpdateStatus(context.Background(), actor, "a1", UpdateAssignmentStatusRequest{
		Status:          models.AssignmentStatusCompleted,
		CompletionNotes: &notes,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	require.NotNil(t, updated.CompletedBy)
	assert.Equal(t, "u1", *updated.CompletedBy)
	assert.Equal(t, "all done", *updated.CompletionNotes)
}

func TestAssignmentServiceStatusRestrictedToParticipants(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: map[string]models.ContentAssignment{
		"a1": {ID: "a1", ContentID: "c1", AssignedTo: "u1", AssignedBy: "admin-1", Status: models.AssignmentStatusAssigned},
	}}
	svc := newAssignmentService(repo, &mockAssignmentContent{}, &mockUserReader{}, nil)
	actor := access.Actor{ID: "bystander", Role: models.RoleMember}

	_, err := svc.UpdateStatus(context.Background(), actor, "a1", UpdateAssignmentStatusRequest{Status: models.AssignmentStatusInProgress})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceInboxValidatesStatusFilter(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentService(repo, &mockAssignmentContent{}, &mockUserReader{}, nil)
	actor := access.Actor{ID: "u1", Role: models.RoleMember}

	_, err := svc.GetAssignedTasks(context.Background(), actor, []models.AssignmentStatus{"BOGUS"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.GetAssignedTasks(context.Background(), actor, []models.AssignmentStatus{models.AssignmentStatusAssigned})
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.listUser)
}
