package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	"github.com/carebridge/community-api/internal/repository"
	appErrors "github.com/carebridge/community-api/pkg/errors"
	"github.com/carebridge/community-api/pkg/jobs"
)

type mockReportJobStore struct {
	jobs    map[string]models.ReportJob
	created *models.ReportJob
	updates map[string][]repository.UpdateReportJobParams
}

func (m *mockReportJobStore) Create(ctx context.Context, job *models.ReportJob) error {
	if m.jobs == nil {
		m.jobs = make(map[string]models.ReportJob)
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	m.jobs[job.ID] = *job
	m.created = job
	return nil
}

func (m *mockReportJobStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportJobStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	if m.updates == nil {
		m.updates = make(map[string][]repository.UpdateReportJobParams)
	}
	m.updates[id] = append(m.updates[id], params)
	if j, ok := m.jobs[id]; ok {
		if params.Status != nil {
			j.Status = *params.Status
		}
		if params.ResultURL != nil {
			j.ResultURL = params.ResultURL
		}
		if params.ErrorMessage != nil {
			j.ErrorMessage = params.ErrorMessage
		}
		if params.FinishedAt != nil {
			j.FinishedAt = params.FinishedAt
		}
		m.jobs[id] = j
	}
	return nil
}

func (m *mockReportJobStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, j := range m.jobs {
		if j.Status == models.ReportStatusQueued {
			queued = append(queued, j)
		}
	}
	return queued, nil
}

func (m *mockReportJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockGenerator struct {
	result *ExportResult
	err    error
}

func (m *mockGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	return m.result, m.err
}

func newReportService(repo *mockReportJobStore, families *mockFamilyReader, queue *mockDispatcher) *ReportService {
	if families == nil {
		families = &mockFamilyReader{}
	}
	return NewReportService(repo, families, queue, nil, zap.NewNop(), ReportServiceConfig{})
}

func TestReportServiceCreateJobEnqueues(t *testing.T) {
	repo := &mockReportJobStore{}
	queue := &mockDispatcher{}
	svc := newReportService(repo, nil, queue)
	actor := access.Actor{ID: "admin-1", Role: models.RoleAdmin}

	resp, err := svc.CreateJob(context.Background(), actor, ReportRequest{
		Type:   models.ReportTypeAssignments,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
	assert.Equal(t, "assignments", queue.enqueued[0].Type)
}

func TestReportServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	repo := &mockReportJobStore{}
	queue := &mockDispatcher{err: errors.New("queue down")}
	svc := newReportService(repo, nil, queue)
	actor := access.Actor{ID: "admin-1", Role: models.RoleAdmin}

	_, err := svc.CreateJob(context.Background(), actor, ReportRequest{
		Type:   models.ReportTypeAssignments,
		Format: models.ReportFormatPDF,
	})
	require.Error(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.ReportStatusFailed, repo.jobs[repo.created.ID].Status)
}

func TestReportServiceCurationReportAdminOnly(t *testing.T) {
	svc := newReportService(&mockReportJobStore{}, nil, &mockDispatcher{})

	_, err := svc.CreateJob(context.Background(), access.Actor{ID: "vol-1", Role: models.RoleVolunteer}, ReportRequest{
		Type:   models.ReportTypeCuration,
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceVolunteerScopedToCreatedFamilies(t *testing.T) {
	families := &mockFamilyReader{created: map[string][]string{"vol-1": {"fam-1"}}}
	svc := newReportService(&mockReportJobStore{}, families, &mockDispatcher{})
	actor := access.Actor{ID: "vol-1", Role: models.RoleVolunteer}

	_, err := svc.CreateJob(context.Background(), actor, ReportRequest{
		Type:     models.ReportTypeAssignments,
		Format:   models.ReportFormatCSV,
		FamilyID: strPtr("fam-1"),
	})
	require.NoError(t, err)

	_, err = svc.CreateJob(context.Background(), actor, ReportRequest{
		Type:     models.ReportTypeAssignments,
		Format:   models.ReportFormatCSV,
		FamilyID: strPtr("fam-2"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceMemberCannotRequestReports(t *testing.T) {
	svc := newReportService(&mockReportJobStore{}, nil, &mockDispatcher{})

	_, err := svc.CreateJob(context.Background(), access.Actor{ID: "u1", Role: models.RoleMember}, ReportRequest{
		Type:   models.ReportTypeAssignments,
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceGetStatusOwnershipGate(t *testing.T) {
	repo := &mockReportJobStore{jobs: map[string]models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeAssignments, Status: models.ReportStatusProcessing, CreatedBy: "vol-1"},
	}}
	svc := newReportService(repo, nil, &mockDispatcher{})

	status, err := svc.GetStatus(context.Background(), access.Actor{ID: "vol-1", Role: models.RoleVolunteer}, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, status.Status)

	_, err = svc.GetStatus(context.Background(), access.Actor{ID: "vol-2", Role: models.RoleVolunteer}, "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.GetStatus(context.Background(), access.Actor{ID: "admin-1", Role: models.RoleAdmin}, "job-1")
	require.NoError(t, err)
}

func TestReportWorkerFinishesJob(t *testing.T) {
	repo := &mockReportJobStore{jobs: map[string]models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeCuration, Status: models.ReportStatusQueued, CreatedBy: "admin-1"},
	}}
	generator := &mockGenerator{result: &ExportResult{URL: "/api/v1/downloads/reports/tok"}}
	worker := NewReportWorker(repo, generator, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/downloads/reports/tok", *job.ResultURL)
	assert.NotNil(t, job.FinishedAt)
}

func TestReportWorkerRetriesThenFails(t *testing.T) {
	repo := &mockReportJobStore{jobs: map[string]models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeCuration, Status: models.ReportStatusQueued, CreatedBy: "admin-1"},
	}}
	generator := &mockGenerator{err: errors.New("render failed")}
	worker := NewReportWorker(repo, generator, 2, zap.NewNop())

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0}))
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "render failed", *job.ErrorMessage)
}
