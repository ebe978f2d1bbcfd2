package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/domain/model"
	apperrors "github.com/scoutline/scout-api/internal/errors"
	"github.com/scoutline/scout-api/internal/service"
)

const testOwner = "owner-1"

// fakeJobRepo is an in-memory JobRepository for handler tests. It keeps the
// ownership semantics of the real repo: NotFound for missing rows,
// PermissionDenied for someone else's rows.
type fakeJobRepo struct {
	jobs map[string]*model.ResearchJob
	now  time.Time
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs: make(map[string]*model.ResearchJob),
		now:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeJobRepo) Create(
	_ context.Context,
	ownerID string,
	req *model.CreateJobRequest,
) (*model.ResearchJob, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	job := &model.ResearchJob{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Target:            req.Target,
		EnabledAgents:     req.EnabledAgents,
		PersonName:        req.PersonName,
		PersonLinkedIn:    req.PersonLinkedIn,
		AdditionalContext: req.AdditionalContext,
		Status:            model.JobStatusPending,
		CreatedAt:         f.now,
		UpdatedAt:         f.now,
	}
	f.jobs[job.ID] = job
	return job.Clone(), nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id, ownerID string) (*model.ResearchJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if job.OwnerID != ownerID {
		return nil, apperrors.PermissionDenied("job belongs to another owner")
	}
	return job.Clone(), nil
}

func (f *fakeJobRepo) List(
	_ context.Context,
	ownerID string,
	opts *model.JobListOptions,
) (*model.JobPage, error) {
	opts.Normalize()
	page := &model.JobPage{Jobs: []*model.ResearchJob{}}
	for _, job := range f.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		if opts.Status != nil && job.Status != *opts.Status {
			continue
		}
		page.Jobs = append(page.Jobs, job.Clone())
	}
	page.Total = len(page.Jobs)
	return page, nil
}

func (f *fakeJobRepo) Update(_ context.Context, params core.UpdateJobParams) (*model.ResearchJob, error) {
	if err := params.Patch.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	job, ok := f.jobs[params.ID]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", params.ID)
	}
	if job.OwnerID != params.OwnerID {
		return nil, apperrors.PermissionDenied("job belongs to another owner")
	}
	if params.Patch.Target != nil {
		job.Target = *params.Patch.Target
	}
	if params.Patch.Status != nil {
		job.Status = *params.Patch.Status
	}
	job.UpdatedAt = f.now
	return job.Clone(), nil
}

func (f *fakeJobRepo) Delete(_ context.Context, id, ownerID string) error {
	job, ok := f.jobs[id]
	if !ok {
		return apperrors.NotFoundf("job %s not found", id)
	}
	if job.OwnerID != ownerID {
		return apperrors.PermissionDenied("job belongs to another owner")
	}
	delete(f.jobs, id)
	return nil
}

func (f *fakeJobRepo) Stats(_ context.Context, ownerID string) (*model.JobStats, error) {
	stats := &model.JobStats{}
	for _, job := range f.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		switch job.Status {
		case model.JobStatusPending:
			stats.Pending++
		case model.JobStatusProcessing:
			stats.Processing++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed
	return stats, nil
}

func (f *fakeJobRepo) MarkProcessing(_ context.Context, id string) (bool, error) {
	job, ok := f.jobs[id]
	if !ok || job.Status != model.JobStatusPending {
		return false, nil
	}
	job.Status = model.JobStatusProcessing
	return true, nil
}

func (f *fakeJobRepo) CompleteWithResults(_ context.Context, params core.CompleteJobParams) (bool, error) {
	job, ok := f.jobs[params.ID]
	if !ok || job.Status != model.JobStatusProcessing {
		return false, nil
	}
	job.Status = model.JobStatusCompleted
	job.Results = &params.Results
	job.TotalSources = params.TotalSources
	completed := f.now
	job.CompletedAt = &completed
	return true, nil
}

func (f *fakeJobRepo) MarkFailed(_ context.Context, id, errMsg string) (bool, error) {
	job, ok := f.jobs[id]
	if !ok || !job.Status.Active() {
		return false, nil
	}
	job.Status = model.JobStatusFailed
	job.ErrorMessage = &errMsg
	return true, nil
}

func (f *fakeJobRepo) ArchiveCandidates(
	_ context.Context,
	params core.ArchiveCandidatesParams,
) ([]*model.ResearchJob, error) {
	var out []*model.ResearchJob
	for _, job := range f.jobs {
		if params.OwnerID != "" && job.OwnerID != params.OwnerID {
			continue
		}
		if job.Status != model.JobStatusCompleted || job.CreatedAt.After(params.Cutoff) {
			continue
		}
		out = append(out, job.Clone())
	}
	return out, nil
}

var _ core.JobRepository = (*fakeJobRepo)(nil)

// routerFixture bundles the router with the repo behind it so tests can
// seed and inspect state directly.
type routerFixture struct {
	handler http.Handler
	repo    *fakeJobRepo
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	repo := newFakeJobRepo()
	jobs, err := service.NewJobService(service.JobServiceOptions{Repo: repo})
	require.NoError(t, err)
	lifecycle, err := service.NewLifecycleService(service.LifecycleServiceOptions{Repo: repo})
	require.NoError(t, err)

	handler := NewRouter(RouterServices{
		Jobs:      jobs,
		Lifecycle: lifecycle,
		Verifier:  &DevVerifier{},
	})
	return &routerFixture{handler: handler, repo: repo}
}

// doJSON performs a request with the test owner identity and decodes the
// JSON response into out when it is non-nil.
func (f *routerFixture) doJSON(t *testing.T, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Owner-ID", testOwner)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func (f *routerFixture) seedJob(t *testing.T, ownerID string, status model.JobStatus) *model.ResearchJob {
	t.Helper()

	job, err := f.repo.Create(context.Background(), ownerID, &model.CreateJobRequest{Target: "Acme Corp"})
	require.NoError(t, err)
	f.repo.jobs[job.ID].Status = status
	return job
}
