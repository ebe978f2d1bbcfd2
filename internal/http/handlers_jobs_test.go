package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/scout-api/internal/domain/model"
)

func TestCreateJob(t *testing.T) {
	t.Run("creates a job with a completion estimate", func(t *testing.T) {
		f := newRouterFixture(t)

		var resp struct {
			model.ResearchJob
			EstimatedCompletionMinutes int `json:"estimated_completion_minutes"`
		}
		rec := f.doJSON(t, http.MethodPost, "/v1/jobs", map[string]any{
			"target":         "Acme Corp",
			"enabled_agents": []string{"market_analysis"},
		}, &resp)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, testOwner, resp.OwnerID)
		assert.Equal(t, model.JobStatusPending, resp.Status)
		assert.Equal(t, 12, resp.EstimatedCompletionMinutes)
		assert.Equal(t,
			[]model.AgentType{model.AgentCompanyDiscovery, model.AgentMarketAnalysis},
			resp.EnabledAgents,
		)
	})

	t.Run("missing target is a 400", func(t *testing.T) {
		f := newRouterFixture(t)

		var body ErrorBody
		rec := f.doJSON(t, http.MethodPost, "/v1/jobs", map[string]any{"target": "  "}, &body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", body.Error)
	})

	t.Run("unknown body fields are rejected", func(t *testing.T) {
		f := newRouterFixture(t)

		var body ErrorBody
		rec := f.doJSON(t, http.MethodPost, "/v1/jobs", map[string]any{
			"target": "Acme Corp",
			"bogus":  true,
		}, &body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_json", body.Error)
	})

	t.Run("requires an identity", func(t *testing.T) {
		f := newRouterFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetJob(t *testing.T) {
	t.Run("returns the owner's job", func(t *testing.T) {
		f := newRouterFixture(t)
		seeded := f.seedJob(t, testOwner, model.JobStatusPending)

		var resp model.ResearchJob
		rec := f.doJSON(t, http.MethodGet, "/v1/jobs/"+seeded.ID, nil, &resp)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, seeded.ID, resp.ID)
	})

	t.Run("another owner's job is a 403", func(t *testing.T) {
		f := newRouterFixture(t)
		seeded := f.seedJob(t, "someone-else", model.JobStatusPending)

		var body ErrorBody
		rec := f.doJSON(t, http.MethodGet, "/v1/jobs/"+seeded.ID, nil, &body)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "permission_denied", body.Error)
	})

	t.Run("missing job is a 404", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.doJSON(t, http.MethodGet, "/v1/jobs/0d36e345-5b40-4a7e-8c32-4f7fcb01f0ab", nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id is a 404", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.doJSON(t, http.MethodGet, "/v1/jobs/not-a-uuid", nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListJobs(t *testing.T) {
	t.Run("lists only the owner's jobs", func(t *testing.T) {
		f := newRouterFixture(t)
		f.seedJob(t, testOwner, model.JobStatusPending)
		f.seedJob(t, testOwner, model.JobStatusCompleted)
		f.seedJob(t, "someone-else", model.JobStatusPending)

		var page model.JobPage
		rec := f.doJSON(t, http.MethodGet, "/v1/jobs", nil, &page)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("filters by status", func(t *testing.T) {
		f := newRouterFixture(t)
		f.seedJob(t, testOwner, model.JobStatusPending)
		f.seedJob(t, testOwner, model.JobStatusCompleted)

		var page model.JobPage
		rec := f.doJSON(t, http.MethodGet, "/v1/jobs?status=completed", nil, &page)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, page.Total)
		assert.Equal(t, model.JobStatusCompleted, page.Jobs[0].Status)
	})

	t.Run("unknown status filter is a 400", func(t *testing.T) {
		f := newRouterFixture(t)

		var body ErrorBody
		rec := f.doJSON(t, http.MethodGet, "/v1/jobs?status=bogus", nil, &body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "status", body.Field)
	})
}

func TestUpdateJob(t *testing.T) {
	t.Run("patches the target", func(t *testing.T) {
		f := newRouterFixture(t)
		seeded := f.seedJob(t, testOwner, model.JobStatusPending)

		var resp model.ResearchJob
		rec := f.doJSON(t, http.MethodPatch, "/v1/jobs/"+seeded.ID,
			map[string]any{"target": "Beta Industries"}, &resp)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Beta Industries", resp.Target)
	})

	t.Run("empty patch is a 400", func(t *testing.T) {
		f := newRouterFixture(t)
		seeded := f.seedJob(t, testOwner, model.JobStatusPending)

		rec := f.doJSON(t, http.MethodPatch, "/v1/jobs/"+seeded.ID, map[string]any{}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteJob(t *testing.T) {
	t.Run("deletes and returns no content", func(t *testing.T) {
		f := newRouterFixture(t)
		seeded := f.seedJob(t, testOwner, model.JobStatusCompleted)

		rec := f.doJSON(t, http.MethodDelete, "/v1/jobs/"+seeded.ID, nil, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.doJSON(t, http.MethodGet, "/v1/jobs/"+seeded.ID, nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("another owner's job survives with a 403", func(t *testing.T) {
		f := newRouterFixture(t)
		seeded := f.seedJob(t, "someone-else", model.JobStatusCompleted)

		rec := f.doJSON(t, http.MethodDelete, "/v1/jobs/"+seeded.ID, nil, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, f.repo.jobs, seeded.ID)
	})
}

func TestRetryJob(t *testing.T) {
	t.Run("resets a failed job to pending", func(t *testing.T) {
		f := newRouterFixture(t)
		seeded := f.seedJob(t, testOwner, model.JobStatusFailed)

		var resp model.ResearchJob
		rec := f.doJSON(t, http.MethodPost, "/v1/jobs/"+seeded.ID+"/retry", nil, &resp)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.JobStatusPending, resp.Status)
		assert.Equal(t, seeded.ID, resp.ID)
	})

	t.Run("retrying a completed job is a 409", func(t *testing.T) {
		f := newRouterFixture(t)
		seeded := f.seedJob(t, testOwner, model.JobStatusCompleted)

		var body ErrorBody
		rec := f.doJSON(t, http.MethodPost, "/v1/jobs/"+seeded.ID+"/retry", nil, &body)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "invalid_state", body.Error)
	})
}

func TestDuplicateJob(t *testing.T) {
	f := newRouterFixture(t)
	seeded := f.seedJob(t, testOwner, model.JobStatusCompleted)

	var resp model.ResearchJob
	rec := f.doJSON(t, http.MethodPost, "/v1/jobs/"+seeded.ID+"/duplicate", nil, &resp)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEqual(t, seeded.ID, resp.ID)
	assert.Equal(t, seeded.Target, resp.Target)
	assert.Equal(t, model.JobStatusPending, resp.Status)
}

func TestArchiveJobs(t *testing.T) {
	t.Run("archives old completed jobs", func(t *testing.T) {
		f := newRouterFixture(t)
		old := f.seedJob(t, testOwner, model.JobStatusCompleted)
		kept := f.seedJob(t, testOwner, model.JobStatusPending)

		var resp struct {
			Archived int `json:"archived"`
		}
		rec := f.doJSON(t, http.MethodPost, "/v1/jobs/archive",
			map[string]any{"older_than_days": 0}, &resp)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, resp.Archived)
		assert.NotContains(t, f.repo.jobs, old.ID)
		assert.Contains(t, f.repo.jobs, kept.ID)
	})

	t.Run("negative retention is a 400", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.doJSON(t, http.MethodPost, "/v1/jobs/archive",
			map[string]any{"older_than_days": -1}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestJobStats(t *testing.T) {
	f := newRouterFixture(t)
	f.seedJob(t, testOwner, model.JobStatusPending)
	f.seedJob(t, testOwner, model.JobStatusFailed)
	f.seedJob(t, "someone-else", model.JobStatusPending)

	var stats model.JobStats
	rec := f.doJSON(t, http.MethodGet, "/v1/jobs/stats", nil, &stats)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 2, stats.Total)
	assert.Contains(t, rec.Body.String(), `"total":2`)
}
