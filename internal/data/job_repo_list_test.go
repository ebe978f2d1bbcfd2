package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/domain/model"
	"github.com/scoutline/scout-api/internal/testutil"
)

// seedListFixture creates a deterministic set of jobs for one owner:
//
//	t+0m  "Acme Corp"        pending     [company_discovery]
//	t+1m  "Beta Industries"  processing  [company_discovery, market_analysis]
//	t+2m  "acme robotics"    completed   [company_discovery, person_research]
//	t+3m  "Delta Labs"       failed      [company_discovery]
func seedListFixture(t *testing.T, repo *ResearchJobRepo, tp *FixedTimeProvider, ownerID string) []*model.ResearchJob {
	t.Helper()
	ctx := context.Background()

	acme := mustCreateJob(t, repo, ownerID, &model.CreateJobRequest{Target: "Acme Corp"})

	tp.AddTime(time.Minute)
	beta := mustCreateJob(t, repo, ownerID, &model.CreateJobRequest{
		Target:        "Beta Industries",
		EnabledAgents: []model.AgentType{model.AgentMarketAnalysis},
	})
	ok, err := repo.MarkProcessing(ctx, beta.ID)
	require.NoError(t, err)
	require.True(t, ok)

	tp.AddTime(time.Minute)
	robotics := mustCreateJob(t, repo, ownerID, &model.CreateJobRequest{
		Target:        "acme robotics",
		EnabledAgents: []model.AgentType{model.AgentPersonResearch},
		PersonName:    testutil.StringPtr("Ada Lovelace"),
	})
	ok, err = repo.MarkProcessing(ctx, robotics.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.CompleteWithResults(ctx, core.CompleteJobParams{ID: robotics.ID, Results: "report", TotalSources: 3})
	require.NoError(t, err)
	require.True(t, ok)

	tp.AddTime(time.Minute)
	delta := mustCreateJob(t, repo, ownerID, &model.CreateJobRequest{Target: "Delta Labs"})
	ok, err = repo.MarkFailed(ctx, delta.ID, "boom")
	require.NoError(t, err)
	require.True(t, ok)

	return []*model.ResearchJob{acme, beta, robotics, delta}
}

func listTargets(page *model.JobPage) []string {
	out := make([]string, len(page.Jobs))
	for i, j := range page.Jobs {
		out[i] = j.Target
	}
	return out
}

func TestResearchJobRepo_List_Filters(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewResearchJobRepo(db, RepoConfig{TimeProvider: tp})
		ctx := context.Background()
		seedListFixture(t, repo, tp, "owner-1")

		// another owner's job must never appear
		_ = mustCreateJob(t, repo, "owner-2", &model.CreateJobRequest{Target: "Acme Shadow"})

		t.Run("no filters returns everything newest first", func(t *testing.T) {
			page, err := repo.List(ctx, "owner-1", nil)
			require.NoError(t, err)
			assert.Equal(t, 4, page.Total)
			assert.Equal(t, []string{"Delta Labs", "acme robotics", "Beta Industries", "Acme Corp"}, listTargets(page))
		})

		t.Run("status filter", func(t *testing.T) {
			status := model.JobStatusFailed
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{Status: &status})
			require.NoError(t, err)
			assert.Equal(t, 1, page.Total)
			assert.Equal(t, []string{"Delta Labs"}, listTargets(page))
		})

		t.Run("target search is case insensitive substring", func(t *testing.T) {
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{TargetSearch: "ACME"})
			require.NoError(t, err)
			assert.Equal(t, 2, page.Total)
			assert.ElementsMatch(t, []string{"Acme Corp", "acme robotics"}, listTargets(page))
		})

		t.Run("created range is inclusive on both ends", func(t *testing.T) {
			after := testutil.TestTime().Add(time.Minute)
			before := testutil.TestTime().Add(2 * time.Minute)
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{
				CreatedAfter:  &after,
				CreatedBefore: &before,
			})
			require.NoError(t, err)
			assert.Equal(t, 2, page.Total)
			assert.ElementsMatch(t, []string{"Beta Industries", "acme robotics"}, listTargets(page))
		})

		t.Run("agent containment filter", func(t *testing.T) {
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{
				Agents: []model.AgentType{model.AgentMarketAnalysis},
			})
			require.NoError(t, err)
			assert.Equal(t, 1, page.Total)
			assert.Equal(t, []string{"Beta Industries"}, listTargets(page))
		})

		t.Run("company_discovery matches every job", func(t *testing.T) {
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{
				Agents: []model.AgentType{model.AgentCompanyDiscovery},
			})
			require.NoError(t, err)
			assert.Equal(t, 4, page.Total)
		})

		t.Run("combined filters intersect", func(t *testing.T) {
			status := model.JobStatusCompleted
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{
				Status:       &status,
				TargetSearch: "acme",
			})
			require.NoError(t, err)
			assert.Equal(t, 1, page.Total)
			assert.Equal(t, []string{"acme robotics"}, listTargets(page))
		})

		t.Run("no matches yields empty page with zero total", func(t *testing.T) {
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{TargetSearch: "nonexistent"})
			require.NoError(t, err)
			assert.Zero(t, page.Total)
			assert.Empty(t, page.Jobs)
			assert.NotNil(t, page.Jobs)
		})
	})
}

func TestResearchJobRepo_List_Sorting(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewResearchJobRepo(db, RepoConfig{TimeProvider: tp})
		ctx := context.Background()
		seedListFixture(t, repo, tp, "owner-1")

		tests := []struct {
			name string
			sort model.JobSort
			want []string
		}{
			{
				name: "newest",
				sort: model.JobSortNewest,
				want: []string{"Delta Labs", "acme robotics", "Beta Industries", "Acme Corp"},
			},
			{
				name: "oldest",
				sort: model.JobSortOldest,
				want: []string{"Acme Corp", "Beta Industries", "acme robotics", "Delta Labs"},
			},
			{
				name: "status priority",
				sort: model.JobSortStatus,
				want: []string{"Acme Corp", "Beta Industries", "Delta Labs", "acme robotics"},
			},
			{
				name: "target ignores case",
				sort: model.JobSortTarget,
				want: []string{"Acme Corp", "acme robotics", "Beta Industries", "Delta Labs"},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				page, err := repo.List(ctx, "owner-1", &model.JobListOptions{Sort: tt.sort})
				require.NoError(t, err)
				assert.Equal(t, tt.want, listTargets(page))
			})
		}
	})
}

func TestResearchJobRepo_List_Pagination(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewResearchJobRepo(db, RepoConfig{TimeProvider: tp})
		ctx := context.Background()
		seedListFixture(t, repo, tp, "owner-1")

		t.Run("limit and offset page through oldest first", func(t *testing.T) {
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{
				Sort:  model.JobSortOldest,
				Limit: 2,
			})
			require.NoError(t, err)
			assert.Equal(t, 4, page.Total)
			assert.Equal(t, []string{"Acme Corp", "Beta Industries"}, listTargets(page))

			page, err = repo.List(ctx, "owner-1", &model.JobListOptions{
				Sort:   model.JobSortOldest,
				Limit:  2,
				Offset: 2,
			})
			require.NoError(t, err)
			assert.Equal(t, 4, page.Total)
			assert.Equal(t, []string{"acme robotics", "Delta Labs"}, listTargets(page))
		})

		t.Run("offset past the end keeps total accurate", func(t *testing.T) {
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{
				Limit:  2,
				Offset: 10,
			})
			require.NoError(t, err)
			assert.Empty(t, page.Jobs)
			assert.Equal(t, 4, page.Total)
		})

		t.Run("oversized limit is clamped", func(t *testing.T) {
			page, err := repo.List(ctx, "owner-1", &model.JobListOptions{Limit: 10000})
			require.NoError(t, err)
			assert.Len(t, page.Jobs, 4)
		})
	})
}
