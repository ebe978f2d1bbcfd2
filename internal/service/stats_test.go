package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/scout-api/internal/domain/model"
	"github.com/scoutline/scout-api/internal/testutil"
)

func statJob(status model.JobStatus, agents ...model.AgentType) *model.ResearchJob {
	job := pendingJob("job", "owner-1")
	job.Status = status
	if len(agents) > 0 {
		job.EnabledAgents = agents
	}
	return job
}

func completedIn(d time.Duration, sources int) *model.ResearchJob {
	job := statJob(model.JobStatusCompleted)
	job.TotalSources = sources
	done := job.CreatedAt.Add(d)
	job.CompletedAt = &done
	return job
}

func TestComputeJobStats(t *testing.T) {
	t.Run("empty snapshot", func(t *testing.T) {
		s := ComputeJobStats(nil)
		assert.Zero(t, s.Total)
		assert.Zero(t, s.TotalSources)
		assert.Nil(t, s.AvgCompletionSeconds)
	})

	t.Run("counts and averages", func(t *testing.T) {
		jobs := []*model.ResearchJob{
			statJob(model.JobStatusPending),
			statJob(model.JobStatusProcessing),
			statJob(model.JobStatusFailed),
			completedIn(60*time.Second, 5),
			completedIn(120*time.Second, 7),
		}

		s := ComputeJobStats(jobs)
		assert.Equal(t, 1, s.Pending)
		assert.Equal(t, 1, s.Processing)
		assert.Equal(t, 2, s.Completed)
		assert.Equal(t, 1, s.Failed)
		assert.Equal(t, 5, s.Total)
		assert.Equal(t, 12, s.TotalSources)
		require.NotNil(t, s.AvgCompletionSeconds)
		assert.InDelta(t, 90.0, *s.AvgCompletionSeconds, 0.001)
	})

	t.Run("completed job without stamp is excluded from the average", func(t *testing.T) {
		degraded := statJob(model.JobStatusCompleted) // no completed_at
		s := ComputeJobStats([]*model.ResearchJob{degraded})
		assert.Equal(t, 1, s.Completed)
		assert.Nil(t, s.AvgCompletionSeconds)
	})
}

func TestComputeSuccessRate(t *testing.T) {
	tests := []struct {
		name string
		jobs []*model.ResearchJob
		want float64
	}{
		{
			name: "no finished jobs",
			jobs: []*model.ResearchJob{statJob(model.JobStatusPending)},
			want: 0,
		},
		{
			name: "all completed",
			jobs: []*model.ResearchJob{completedIn(time.Minute, 0)},
			want: 100,
		},
		{
			name: "three of four",
			jobs: []*model.ResearchJob{
				completedIn(time.Minute, 0),
				completedIn(time.Minute, 0),
				completedIn(time.Minute, 0),
				statJob(model.JobStatusFailed),
				statJob(model.JobStatusPending),
			},
			want: 75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeSuccessRate(tt.jobs), 0.001)
		})
	}
}

func TestComputeAgentPopularity(t *testing.T) {
	jobs := []*model.ResearchJob{
		statJob(model.JobStatusPending, model.AgentCompanyDiscovery, model.AgentMarketAnalysis),
		statJob(model.JobStatusPending, model.AgentCompanyDiscovery, model.AgentPersonResearch),
		statJob(model.JobStatusPending, model.AgentCompanyDiscovery, model.AgentMarketAnalysis),
	}

	got := ComputeAgentPopularity(jobs)
	require.Len(t, got, 3)
	assert.Equal(t, model.AgentCount{Agent: model.AgentCompanyDiscovery, Count: 3}, got[0])
	assert.Equal(t, model.AgentCount{Agent: model.AgentMarketAnalysis, Count: 2}, got[1])
	assert.Equal(t, model.AgentCount{Agent: model.AgentPersonResearch, Count: 1}, got[2])

	t.Run("ties break alphabetically", func(t *testing.T) {
		tied := []*model.ResearchJob{
			statJob(model.JobStatusPending, model.AgentPersonResearch),
			statJob(model.JobStatusPending, model.AgentCompetitorResearch),
		}
		got := ComputeAgentPopularity(tied)
		require.Len(t, got, 2)
		assert.Equal(t, model.AgentCompetitorResearch, got[0].Agent)
		assert.Equal(t, model.AgentPersonResearch, got[1].Agent)
	})

	t.Run("empty snapshot", func(t *testing.T) {
		assert.Empty(t, ComputeAgentPopularity(nil))
	})
}

func TestComputeDailyActivity(t *testing.T) {
	now := testutil.TestTime() // 2024-01-01T12:00:00Z

	jobOn := func(status model.JobStatus, created time.Time, completed *time.Time) *model.ResearchJob {
		job := statJob(status)
		job.CreatedAt = created
		job.CompletedAt = completed
		return job
	}

	t.Run("dense trailing window", func(t *testing.T) {
		got := ComputeDailyActivity(nil, now)
		require.Len(t, got, 30)
		assert.Equal(t, time.Date(2023, 12, 3, 0, 0, 0, 0, time.UTC), got[0].Day)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[29].Day)
		for _, day := range got {
			assert.Zero(t, day.Count)
		}
	})

	t.Run("completed_at wins over created_at", func(t *testing.T) {
		created := now.AddDate(0, 0, -10)
		done := now.AddDate(0, 0, -2)
		jobs := []*model.ResearchJob{jobOn(model.JobStatusCompleted, created, &done)}

		got := ComputeDailyActivity(jobs, now)
		byDay := make(map[time.Time]int)
		for _, d := range got {
			byDay[d.Day] = d.Count
		}
		assert.Equal(t, 1, byDay[time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC)])
		assert.Zero(t, byDay[time.Date(2023, 12, 22, 0, 0, 0, 0, time.UTC)])
	})

	t.Run("failed jobs count on their creation day", func(t *testing.T) {
		jobs := []*model.ResearchJob{jobOn(model.JobStatusFailed, now.AddDate(0, 0, -3), nil)}

		got := ComputeDailyActivity(jobs, now)
		byDay := make(map[time.Time]int)
		for _, d := range got {
			byDay[d.Day] = d.Count
		}
		assert.Equal(t, 1, byDay[time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC)])
	})

	t.Run("activity outside the window is dropped", func(t *testing.T) {
		old := jobOn(model.JobStatusFailed, now.AddDate(0, 0, -40), nil)
		today := jobOn(model.JobStatusFailed, now, nil)
		got := ComputeDailyActivity([]*model.ResearchJob{old, today}, now)

		total := 0
		for _, d := range got {
			total += d.Count
		}
		assert.Equal(t, 1, total)
	})

	t.Run("pending and processing jobs are not activity", func(t *testing.T) {
		jobs := []*model.ResearchJob{
			jobOn(model.JobStatusPending, now, nil),
			jobOn(model.JobStatusProcessing, now.AddDate(0, 0, -1), nil),
		}

		got := ComputeDailyActivity(jobs, now)
		for _, d := range got {
			assert.Zero(t, d.Count)
		}
	})
}

func TestComputeSnapshotStats(t *testing.T) {
	jobs := []*model.ResearchJob{
		completedIn(time.Minute, 3),
		statJob(model.JobStatusFailed),
		statJob(model.JobStatusPending),
	}

	got := ComputeSnapshotStats(jobs, testutil.TestTime())
	assert.Equal(t, 1, got.Completed)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 1, got.Pending)
	assert.Equal(t, 3, got.Total)
	assert.InDelta(t, 50.0, got.SuccessRate, 0.001)
	assert.NotEmpty(t, got.AgentPopularity)
	assert.Len(t, got.DailyActivity, 30)
}
