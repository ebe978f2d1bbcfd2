package service

import (
	"sort"
	"time"

	"github.com/scoutline/scout-api/internal/domain/model"
)

// dailyActivityDays is the trailing window covered by ComputeDailyActivity.
const dailyActivityDays = 30

// ComputeSnapshotStats derives the full client-side aggregate view from a
// job snapshot. Pure function; the input is never mutated.
func ComputeSnapshotStats(jobs []*model.ResearchJob, now time.Time) *model.SnapshotStats {
	return &model.SnapshotStats{
		JobStats:        ComputeJobStats(jobs),
		SuccessRate:     ComputeSuccessRate(jobs),
		AgentPopularity: ComputeAgentPopularity(jobs),
		DailyActivity:   ComputeDailyActivity(jobs, now),
	}
}

// ComputeJobStats counts jobs per status, sums sources, and averages the
// completion duration. The average is nil when no job carries both stamps.
func ComputeJobStats(jobs []*model.ResearchJob) model.JobStats {
	var s model.JobStats
	var completionSum float64
	var completionN int

	for _, j := range jobs {
		switch j.Status {
		case model.JobStatusPending:
			s.Pending++
		case model.JobStatusProcessing:
			s.Processing++
		case model.JobStatusCompleted:
			s.Completed++
		case model.JobStatusFailed:
			s.Failed++
		}
		s.TotalSources += j.TotalSources

		if j.Status == model.JobStatusCompleted && j.CompletedAt != nil {
			completionSum += j.CompletedAt.Sub(j.CreatedAt).Seconds()
			completionN++
		}
	}

	if completionN > 0 {
		avg := completionSum / float64(completionN)
		s.AvgCompletionSeconds = &avg
	}
	s.Total = s.Pending + s.Processing + s.Completed + s.Failed
	return s
}

// ComputeSuccessRate returns completed/(completed+failed) as a percentage.
// With no finished jobs the rate is 0, not NaN.
func ComputeSuccessRate(jobs []*model.ResearchJob) float64 {
	var completed, failed int
	for _, j := range jobs {
		switch j.Status {
		case model.JobStatusCompleted:
			completed++
		case model.JobStatusFailed:
			failed++
		}
	}

	finished := completed + failed
	if finished == 0 {
		return 0
	}
	return float64(completed) / float64(finished) * 100
}

// ComputeAgentPopularity ranks agent types by how many jobs enabled them,
// most popular first. Ties break alphabetically so the order is stable.
func ComputeAgentPopularity(jobs []*model.ResearchJob) []model.AgentCount {
	counts := make(map[model.AgentType]int)
	for _, j := range jobs {
		for _, agent := range j.EnabledAgents {
			counts[agent]++
		}
	}

	out := make([]model.AgentCount, 0, len(counts))
	for agent, n := range counts {
		out = append(out, model.AgentCount{Agent: agent, Count: n})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Count != out[k].Count {
			return out[i].Count > out[k].Count
		}
		return out[i].Agent < out[k].Agent
	})
	return out
}

// ComputeDailyActivity buckets finished jobs by calendar day over the
// trailing 30 days ending at now. Only completed and failed jobs count as
// activity; a job lands on its completion day when it has one, otherwise on
// its creation day (failed jobs carry no completion stamp). Days without
// activity are included with a zero count so charts get a dense series.
func ComputeDailyActivity(jobs []*model.ResearchJob, now time.Time) []model.DailyActivity {
	end := startOfDay(now.UTC())
	start := end.AddDate(0, 0, -(dailyActivityDays - 1))

	counts := make(map[time.Time]int, dailyActivityDays)
	for _, j := range jobs {
		if j.Status != model.JobStatusCompleted && j.Status != model.JobStatusFailed {
			continue
		}
		stamp := j.CreatedAt
		if j.CompletedAt != nil {
			stamp = *j.CompletedAt
		}
		day := startOfDay(stamp.UTC())
		if day.Before(start) || day.After(end) {
			continue
		}
		counts[day]++
	}

	out := make([]model.DailyActivity, 0, dailyActivityDays)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		out = append(out, model.DailyActivity{Day: day, Count: counts[day]})
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
