package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/scoutline/scout-api/internal/domain/model"
	"github.com/scoutline/scout-api/internal/service"
)

const maxTargetWidth = 40

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatAgents(agents []model.AgentType) string {
	parts := make([]string, 0, len(agents))
	for _, a := range agents {
		parts = append(parts, string(a))
	}
	return strings.Join(parts, ", ")
}

func formatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func buildJobRows(jobs []*model.ResearchJob, now time.Time) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		sources := ""
		if job.TotalSources > 0 {
			sources = fmt.Sprintf("%d", job.TotalSources)
		}
		rows = append(rows, []string{
			job.ID,
			truncate(job.Target, maxTargetWidth),
			string(job.Status),
			formatAgents(job.EnabledAgents),
			sources,
			formatAge(job.CreatedAt, now),
		})
	}
	return rows
}

func buildStatsRows(stats *model.JobStats) [][]string {
	rows := [][]string{
		{"pending", fmt.Sprintf("%d", stats.Pending)},
		{"processing", fmt.Sprintf("%d", stats.Processing)},
		{"completed", fmt.Sprintf("%d", stats.Completed)},
		{"failed", fmt.Sprintf("%d", stats.Failed)},
		{"total", fmt.Sprintf("%d", stats.Total)},
		{"total sources", fmt.Sprintf("%d", stats.TotalSources)},
	}
	if stats.AvgCompletionSeconds != nil {
		rows = append(rows, []string{
			"avg completion",
			(time.Duration(*stats.AvgCompletionSeconds * float64(time.Second))).Round(time.Second).String(),
		})
	}
	return rows
}

func buildAgentPopularityRows(counts []model.AgentCount) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{string(c.Agent), fmt.Sprintf("%d", c.Count)})
	}
	return rows
}

// snapshotSummary renders the derived aggregate view over a fetched job
// snapshot: success rate, finished jobs over the trailing activity window,
// and agent popularity ranked by use.
func snapshotSummary(jobs []*model.ResearchJob, now time.Time) string {
	snap := service.ComputeSnapshotStats(jobs, now)

	finished := 0
	for _, d := range snap.DailyActivity {
		finished += d.Count
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", snap.SuccessRate)
	fmt.Fprintf(&b, "Finished in the last %d days: %d\n", len(snap.DailyActivity), finished)
	if len(snap.AgentPopularity) > 0 {
		b.WriteString(renderTable([]string{"Agent", "Jobs"}, buildAgentPopularityRows(snap.AgentPopularity),
			[]columnAlignment{alignLeft, alignRight}))
		b.WriteString("\n")
	}
	return b.String()
}

// sortJobsForWatch keeps the watch view stable between refreshes: active
// jobs first, then newest first.
func sortJobsForWatch(jobs []*model.ResearchJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		ai, aj := jobs[i].Status.Active(), jobs[j].Status.Active()
		if ai != aj {
			return ai
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
