package model

import "time"

// JobStats summarizes an owner's recent jobs as computed by the store.
// Total is the number of jobs covered by the stats window, filled by
// whichever producer builds the stats so clients never re-derive it.
// AvgCompletionSeconds is nil when the owner has no completed jobs.
type JobStats struct {
	Pending              int      `json:"pending"`
	Processing           int      `json:"processing"`
	Completed            int      `json:"completed"`
	Failed               int      `json:"failed"`
	Total                int      `json:"total"`
	TotalSources         int      `json:"total_sources"`
	AvgCompletionSeconds *float64 `json:"avg_completion_seconds,omitempty"`
}

// AgentCount pairs an agent type with how many jobs enabled it.
type AgentCount struct {
	Agent AgentType `json:"agent"`
	Count int       `json:"count"`
}

// DailyActivity counts jobs that finished (completed or failed) on a single
// calendar day, keyed by completion time with creation time as fallback.
type DailyActivity struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// SnapshotStats is the client-side aggregate view computed over a job
// snapshot: status counts plus derived rates and rankings.
type SnapshotStats struct {
	JobStats
	SuccessRate     float64         `json:"success_rate"`
	AgentPopularity []AgentCount    `json:"agent_popularity"`
	DailyActivity   []DailyActivity `json:"daily_activity"`
}
