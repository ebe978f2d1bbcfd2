package model

import "time"

// JobSort selects the ordering for job listings.
type JobSort string

const (
	// JobSortNewest orders by created_at descending (default).
	JobSortNewest JobSort = "newest"
	// JobSortOldest orders by created_at ascending.
	JobSortOldest JobSort = "oldest"
	// JobSortStatus orders pending, processing, failed, completed, then newest within each.
	JobSortStatus JobSort = "status"
	// JobSortTarget orders by target name A-Z.
	JobSortTarget JobSort = "target"
)

// Valid returns true if the JobSort is a known ordering.
func (s JobSort) Valid() bool {
	return s == JobSortNewest || s == JobSortOldest || s == JobSortStatus || s == JobSortTarget
}

const (
	// DefaultJobListLimit is applied when no limit is requested.
	DefaultJobListLimit = 50
	// MaxJobListLimit caps a single page of results.
	MaxJobListLimit = 200
)

// JobListOptions groups parameters for listing an owner's jobs with optional filters.
type JobListOptions struct {
	Status        *JobStatus  // Optional filter by status
	CreatedAfter  *time.Time  // Optional inclusive lower bound on created_at
	CreatedBefore *time.Time  // Optional inclusive upper bound on created_at
	TargetSearch  string      // Optional case-insensitive substring match on target
	Agents        []AgentType // Optional filter: jobs whose agent set contains all of these
	Sort          JobSort     // Ordering (default: newest)
	Limit         int         // Pagination limit (default 50, max 200)
	Offset        int         // Pagination offset
}

// Normalize clamps pagination and defaults the sort order.
func (o *JobListOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = DefaultJobListLimit
	}
	if o.Limit > MaxJobListLimit {
		o.Limit = MaxJobListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if !o.Sort.Valid() {
		o.Sort = JobSortNewest
	}
}

// JobPage is one page of a filtered listing together with the total number of
// rows matching the filters.
type JobPage struct {
	Jobs  []*ResearchJob `json:"jobs"`
	Total int            `json:"total"`
}
