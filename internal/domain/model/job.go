// Package model defines the core data types and structures used throughout the scout research job system.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// AgentType represents a research agent that can be enabled for a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type AgentType string

// JobStatus represents the current status of a research job.
type JobStatus string

const (
	// AgentCompanyDiscovery researches the target company itself.
	AgentCompanyDiscovery AgentType = "company_discovery"
	// AgentPersonResearch researches a named person at the target.
	AgentPersonResearch AgentType = "person_research"
	// AgentMarketAnalysis researches the target's market.
	AgentMarketAnalysis AgentType = "market_analysis"
	// AgentCompetitorResearch researches the target's competitors.
	AgentCompetitorResearch AgentType = "competitor_research"

	// JobStatusPending indicates a job is waiting to be picked up by the execution worker.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a job is currently being researched.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates a job has finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job has failed to complete.
	JobStatusFailed JobStatus = "failed"
)

// UnmarshalText implements encoding.TextUnmarshaler for AgentType to allow env and query parsing.
func (a *AgentType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	at := AgentType(v)
	if at.Valid() {
		*a = at
		return nil
	}
	return fmt.Errorf("invalid AgentType: %q", v)
}

// Valid returns true if the AgentType is valid.
func (a AgentType) Valid() bool {
	return a == AgentCompanyDiscovery || a == AgentPersonResearch ||
		a == AgentMarketAnalysis || a == AgentCompetitorResearch
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusProcessing || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Active returns true for statuses that still expect worker progress.
func (s JobStatus) Active() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// ResearchJob represents a research job with all its metadata and status information.
type ResearchJob struct {
	ID                string      `json:"id"                          db:"id"`
	OwnerID           string      `json:"owner_id"                    db:"owner_id"`
	Target            string      `json:"target"                      db:"target"`
	EnabledAgents     []AgentType `json:"enabled_agents"              db:"enabled_agents"`
	PersonName        *string     `json:"person_name,omitempty"       db:"person_name"`
	PersonLinkedIn    *string     `json:"person_linkedin,omitempty"   db:"person_linkedin"`
	AdditionalContext *string     `json:"additional_context,omitempty" db:"additional_context"`
	Status            JobStatus   `json:"status"                      db:"status"`
	Results           *string     `json:"results,omitempty"           db:"results"`
	ErrorMessage      *string     `json:"error_message,omitempty"     db:"error_message"`
	TotalSources      int         `json:"total_sources"               db:"total_sources"`
	CreatedAt         time.Time   `json:"created_at"                  db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"                  db:"updated_at"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"      db:"completed_at"`
}

// Clone returns a deep copy of the job. Pointer fields are duplicated so the
// copy can be mutated without aliasing the original.
func (j *ResearchJob) Clone() *ResearchJob {
	if j == nil {
		return nil
	}
	cp := *j
	cp.EnabledAgents = append([]AgentType(nil), j.EnabledAgents...)
	cp.PersonName = cloneStringPtr(j.PersonName)
	cp.PersonLinkedIn = cloneStringPtr(j.PersonLinkedIn)
	cp.AdditionalContext = cloneStringPtr(j.AdditionalContext)
	cp.Results = cloneStringPtr(j.Results)
	cp.ErrorMessage = cloneStringPtr(j.ErrorMessage)
	cp.CompletedAt = cloneTimePtr(j.CompletedAt)
	return &cp
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CreateJobRequest represents a request to create a new research job.
type CreateJobRequest struct {
	Target            string      `json:"target"`
	EnabledAgents     []AgentType `json:"enabled_agents,omitempty"`
	PersonName        *string     `json:"person_name,omitempty"`
	PersonLinkedIn    *string     `json:"person_linkedin,omitempty"`
	AdditionalContext *string     `json:"additional_context,omitempty"`
}

// Normalize trims the target and canonicalizes the agent set: duplicates are
// removed, company_discovery is added when missing, and the result is sorted
// for stable storage and comparison.
func (r *CreateJobRequest) Normalize() {
	r.Target = strings.TrimSpace(r.Target)
	r.EnabledAgents = NormalizeAgents(r.EnabledAgents)
}

// Validate validates the CreateJobRequest fields. Callers should Normalize first.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.Target) == "" {
		return errors.New("target is required")
	}
	for _, a := range r.EnabledAgents {
		if !a.Valid() {
			return fmt.Errorf("invalid agent type: %q", a)
		}
	}
	if hasAgent(r.EnabledAgents, AgentPersonResearch) {
		if r.PersonName == nil || strings.TrimSpace(*r.PersonName) == "" {
			return errors.New("person_name is required when person_research is enabled")
		}
	}
	return nil
}

// NormalizeAgents deduplicates and sorts an agent set, always including
// company_discovery.
func NormalizeAgents(agents []AgentType) []AgentType {
	seen := map[AgentType]bool{AgentCompanyDiscovery: true}
	for _, a := range agents {
		seen[a] = true
	}
	out := make([]AgentType, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasAgent(agents []AgentType, want AgentType) bool {
	for _, a := range agents {
		if a == want {
			return true
		}
	}
	return false
}

// JobPatch describes a partial update to a research job. Nil pointer fields
// are left untouched; Clear flags null out their column explicitly. A field
// cannot be both set and cleared.
type JobPatch struct {
	Target            *string     `json:"target,omitempty"`
	EnabledAgents     []AgentType `json:"enabled_agents,omitempty"`
	PersonName        *string     `json:"person_name,omitempty"`
	PersonLinkedIn    *string     `json:"person_linkedin,omitempty"`
	AdditionalContext *string     `json:"additional_context,omitempty"`
	Status            *JobStatus  `json:"status,omitempty"`
	Results           *string     `json:"results,omitempty"`
	ErrorMessage      *string     `json:"error_message,omitempty"`
	TotalSources      *int        `json:"total_sources,omitempty"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`

	ClearResults      bool `json:"clear_results,omitempty"`
	ClearErrorMessage bool `json:"clear_error_message,omitempty"`
	ClearCompletedAt  bool `json:"clear_completed_at,omitempty"`
}

// IsEmpty returns true when the patch would change nothing.
func (p *JobPatch) IsEmpty() bool {
	return p.Target == nil && p.EnabledAgents == nil && p.PersonName == nil &&
		p.PersonLinkedIn == nil && p.AdditionalContext == nil && p.Status == nil &&
		p.Results == nil && p.ErrorMessage == nil && p.TotalSources == nil &&
		p.CompletedAt == nil &&
		!p.ClearResults && !p.ClearErrorMessage && !p.ClearCompletedAt
}

// Validate validates the JobPatch fields.
func (p *JobPatch) Validate() error {
	if p.IsEmpty() {
		return errors.New("patch contains no changes")
	}
	if p.Target != nil && strings.TrimSpace(*p.Target) == "" {
		return errors.New("target cannot be empty")
	}
	if p.EnabledAgents != nil {
		if len(p.EnabledAgents) == 0 {
			return errors.New("enabled_agents cannot be empty")
		}
		for _, a := range p.EnabledAgents {
			if !a.Valid() {
				return fmt.Errorf("invalid agent type: %q", a)
			}
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("invalid status: %q", *p.Status)
	}
	if p.TotalSources != nil && *p.TotalSources < 0 {
		return errors.New("total_sources must be >= 0")
	}
	if p.Results != nil && p.ClearResults {
		return errors.New("results cannot be both set and cleared")
	}
	if p.ErrorMessage != nil && p.ClearErrorMessage {
		return errors.New("error_message cannot be both set and cleared")
	}
	if p.CompletedAt != nil && p.ClearCompletedAt {
		return errors.New("completed_at cannot be both set and cleared")
	}
	return nil
}
