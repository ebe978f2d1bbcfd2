// Package data provides pgx-backed repositories for the scout job store.
package data

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scoutline/scout-api/internal/domain/model"
)

const (
	// defaultStatsWindow bounds how many recent jobs feed the stats query.
	defaultStatsWindow = 500
	// defaultArchiveBatch caps how many archive candidates one sweep fetches.
	defaultArchiveBatch = 100
)

// RepoConfig holds configuration options for the research job repository.
type RepoConfig struct {
	// StatsWindow is the number of most recent jobs covered by Stats.
	// Defaults to 500.
	StatsWindow int
	// ArchiveBatch caps ArchiveCandidates results per call. Defaults to 100.
	ArchiveBatch int
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// ResearchJobRepo provides database operations for research job management.
type ResearchJobRepo struct {
	DB           *sql.DB
	cfg          RepoConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewResearchJobRepo creates a new ResearchJobRepo instance with the given database connection and configuration.
func NewResearchJobRepo(db *sql.DB, cfg RepoConfig) *ResearchJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = defaultStatsWindow
	}
	if cfg.ArchiveBatch <= 0 {
		cfg.ArchiveBatch = defaultArchiveBatch
	}

	return &ResearchJobRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  owner_id,
  target,
  enabled_agents,
  person_name,
  person_linkedin,
  additional_context,
  status,
  results,
  error_message,
  total_sources,
  created_at,
  updated_at,
  completed_at
`

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	agents                                        []string
	personName, personLinkedIn, additionalContext sql.NullString
	results, errorMessage                         sql.NullString
	completedAt                                   sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.ResearchJob) error {
	return scanner.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Target,
		&d.agents,
		&d.personName,
		&d.personLinkedIn,
		&d.additionalContext,
		&job.Status,
		&d.results,
		&d.errorMessage,
		&job.TotalSources,
		&job.CreatedAt,
		&job.UpdatedAt,
		&d.completedAt,
	)
}

func (d *jobRowData) apply(job *model.ResearchJob) {
	job.EnabledAgents = toAgentTypes(d.agents)
	job.PersonName = cloneNullableString(d.personName)
	job.PersonLinkedIn = cloneNullableString(d.personLinkedIn)
	job.AdditionalContext = cloneNullableString(d.additionalContext)
	job.Results = cloneNullableString(d.results)
	job.ErrorMessage = cloneNullableString(d.errorMessage)
	job.CompletedAt = cloneNullableTime(d.completedAt)
}

func scanJobFromRow(scanner jobRowScanner) (*model.ResearchJob, error) {
	job := &model.ResearchJob{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

// collectJobFromRows collects a single job from pgx rows.
func collectJobFromRows(rows pgx.Rows) (*model.ResearchJob, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

func toAgentTypes(agents []string) []model.AgentType {
	out := make([]model.AgentType, len(agents))
	for i, a := range agents {
		out[i] = model.AgentType(a)
	}
	return out
}

func toAgentStrings(agents []model.AgentType) []string {
	out := make([]string, len(agents))
	for i, a := range agents {
		out[i] = string(a)
	}
	return out
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
