// Package core provides the ports consumed by the scout service layer.
package core

import (
	"context"
	"time"

	"github.com/scoutline/scout-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobRepository defines the interface for research job data operations.
//
// Ownership semantics: operations taking an owner ID return a NotFound error
// when the job does not exist and a PermissionDenied error when it exists but
// belongs to someone else. The two are never collapsed.
type JobRepository interface {
	Create(ctx context.Context, ownerID string, req *model.CreateJobRequest) (*model.ResearchJob, error)
	GetByID(ctx context.Context, id, ownerID string) (*model.ResearchJob, error)
	List(ctx context.Context, ownerID string, opts *model.JobListOptions) (*model.JobPage, error)
	Update(ctx context.Context, params UpdateJobParams) (*model.ResearchJob, error)
	Delete(ctx context.Context, id, ownerID string) error
	Stats(ctx context.Context, ownerID string) (*model.JobStats, error)

	// Worker-driven transitions. Each is guarded on the current status and
	// returns (false, nil) when the guard does not match, leaving the row
	// untouched.
	MarkProcessing(ctx context.Context, id string) (bool, error)
	CompleteWithResults(ctx context.Context, params CompleteJobParams) (bool, error)
	MarkFailed(ctx context.Context, id, errMsg string) (bool, error)

	// ArchiveCandidates returns completed jobs created at or before the
	// cutoff, capped at params.Limit per call.
	ArchiveCandidates(ctx context.Context, params ArchiveCandidatesParams) ([]*model.ResearchJob, error)
}

// UpdateJobParams groups parameters for JobRepository.Update to keep param count ≤3.
type UpdateJobParams struct {
	ID      string
	OwnerID string
	Patch   *model.JobPatch
}

// CompleteJobParams groups parameters for JobRepository.CompleteWithResults.
type CompleteJobParams struct {
	ID           string
	Results      string
	TotalSources int
}

// ArchiveCandidatesParams groups parameters for JobRepository.ArchiveCandidates.
type ArchiveCandidatesParams struct {
	OwnerID string
	Cutoff  time.Time
	Limit   int
}

// ExecutionTrigger kicks off asynchronous research for a pending job on the
// external execution worker. A trigger failure never rolls back the job row;
// the job stays pending for a later retry.
type ExecutionTrigger interface {
	TriggerExecution(ctx context.Context, jobID string) error
}

// RateLimitParams groups parameters for RateLimiter.Allow.
type RateLimitParams struct {
	// Key identifies the caller and operation class, e.g. "exec:owner-123".
	Key string
	// Limit is the number of operations permitted per window.
	Limit int
	// Window is the fixed window length.
	Window time.Duration
}

// RateLimiter enforces per-owner fixed-window limits.
type RateLimiter interface {
	// Allow reports whether the operation identified by params.Key may
	// proceed, consuming one slot from the current window when it does.
	Allow(ctx context.Context, params RateLimitParams) (bool, error)
}
