package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/data"
	"github.com/scoutline/scout-api/internal/domain/model"
	apperrors "github.com/scoutline/scout-api/internal/errors"
	"github.com/scoutline/scout-api/internal/observability/metrics"
	"github.com/scoutline/scout-api/internal/observability/statsd"
)

// LifecycleServiceOptions groups dependencies for LifecycleService.
type LifecycleServiceOptions struct {
	Repo         core.JobRepository // Required: job repository
	Trigger      core.ExecutionTrigger
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
	Metrics      statsd.Sink // Optional: lifecycle transition metrics
}

// LifecycleService implements owner-facing lifecycle controls on top of the
// job repository: retry, duplicate, archive, and delete. It validates
// legality before touching the store so illegal requests surface as
// InvalidState instead of opaque store rejections.
type LifecycleService struct {
	repo         core.JobRepository
	trigger      core.ExecutionTrigger
	timeProvider data.TimeProvider
	logger       *slog.Logger
	metrics      statsd.Sink
}

// NewLifecycleService constructs a new LifecycleService.
func NewLifecycleService(opts LifecycleServiceOptions) (*LifecycleService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "lifecycle_service")
	}

	return &LifecycleService{
		repo:         opts.Repo,
		trigger:      opts.Trigger,
		timeProvider: opts.TimeProvider,
		logger:       logger,
		metrics:      opts.Metrics,
	}, nil
}

// MustNewLifecycleService constructs a new LifecycleService and panics on error.
func MustNewLifecycleService(opts LifecycleServiceOptions) *LifecycleService {
	svc, err := NewLifecycleService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create LifecycleService: %v", err))
	}
	return svc
}

// Retry resets a failed job to pending and re-triggers execution. The job
// keeps its identity; only the outcome fields are cleared. Jobs in any
// other status yield InvalidState.
//
// A worker racing this reset can still write a stale processing update
// onto the refreshed row; there is no concurrency token guarding against
// that lost update.
func (s *LifecycleService) Retry(ctx context.Context, id, ownerID string) (*model.ResearchJob, error) {
	job, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusFailed {
		return nil, apperrors.InvalidStatef("only failed jobs can be retried, job is %s", job.Status)
	}

	pending := model.JobStatusPending
	zero := 0
	retried, err := s.repo.Update(ctx, core.UpdateJobParams{
		ID:      id,
		OwnerID: ownerID,
		Patch: &model.JobPatch{
			Status:            &pending,
			TotalSources:      &zero,
			ClearResults:      true,
			ClearErrorMessage: true,
			ClearCompletedAt:  true,
		},
	})
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionRetry,
		Result:     retryResult(err),
		Err:        err,
	})
	if err != nil {
		return nil, fmt.Errorf("reset job for retry: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job retried", "id", id, "owner_id", ownerID)
	}

	s.retrigger(ctx, id)
	return retried, nil
}

func retryResult(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}

// retrigger kicks the execution worker. A failure leaves the job pending;
// the owner can retry again later.
func (s *LifecycleService) retrigger(ctx context.Context, jobID string) {
	if s.trigger == nil {
		return
	}
	if err := s.trigger.TriggerExecution(ctx, jobID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "execution trigger failed, job stays pending",
			"id", jobID,
			"error", err,
		)
	}
}

// Duplicate creates a fresh pending job copying the inputs of an existing
// one. Any status may be duplicated; restricting that is caller policy.
func (s *LifecycleService) Duplicate(ctx context.Context, id, ownerID string) (*model.ResearchJob, error) {
	job, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	copyReq := &model.CreateJobRequest{
		Target:            job.Target,
		EnabledAgents:     append([]model.AgentType(nil), job.EnabledAgents...),
		PersonName:        job.PersonName,
		PersonLinkedIn:    job.PersonLinkedIn,
		AdditionalContext: job.AdditionalContext,
	}

	dup, err := s.repo.Create(ctx, ownerID, copyReq)
	if err != nil {
		return nil, fmt.Errorf("duplicate job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job duplicated",
			"source_id", id,
			"id", dup.ID,
			"owner_id", ownerID,
		)
	}
	return dup, nil
}

// ArchiveParams describes one retention sweep.
type ArchiveParams struct {
	// OwnerID scopes the sweep; empty sweeps every owner (background
	// retention sweep).
	OwnerID       string
	OlderThanDays int
	// Limit caps how many jobs one sweep may delete. Zero uses the
	// repository's batch default.
	Limit int
}

// Archive deletes the owner's completed jobs created more than
// OlderThanDays ago and returns how many were removed. Per-job delete
// failures are logged and skipped so one bad row never stalls the sweep.
func (s *LifecycleService) Archive(ctx context.Context, params ArchiveParams) (int, error) {
	if params.OlderThanDays < 0 {
		return 0, apperrors.Validation("older_than_days must be >= 0")
	}

	cutoff := s.timeProvider.Now().UTC().Add(-time.Duration(params.OlderThanDays) * 24 * time.Hour)
	candidates, err := s.repo.ArchiveCandidates(ctx, core.ArchiveCandidatesParams{
		OwnerID: params.OwnerID,
		Cutoff:  cutoff,
		Limit:   params.Limit,
	})
	if err != nil {
		return 0, fmt.Errorf("find archive candidates: %w", err)
	}

	deleted := 0
	for _, job := range candidates {
		// Each candidate carries its owner, which also serves the
		// all-owners sweep.
		if delErr := s.repo.Delete(ctx, job.ID, job.OwnerID); delErr != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "archive delete failed, continuing sweep",
					"id", job.ID,
					"error", delErr,
				)
			}
			continue
		}
		deleted++
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "archive sweep finished",
			"owner_id", params.OwnerID,
			"candidates", len(candidates),
			"deleted", deleted,
		)
	}
	return deleted, nil
}

// Delete removes one of the owner's jobs.
func (s *LifecycleService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job deleted", "id", id, "owner_id", ownerID)
	}
	return nil
}
