// Package service provides business logic services for the scout research job system.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/domain/model"
	apperrors "github.com/scoutline/scout-api/internal/errors"
	"github.com/scoutline/scout-api/internal/observability/metrics"
	"github.com/scoutline/scout-api/internal/observability/statsd"
)

const (
	// DefaultExecutionLimit caps execution-class operations per owner per window.
	DefaultExecutionLimit = 5
	// DefaultReadLimit caps read-class operations per owner per window.
	DefaultReadLimit = 60
	// DefaultRateWindow is the fixed rate-limit window length.
	DefaultRateWindow = time.Hour
)

// RateLimits holds per-owner operation budgets for one window.
type RateLimits struct {
	Execution int
	Read      int
	Window    time.Duration
}

// DefaultRateLimits returns the standard per-owner budgets.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Execution: DefaultExecutionLimit,
		Read:      DefaultReadLimit,
		Window:    DefaultRateWindow,
	}
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo    core.JobRepository // Required: job repository
	Trigger core.ExecutionTrigger
	Limiter core.RateLimiter
	Limits  *RateLimits // Optional: override default budgets
	Logger  *slog.Logger
	Metrics statsd.Sink // Optional: lifecycle transition metrics
}

// JobService provides business logic for research job operations.
//
// This service manages:
// - Job creation with an asynchronous execution kick-off
// - Owner-scoped reads, listing, patch updates, and stats
// - Worker-driven status transitions
// - Per-owner rate limiting of execution and read classes.
type JobService struct {
	repo    core.JobRepository
	trigger core.ExecutionTrigger
	limiter core.RateLimiter
	limits  RateLimits
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	limits := DefaultRateLimits()
	if opts.Limits != nil {
		limits = *opts.Limits
	}
	if limits.Window <= 0 {
		limits.Window = DefaultRateWindow
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:    opts.Repo,
		trigger: opts.Trigger,
		limiter: opts.Limiter,
		limits:  limits,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// allowExecution consumes one execution-class slot for the owner.
func (s *JobService) allowExecution(ctx context.Context, ownerID string) error {
	return s.allow(ctx, core.RateLimitParams{
		Key:    "exec:" + ownerID,
		Limit:  s.limits.Execution,
		Window: s.limits.Window,
	})
}

// allowRead consumes one read-class slot for the owner.
func (s *JobService) allowRead(ctx context.Context, ownerID string) error {
	return s.allow(ctx, core.RateLimitParams{
		Key:    "reads:" + ownerID,
		Limit:  s.limits.Read,
		Window: s.limits.Window,
	})
}

func (s *JobService) allow(ctx context.Context, params core.RateLimitParams) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, params)
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return apperrors.RateLimited("Rate limit exceeded. Please try again later.")
	}
	return nil
}

// emitTransition records one lifecycle metric. A guarded transition that did
// not match tags the sample as a no-op so misbehaving workers show up on
// dashboards.
func (s *JobService) emitTransition(transition string, ok bool, err error) {
	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
	case !ok:
		result = metrics.ResultNoop
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: transition,
		Result:     result,
		Err:        err,
	})
}

// Create creates a new research job and kicks off asynchronous execution.
// A trigger failure is not fatal: the job stays pending for a later retry.
func (s *JobService) Create(ctx context.Context, ownerID string, req *model.CreateJobRequest) (*model.ResearchJob, error) {
	if err := s.allowExecution(ctx, ownerID); err != nil {
		return nil, err
	}

	job, err := s.repo.Create(ctx, ownerID, req)
	s.emitTransition(metrics.TransitionCreate, true, err)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job created",
			"id", job.ID,
			"owner_id", job.OwnerID,
			"target", job.Target,
		)
	}

	s.triggerExecution(ctx, job.ID)
	return job, nil
}

// triggerExecution asks the execution worker to start the job. Failures are
// logged and swallowed: the row already exists as pending and a retry can
// re-trigger it.
func (s *JobService) triggerExecution(ctx context.Context, jobID string) {
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

// Get returns one of the owner's jobs.
func (s *JobService) Get(ctx context.Context, id, ownerID string) (*model.ResearchJob, error) {
	if err := s.allowRead(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id, ownerID)
}

// List returns a filtered page of the owner's jobs.
func (s *JobService) List(ctx context.Context, ownerID string, opts *model.JobListOptions) (*model.JobPage, error) {
	if err := s.allowRead(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ownerID, opts)
}

// Update applies a partial update to one of the owner's jobs.
func (s *JobService) Update(ctx context.Context, params core.UpdateJobParams) (*model.ResearchJob, error) {
	job, err := s.repo.Update(ctx, params)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "job updated", "id", job.ID)
	}
	return job, nil
}

// Stats returns aggregate counts over the owner's recent jobs.
func (s *JobService) Stats(ctx context.Context, ownerID string) (*model.JobStats, error) {
	if err := s.allowRead(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, ownerID)
}

// MarkProcessing records that the worker picked up a pending job. A job in
// any other status yields InvalidState.
func (s *JobService) MarkProcessing(ctx context.Context, id string) error {
	ok, err := s.repo.MarkProcessing(ctx, id)
	s.emitTransition(metrics.TransitionProcessing, ok, err)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.InvalidStatef("job %s is not pending", id)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job processing", "id", id)
	}
	return nil
}

// Complete records the worker's results for a processing job.
func (s *JobService) Complete(ctx context.Context, params core.CompleteJobParams) error {
	ok, err := s.repo.CompleteWithResults(ctx, params)
	s.emitTransition(metrics.TransitionComplete, ok, err)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.InvalidStatef("job %s is not processing", params.ID)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job completed",
			"id", params.ID,
			"total_sources", params.TotalSources,
		)
	}
	return nil
}

// Fail records a worker failure for an active job. Completed jobs are left
// untouched and the call yields InvalidState.
func (s *JobService) Fail(ctx context.Context, id, errMsg string) error {
	ok, err := s.repo.MarkFailed(ctx, id, errMsg)
	s.emitTransition(metrics.TransitionFail, ok, err)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.InvalidStatef("job %s is not active", id)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job failed", "id", id, "error_message", errMsg)
	}
	return nil
}
