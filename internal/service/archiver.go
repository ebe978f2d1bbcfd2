package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scoutline/scout-api/config"
	"github.com/scoutline/scout-api/internal/observability/statsd"
)

// ArchiveSweeper performs one retention sweep over completed jobs.
type ArchiveSweeper interface {
	Archive(ctx context.Context, params ArchiveParams) (int, error)
}

// ArchiverServiceOptions groups dependencies for ArchiverService.
type ArchiverServiceOptions struct {
	Sweeper ArchiveSweeper        // Required: lifecycle service or equivalent
	Config  config.ArchiverConfig // Required: archiver configuration
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// ArchiverService runs the background retention sweep. At every interval it
// removes completed jobs older than the configured retention across all
// owners, one bounded batch per tick.
type ArchiverService struct {
	sweeper ArchiveSweeper
	config  config.ArchiverConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewArchiverService constructs a new ArchiverService.
func NewArchiverService(opts ArchiverServiceOptions) (*ArchiverService, error) {
	if opts.Sweeper == nil {
		return nil, errors.New("ArchiveSweeper is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "archiver_service")
		logger.Debug("ArchiverService initialized",
			"interval", opts.Config.Interval,
			"retention_days", opts.Config.RetentionDays,
			"batch_size", opts.Config.BatchSize,
		)
	}

	return &ArchiverService{
		sweeper: opts.Sweeper,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the archiver loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ArchiverService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting archiver service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)
	if ctx.Err() != nil {
		return s.shutdownResult(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run a sweep immediately after jitter
	if err := s.runSweep(ctx); err != nil {
		s.logSweepError(err)
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "archiver service stopping", "reason", ctx.Err())
			}
			return s.shutdownResult(ctx)

		case <-ticker.C:
			if err := s.runSweep(ctx); err != nil {
				s.logSweepError(err)
				// Continue running despite errors
			}
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ArchiverService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// runSweep performs a single retention sweep and emits metrics.
func (s *ArchiverService) runSweep(ctx context.Context) error {
	start := time.Now()

	deleted, err := s.sweeper.Archive(ctx, ArchiveParams{
		OlderThanDays: s.config.RetentionDays,
		Limit:         s.config.BatchSize,
	})

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.Timing("archiver.sweep.duration", elapsed, nil)
		s.metrics.Count("archiver.jobs_archived", int64(deleted), nil)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.metrics.Count("archiver.sweep.errors", 1, nil)
		}
	}

	if err != nil {
		return fmt.Errorf("archive sweep: %w", err)
	}

	if deleted > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "archived old completed jobs",
			"count", deleted,
			"retention_days", s.config.RetentionDays,
			"elapsed", elapsed,
		)
	}
	return nil
}

func (s *ArchiverService) logSweepError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if s.logger != nil {
		s.logger.Error("archive sweep failed", "error", err)
	}
}

// shutdownResult maps context cancellation to a clean exit.
func (s *ArchiverService) shutdownResult(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
