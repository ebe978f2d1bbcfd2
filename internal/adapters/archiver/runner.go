// Package archiver provides the adapter for running the retention sweep loop.
package archiver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scoutline/scout-api/config"
	"github.com/scoutline/scout-api/internal/data"
	"github.com/scoutline/scout-api/internal/observability/statsd"
	"github.com/scoutline/scout-api/internal/service"
)

// Runner wires the archiver service to the job repository and runs the
// retention sweep loop.
type Runner struct {
	archiver *service.ArchiverService
	logger   *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ArchiverConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Sweeper service.ArchiveSweeper
	Metrics statsd.Sink
}

// NewRunner creates a new archiver runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	archiverSvc, err := wireArchiverService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire archiver service: %w", err)
	}

	return &Runner{
		archiver: archiverSvc,
		logger:   opts.Logger,
	}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Sweeper == nil {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireArchiverService(opts RunnerOptions) (*service.ArchiverService, error) {
	sweeper := opts.Sweeper
	if sweeper == nil {
		repo := data.NewResearchJobRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
		lifecycle, err := service.NewLifecycleService(service.LifecycleServiceOptions{
			Repo:   repo,
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		sweeper = lifecycle
	}

	return service.NewArchiverService(service.ArchiverServiceOptions{
		Sweeper: sweeper,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
}

// Run starts the sweep loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting archiver runner")
	return r.archiver.Run(ctx)
}
