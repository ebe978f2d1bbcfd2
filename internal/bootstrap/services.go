package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/scoutline/scout-api/config"
	"github.com/scoutline/scout-api/internal/adapters/archiver"
	"github.com/scoutline/scout-api/internal/adapters/worker"
	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/data"
	httpx "github.com/scoutline/scout-api/internal/http"
	"github.com/scoutline/scout-api/internal/observability/statsd"
	"github.com/scoutline/scout-api/internal/service"
)

// ServiceContainer holds the wired services shared by the HTTP server and
// the background runners.
type ServiceContainer struct {
	Jobs      *service.JobService
	Lifecycle *service.LifecycleService
	Cache     core.CacheRepository
	Verifier  httpx.IdentityVerifier
	Metrics   statsd.Sink
}

// BuildDeps groups the external dependencies needed to assemble services.
type BuildDeps struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  *redis.Client // Optional: nil disables rate limiting
	Logger *slog.Logger
}

// BuildServices wires repositories, adapters, and services from configuration.
func BuildServices(ctx context.Context, deps BuildDeps) (*ServiceContainer, error) {
	if deps.Config == nil {
		return nil, errors.New("app config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	repo := data.NewResearchJobRepo(deps.DB, data.RepoConfig{Logger: logger})

	var cache core.CacheRepository
	var limiter core.RateLimiter
	if deps.Redis != nil {
		cacheRepo := data.NewRedisCacheRepo(deps.Redis)
		cache = cacheRepo
		limiter = data.NewFixedWindowLimiter(cacheRepo, logger)
	}

	trigger, err := worker.NewClient(worker.ClientConfig{
		BaseURL: cfg.Worker.BaseURL,
		Timeout: cfg.Worker.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build worker client: %w", err)
	}

	limits := service.RateLimits{
		Execution: cfg.RateLimits.ExecutionLimit,
		Read:      cfg.RateLimits.ReadLimit,
		Window:    cfg.RateLimits.Window,
	}

	metrics, err := buildMetrics(cfg, logger)
	if err != nil {
		return nil, err
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:    repo,
		Trigger: trigger,
		Limiter: limiter,
		Limits:  &limits,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build job service: %w", err)
	}

	lifecycle, err := service.NewLifecycleService(service.LifecycleServiceOptions{
		Repo:    repo,
		Trigger: trigger,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build lifecycle service: %w", err)
	}

	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &ServiceContainer{
		Jobs:      jobs,
		Lifecycle: lifecycle,
		Cache:     cache,
		Verifier:  verifier,
		Metrics:   metrics,
	}, nil
}

// buildVerifier selects the identity verifier for the configured auth mode.
// Dev mode is refused outside development so a stray AUTH_MODE=dev can never
// turn off authentication in production.
func buildVerifier(ctx context.Context, cfg *config.AppConfig) (httpx.IdentityVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeDev:
		if !cfg.IsDev {
			return nil, errors.New("AUTH_MODE=dev requires DEV=true")
		}
		return httpx.NewDevVerifier(cfg.Auth.DevAuth), nil
	case config.AuthModeOIDC:
		verifier, err := httpx.NewOIDCVerifier(ctx, cfg.Auth.OIDC)
		if err != nil {
			return nil, fmt.Errorf("build OIDC verifier: %w", err)
		}
		return verifier, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}

func buildMetrics(cfg *config.AppConfig, logger *slog.Logger) (statsd.Sink, error) {
	if !cfg.Observability.Metrics.IsEnabled() {
		return nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build statsd client: %w", err)
	}
	return client, nil
}

// RunConfig groups dependencies for RunServices.
type RunConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// RunServices starts all enabled services and blocks until a termination
// signal arrives or one of them fails. Shutdown is cooperative: the shared
// context is cancelled and every service gets to drain before return.
func RunServices(cfg *RunConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("run config is incomplete")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Config.IsHTTPServerEnabled() {
		srv := NewHTTPServer(HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			DB:       cfg.DB,
			Logger:   logger,
		})
		group.Go(func() error {
			return ServeHTTP(groupCtx, srv, cfg.Config.HTTP, logger)
		})
	}

	if cfg.Config.IsArchiverEnabled() {
		runner, err := archiver.NewRunner(archiver.RunnerOptions{
			DB:      cfg.DB,
			Config:  cfg.Config.Archiver,
			Logger:  logger,
			Sweeper: cfg.Services.Lifecycle,
			Metrics: cfg.Services.Metrics,
		})
		if err != nil {
			return fmt.Errorf("build archiver runner: %w", err)
		}
		group.Go(func() error {
			return runner.Run(groupCtx)
		})
	}

	logger.Info("services started", "services", GetEnabledServices(cfg.Config))
	return group.Wait()
}
