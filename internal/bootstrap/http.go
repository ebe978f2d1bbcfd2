package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/scoutline/scout-api/config"
	httpx "github.com/scoutline/scout-api/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// NewHTTPServer builds the API server with the configured timeouts.
func NewHTTPServer(cfg HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	features := map[string]bool{
		"http":     cfg.Config.IsHTTPServerEnabled(),
		"archiver": cfg.Config.IsArchiverEnabled(),
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Jobs:      cfg.Services.Jobs,
		Lifecycle: cfg.Services.Lifecycle,
		Verifier:  cfg.Services.Verifier,
		DB:        cfg.DB,
		Cache:     cfg.Services.Cache,
		Features:  features,
		Logger:    logger,
	})

	return &http.Server{
		Addr:         cfg.Config.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Config.HTTP.ReadTimeout,
		WriteTimeout: cfg.Config.HTTP.WriteTimeout,
	}
}

// ServeHTTP runs the server until the context is cancelled, then drains it
// within the configured shutdown timeout. Returns nil on a clean shutdown.
func ServeHTTP(ctx context.Context, srv *http.Server, cfg config.HTTPConfig, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return <-errCh
}
