package httpx

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs      *service.JobService
	Lifecycle *service.LifecycleService
	Verifier  IdentityVerifier

	// Optional: health probe dependencies
	DB       *sql.DB
	Cache    core.CacheRepository
	Features map[string]bool

	Logger *slog.Logger
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Jobs: services.Jobs, Lifecycle: services.Lifecycle}
	workerHandlers := &WorkerHandlers{Jobs: services.Jobs}
	healthHandlers := &HealthHandlers{
		DB:       services.DB,
		Cache:    services.Cache,
		Features: services.Features,
	}

	registerJobRoutes(mux, jobHandlers, services.Verifier)
	registerWorkerRoutes(mux, workerHandlers)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandlers.Health))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandlers.Health))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Recover(logger)(Logging(logger)(mux))
}

// registerJobRoutes wires the owner-facing job endpoints behind auth.
func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, verifier IdentityVerifier) {
	auth := RequireOwner(verifier)

	mux.Handle("POST /v1/jobs", auth(http.HandlerFunc(h.CreateJob)))
	mux.Handle("GET /v1/jobs", auth(http.HandlerFunc(h.ListJobs)))
	// The literal patterns win over /v1/jobs/{id} by specificity, so "stats"
	// and "archive" are never treated as job ids.
	mux.Handle("GET /v1/jobs/stats", auth(http.HandlerFunc(h.JobStats)))
	mux.Handle("POST /v1/jobs/archive", auth(http.HandlerFunc(h.ArchiveJobs)))
	mux.Handle("GET /v1/jobs/{id}", auth(http.HandlerFunc(h.GetJob)))
	mux.Handle("PATCH /v1/jobs/{id}", auth(http.HandlerFunc(h.UpdateJob)))
	mux.Handle("DELETE /v1/jobs/{id}", auth(http.HandlerFunc(h.DeleteJob)))
	mux.Handle("POST /v1/jobs/{id}/retry", auth(http.HandlerFunc(h.RetryJob)))
	mux.Handle("POST /v1/jobs/{id}/duplicate", auth(http.HandlerFunc(h.DuplicateJob)))
}

// registerWorkerRoutes wires the internal write-back endpoints. These are
// expected to be reachable only from the worker network.
func registerWorkerRoutes(mux *http.ServeMux, h *WorkerHandlers) {
	mux.Handle("POST /internal/jobs/{id}/processing", http.HandlerFunc(h.MarkProcessing))
	mux.Handle("POST /internal/jobs/{id}/complete", http.HandlerFunc(h.Complete))
	mux.Handle("POST /internal/jobs/{id}/fail", http.HandlerFunc(h.Fail))
}
