package httpx

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/scoutline/scout-api/internal/core"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandlers reports service health for readiness probes and the CLI.
type HealthHandlers struct {
	DB    *sql.DB
	Cache core.CacheRepository
	// Features reports which optional surfaces are enabled in this process.
	Features map[string]bool
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Features map[string]bool   `json:"features,omitempty"`
}

// Health handles GET /healthz. It pings the backing stores and reports
// degraded instead of failing the probe when the cache is down; the API can
// serve without Redis, only rate limiting fails open.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Services: map[string]string{},
		Features: h.Features,
	}
	code := http.StatusOK

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			resp.Services["database"] = "unavailable"
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			resp.Services["database"] = "ok"
		}
	}

	if h.Cache != nil {
		if err := h.Cache.Health(ctx); err != nil {
			resp.Services["cache"] = "unavailable"
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		} else {
			resp.Services["cache"] = "ok"
		}
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, resp)
}
