package httpx

import (
	"net/http"
	"strings"

	"github.com/scoutline/scout-api/internal/core"
	apperrors "github.com/scoutline/scout-api/internal/errors"
	"github.com/scoutline/scout-api/internal/service"
)

// WorkerHandlers provides the internal write-back endpoints called by the
// execution worker. They live under /internal and carry no owner identity;
// the worker addresses jobs by id and the status guards reject anything
// that is not the expected forward transition.
type WorkerHandlers struct {
	Jobs *service.JobService
}

// MarkProcessing handles POST /internal/jobs/{id}/processing.
func (h *WorkerHandlers) MarkProcessing(w http.ResponseWriter, r *http.Request) {
	id, ok := requireJobID(w, r)
	if !ok {
		return
	}

	if err := h.Jobs.MarkProcessing(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "processing"})
}

// completeRequest is the body of POST /internal/jobs/{id}/complete.
type completeRequest struct {
	Results      string `json:"results"`
	TotalSources int    `json:"total_sources"`
}

// Complete handles POST /internal/jobs/{id}/complete. Results, the source
// count, and the status flip land in one guarded update.
func (h *WorkerHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireJobID(w, r)
	if !ok {
		return
	}

	var req completeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Results) == "" {
		WriteError(w, apperrors.ValidationField("results", "results are required"))
		return
	}
	if req.TotalSources < 0 {
		WriteError(w, apperrors.ValidationField("total_sources", "total_sources must be >= 0"))
		return
	}

	err := h.Jobs.Complete(r.Context(), core.CompleteJobParams{
		ID:           id,
		Results:      req.Results,
		TotalSources: req.TotalSources,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// failRequest is the body of POST /internal/jobs/{id}/fail.
type failRequest struct {
	ErrorMessage string `json:"error_message"`
}

// Fail handles POST /internal/jobs/{id}/fail.
func (h *WorkerHandlers) Fail(w http.ResponseWriter, r *http.Request) {
	id, ok := requireJobID(w, r)
	if !ok {
		return
	}

	var req failRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ErrorMessage) == "" {
		WriteError(w, apperrors.ValidationField("error_message", "error_message is required"))
		return
	}

	if err := h.Jobs.Fail(r.Context(), id, req.ErrorMessage); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "failed"})
}
