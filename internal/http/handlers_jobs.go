// Package httpx provides HTTP handlers and utilities for the scout research job API.
package httpx

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/domain/model"
	apperrors "github.com/scoutline/scout-api/internal/errors"
	"github.com/scoutline/scout-api/internal/service"
)

// estimatedCompletionMinutes is the rough research turnaround communicated
// to clients when execution is kicked off.
const estimatedCompletionMinutes = 12

// JobHandlers provides HTTP handlers for owner-facing job operations.
type JobHandlers struct {
	Jobs      *service.JobService
	Lifecycle *service.LifecycleService
}

// jobResponse wraps a job with the completion estimate for operations that
// trigger execution.
type jobResponse struct {
	*model.ResearchJob
	EstimatedCompletionMinutes int `json:"estimated_completion_minutes,omitempty"`
}

// CreateJob handles POST /v1/jobs.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Jobs.Create(r.Context(), ownerID, &req)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, jobResponse{
		ResearchJob:                job,
		EstimatedCompletionMinutes: estimatedCompletionMinutes,
	})
}

// GetJob handles GET /v1/jobs/{id}.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := requireJobID(w, r)
	if !ok {
		return
	}

	job, err := h.Jobs.Get(r.Context(), id, ownerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /v1/jobs.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	opts, err := ParseJobListOptions(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	page, err := h.Jobs.List(r.Context(), ownerID, opts)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// UpdateJob handles PATCH /v1/jobs/{id}.
func (h *JobHandlers) UpdateJob(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := requireJobID(w, r)
	if !ok {
		return
	}

	var patch model.JobPatch
	if !DecodeJSON(w, r, &patch) {
		return
	}

	job, err := h.Jobs.Update(r.Context(), core.UpdateJobParams{ID: id, OwnerID: ownerID, Patch: &patch})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// DeleteJob handles DELETE /v1/jobs/{id}.
func (h *JobHandlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := requireJobID(w, r)
	if !ok {
		return
	}

	if err := h.Lifecycle.Delete(r.Context(), id, ownerID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryJob handles POST /v1/jobs/{id}/retry.
func (h *JobHandlers) RetryJob(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := requireJobID(w, r)
	if !ok {
		return
	}

	job, err := h.Lifecycle.Retry(r.Context(), id, ownerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, jobResponse{
		ResearchJob:                job,
		EstimatedCompletionMinutes: estimatedCompletionMinutes,
	})
}

// DuplicateJob handles POST /v1/jobs/{id}/duplicate.
func (h *JobHandlers) DuplicateJob(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := requireJobID(w, r)
	if !ok {
		return
	}

	job, err := h.Lifecycle.Duplicate(r.Context(), id, ownerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, jobResponse{
		ResearchJob:                job,
		EstimatedCompletionMinutes: estimatedCompletionMinutes,
	})
}

// archiveRequest is the body of POST /v1/jobs/archive.
type archiveRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

// archiveResponse reports the outcome of an archive sweep.
type archiveResponse struct {
	Archived int `json:"archived"`
}

// ArchiveJobs handles POST /v1/jobs/archive. It removes the caller's
// completed jobs older than the requested age.
func (h *JobHandlers) ArchiveJobs(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req archiveRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	deleted, err := h.Lifecycle.Archive(r.Context(), service.ArchiveParams{
		OwnerID:       ownerID,
		OlderThanDays: req.OlderThanDays,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, archiveResponse{Archived: deleted})
}

// JobStats handles GET /v1/jobs/stats.
func (h *JobHandlers) JobStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	stats, err := h.Jobs.Stats(r.Context(), ownerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// requireOwner pulls the authenticated owner from the request context. The
// auth middleware always sets it; a missing owner means a route was wired
// without RequireOwner.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorBody{
			Error:   "authentication_required",
			Message: "Valid credentials are required.",
		})
		return "", false
	}
	return ownerID, true
}

// requireJobID validates the {id} path segment. Malformed ids get the same
// 404 a missing row would, so probing with garbage reveals nothing.
func requireJobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		WriteError(w, apperrors.NotFoundf("job %s not found", id))
		return "", false
	}
	return id, true
}
