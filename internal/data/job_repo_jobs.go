package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/data/pgxutil"
	"github.com/scoutline/scout-api/internal/domain/model"
	apperrors "github.com/scoutline/scout-api/internal/errors"
)

// Create creates a new research job in the database with the given parameters.
// The job always starts as pending with zero sources.
func (r *ResearchJobRepo) Create(
	ctx context.Context,
	ownerID string,
	req *model.CreateJobRequest,
) (*model.ResearchJob, error) {
	if ownerID == "" {
		return nil, apperrors.Validation("owner id is required")
	}
	if req == nil {
		return nil, apperrors.Validation("create job request is required")
	}

	req.Normalize()
	if validateErr := req.Validate(); validateErr != nil {
		return nil, apperrors.Validation(validateErr.Error())
	}

	now := r.timeProvider.Now().UTC()
	id := uuid.NewString()

	query := `
      INSERT INTO research_jobs(id, owner_id, target, enabled_agents, person_name, person_linkedin, additional_context, status, total_sources, created_at, updated_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,$8,$8)
      RETURNING ` + jobColumns

	var job *model.ResearchJob
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, query,
			id,
			ownerID,
			req.Target,
			toAgentStrings(req.EnabledAgents),
			req.PersonName,
			req.PersonLinkedIn,
			req.AdditionalContext,
			now,
		)
		if qerr != nil {
			return fmt.Errorf("insert job: %w", qerr)
		}
		var collectErr error
		job, collectErr = collectJobFromRows(rows)
		rows.Close()
		if collectErr != nil {
			return fmt.Errorf("collect job: %w", collectErr)
		}
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return job, nil
}

// GetByID retrieves a job by its ID. When ownerID is non-empty, a job owned
// by someone else yields PermissionDenied rather than NotFound.
func (r *ResearchJobRepo) GetByID(ctx context.Context, id, ownerID string) (*model.ResearchJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}

	var job *model.ResearchJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM research_jobs
			WHERE id = $1
		`, id)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var collectErr error
		job, collectErr = collectJobFromRows(rows)
		return collectErr
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get job: %w", err))
	}

	if ownerID != "" && job.OwnerID != ownerID {
		return nil, apperrors.PermissionDenied("job belongs to another user")
	}
	return job, nil
}

// patchQueryBuilder accumulates SET clauses for a dynamic UPDATE.
type patchQueryBuilder struct {
	sets   []string
	args   []any
	argIdx int
}

func (b *patchQueryBuilder) set(column string, value any) {
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, b.argIdx))
	b.args = append(b.args, value)
	b.argIdx++
}

func (b *patchQueryBuilder) clear(column string) {
	b.sets = append(b.sets, column+" = NULL")
}

func buildPatchQuery(patch *model.JobPatch, now any) *patchQueryBuilder {
	b := &patchQueryBuilder{argIdx: 1}

	if patch.Target != nil {
		b.set("target", *patch.Target)
	}
	if patch.EnabledAgents != nil {
		b.set("enabled_agents", toAgentStrings(model.NormalizeAgents(patch.EnabledAgents)))
	}
	if patch.PersonName != nil {
		b.set("person_name", *patch.PersonName)
	}
	if patch.PersonLinkedIn != nil {
		b.set("person_linkedin", *patch.PersonLinkedIn)
	}
	if patch.AdditionalContext != nil {
		b.set("additional_context", *patch.AdditionalContext)
	}
	if patch.Status != nil {
		b.set("status", string(*patch.Status))
	}
	if patch.Results != nil {
		b.set("results", *patch.Results)
	}
	if patch.ErrorMessage != nil {
		b.set("error_message", *patch.ErrorMessage)
	}
	if patch.TotalSources != nil {
		b.set("total_sources", *patch.TotalSources)
	}
	if patch.CompletedAt != nil {
		b.set("completed_at", patch.CompletedAt.UTC())
	}
	if patch.ClearResults {
		b.clear("results")
	}
	if patch.ClearErrorMessage {
		b.clear("error_message")
	}
	if patch.ClearCompletedAt {
		b.clear("completed_at")
	}

	// updated_at is bumped on every mutation, patched or not.
	b.set("updated_at", now)
	return b
}

// Update applies a partial update under an ownership check. A zero-row result
// is re-checked so a missing job and a foreign job map to distinct errors.
func (r *ResearchJobRepo) Update(ctx context.Context, params core.UpdateJobParams) (*model.ResearchJob, error) {
	if params.Patch == nil {
		return nil, apperrors.Validation("patch is required")
	}
	if validateErr := params.Patch.Validate(); validateErr != nil {
		return nil, apperrors.Validation(validateErr.Error())
	}
	if _, err := uuid.Parse(params.ID); err != nil {
		return nil, apperrors.NotFoundf("job %s not found", params.ID)
	}

	now := r.timeProvider.Now().UTC()
	b := buildPatchQuery(params.Patch, now)

	query := "UPDATE research_jobs SET "
	for i, s := range b.sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += fmt.Sprintf(" WHERE id = $%d AND owner_id = $%d RETURNING %s", b.argIdx, b.argIdx+1, jobColumns)
	args := append(b.args, params.ID, params.OwnerID)

	var job *model.ResearchJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, query, args...)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		var collectErr error
		job, collectErr = collectJobFromRows(rows)
		return collectErr
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.ownershipError(ctx, params.ID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("update job: %w", err))
	}
	return job, nil
}

// Delete removes a job under an ownership check. Deleting an absent job is an
// error, not a no-op.
func (r *ResearchJobRepo) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NotFoundf("job %s not found", id)
	}

	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM research_jobs
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("delete job: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("delete rows affected: %w", err))
	}

	if rowsAffected > 0 {
		return nil
	}

	return r.ownershipError(ctx, id)
}

// ownershipError re-checks a zero-row mutation to distinguish a missing job
// from one owned by someone else.
func (r *ResearchJobRepo) ownershipError(ctx context.Context, id string) error {
	var ownerID string
	err := r.DB.QueryRowContext(ctx, `SELECT owner_id FROM research_jobs WHERE id = $1`, id).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("re-check job ownership: %w", err))
	}
	return apperrors.PermissionDenied("job belongs to another user")
}

// MarkProcessing transitions a pending job to processing. Returns (false, nil)
// without touching the row when the job is absent or not pending.
func (r *ResearchJobRepo) MarkProcessing(ctx context.Context, id string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE research_jobs
		SET status = 'processing',
		    updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, currentTime)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("mark job processing: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("mark processing rows affected: %w", err))
	}
	return rowsAffected > 0, nil
}

// CompleteWithResults transitions a processing job to completed, writing the
// results, source count, and completion stamp in one statement.
func (r *ResearchJobRepo) CompleteWithResults(ctx context.Context, params core.CompleteJobParams) (bool, error) {
	if params.TotalSources < 0 {
		return false, apperrors.Validation("total_sources must be >= 0")
	}

	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE research_jobs
		SET status = 'completed',
		    results = $2,
		    total_sources = $3,
		    error_message = NULL,
		    completed_at = $4,
		    updated_at = $4
		WHERE id = $1 AND status = 'processing'
	`, params.ID, params.Results, params.TotalSources, currentTime)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("complete job: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("complete rows affected: %w", err))
	}
	return rowsAffected > 0, nil
}

// MarkFailed transitions an active job to failed with the given error message.
// Completed jobs are never moved to failed.
func (r *ResearchJobRepo) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE research_jobs
		SET status = 'failed',
		    error_message = $2,
		    updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, id, errMsg, currentTime)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("fail job: %w", err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("fail rows affected: %w", err))
	}
	return rowsAffected > 0, nil
}

// Stats returns per-status counts, summed sources, and average completion
// seconds computed over the owner's most recent jobs. The window keeps the
// query bounded for heavy users.
func (r *ResearchJobRepo) Stats(ctx context.Context, ownerID string) (*model.JobStats, error) {
	var s model.JobStats
	var avgSeconds sql.NullFloat64

	err := r.DB.QueryRowContext(ctx, `
	  WITH recent AS (
	    SELECT status, total_sources, created_at, completed_at
	    FROM research_jobs
	    WHERE owner_id = $1
	    ORDER BY created_at DESC
	    LIMIT $2
	  )
	  SELECT
	    count(*) FILTER (WHERE status = 'pending')    AS pending,
	    count(*) FILTER (WHERE status = 'processing') AS processing,
	    count(*) FILTER (WHERE status = 'completed')  AS completed,
	    count(*) FILTER (WHERE status = 'failed')     AS failed,
	    COALESCE(sum(total_sources), 0)               AS total_sources,
	    avg(EXTRACT(EPOCH FROM (completed_at - created_at)))
	      FILTER (WHERE status = 'completed' AND completed_at IS NOT NULL) AS avg_completion
	  FROM recent
	`, ownerID, r.cfg.StatsWindow).Scan(
		&s.Pending,
		&s.Processing,
		&s.Completed,
		&s.Failed,
		&s.TotalSources,
		&avgSeconds,
	)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get job stats: %w", err))
	}

	if avgSeconds.Valid {
		v := avgSeconds.Float64
		s.AvgCompletionSeconds = &v
	}
	s.Total = s.Pending + s.Processing + s.Completed + s.Failed
	return &s, nil
}

// ArchiveCandidates returns completed jobs created at or before the cutoff,
// oldest first, capped per call so a sweep never loads an unbounded set.
// An empty OwnerID sweeps across all owners.
func (r *ResearchJobRepo) ArchiveCandidates(
	ctx context.Context,
	params core.ArchiveCandidatesParams,
) ([]*model.ResearchJob, error) {
	limit := params.Limit
	if limit <= 0 || limit > r.cfg.ArchiveBatch {
		limit = r.cfg.ArchiveBatch
	}

	query := `
		SELECT ` + jobColumns + `
		FROM research_jobs
		WHERE ($1 = '' OR owner_id = $1)
		  AND status = 'completed'
		  AND created_at <= $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`

	var result []*model.ResearchJob
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, query, params.OwnerID, params.Cutoff.UTC(), limit)
		if qerr != nil {
			return fmt.Errorf("query archive candidates: %w", qerr)
		}
		defer rows.Close()

		for rows.Next() {
			job, scanErr := scanJobFromRow(rows)
			if scanErr != nil {
				return fmt.Errorf("scan archive candidate: %w", scanErr)
			}
			result = append(result, job)
		}
		return rows.Err()
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return result, nil
}
