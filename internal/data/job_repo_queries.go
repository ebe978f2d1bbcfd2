package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/scoutline/scout-api/internal/data/pgxutil"
	"github.com/scoutline/scout-api/internal/domain/model"
	apperrors "github.com/scoutline/scout-api/internal/errors"
)

// jobFilterQueryBuilder accumulates WHERE conditions and args for the job listing query.
type jobFilterQueryBuilder struct {
	query  string
	args   []any
	argIdx int
}

func (b *jobFilterQueryBuilder) addCondition(condition string, value any) {
	b.query += fmt.Sprintf(" AND "+condition, b.argIdx)
	b.args = append(b.args, value)
	b.argIdx++
}

// buildJobListQuery constructs the SQL query and args for an owner's filtered
// job listing. The count(*) OVER() window gives the total filtered row count
// on every returned row without a second query.
func buildJobListQuery(ownerID string, opts *model.JobListOptions) (string, []any) {
	builder := &jobFilterQueryBuilder{
		query: `
		SELECT ` + jobColumns + `,
		       count(*) OVER() AS total
		FROM research_jobs
		WHERE owner_id = $1`,
		args:   []any{ownerID},
		argIdx: 2,
	}

	addJobListFilters(builder, opts)
	addJobListSorting(builder, opts.Sort)

	builder.query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", builder.argIdx, builder.argIdx+1)
	builder.args = append(builder.args, opts.Limit, opts.Offset)

	return builder.query, builder.args
}

// addJobListFilters adds filter conditions to the query builder.
func addJobListFilters(builder *jobFilterQueryBuilder, opts *model.JobListOptions) {
	if opts.Status != nil {
		builder.addCondition("status = $%d", string(*opts.Status))
	}
	if opts.CreatedAfter != nil {
		builder.addCondition("created_at >= $%d", opts.CreatedAfter.UTC())
	}
	if opts.CreatedBefore != nil {
		builder.addCondition("created_at <= $%d", opts.CreatedBefore.UTC())
	}
	if opts.TargetSearch != "" {
		builder.addCondition("target ILIKE '%%' || $%d || '%%'", opts.TargetSearch)
	}
	if len(opts.Agents) > 0 {
		// Array containment: the job's agent set must include every requested agent.
		builder.addCondition("enabled_agents @> $%d", toAgentStrings(opts.Agents))
	}
}

// statusPriorityOrder ranks jobs needing attention first: active work, then
// failures awaiting a retry decision, then finished jobs.
const statusPriorityOrder = `
	CASE status
		WHEN 'pending'    THEN 0
		WHEN 'processing' THEN 1
		WHEN 'failed'     THEN 2
		ELSE 3
	END`

// addJobListSorting adds the ORDER BY clause to the query builder.
func addJobListSorting(builder *jobFilterQueryBuilder, sort model.JobSort) {
	switch sort {
	case model.JobSortOldest:
		builder.query += " ORDER BY created_at ASC, id ASC"
	case model.JobSortStatus:
		builder.query += " ORDER BY " + statusPriorityOrder + ", created_at DESC, id DESC"
	case model.JobSortTarget:
		builder.query += " ORDER BY lower(target) ASC, id ASC"
	default:
		builder.query += " ORDER BY created_at DESC, id DESC"
	}
}

// List returns one page of an owner's jobs matching the given filters, along
// with the total filtered count.
func (r *ResearchJobRepo) List(
	ctx context.Context,
	ownerID string,
	opts *model.JobListOptions,
) (*model.JobPage, error) {
	if ownerID == "" {
		return nil, apperrors.Validation("owner id is required")
	}
	if opts == nil {
		opts = &model.JobListOptions{}
	}
	opts.Normalize()

	query, args := buildJobListQuery(ownerID, opts)

	page := &model.JobPage{Jobs: []*model.ResearchJob{}}
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query jobs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			job := &model.ResearchJob{}
			var data jobRowData
			var total int
			dest := scanDestsWithTotal(&data, job, &total)
			if scanErr := rows.Scan(dest...); scanErr != nil {
				return fmt.Errorf("scan job: %w", scanErr)
			}
			data.apply(job)
			page.Jobs = append(page.Jobs, job)
			page.Total = total
		}
		return rows.Err()
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	// An offset past the end returns no rows and therefore no window total;
	// fall back to a plain count so Total stays accurate.
	if len(page.Jobs) == 0 && opts.Offset > 0 {
		total, err := r.countJobs(ctx, ownerID, opts)
		if err != nil {
			return nil, err
		}
		page.Total = total
	}

	return page, nil
}

func scanDestsWithTotal(data *jobRowData, job *model.ResearchJob, total *int) []any {
	return []any{
		&job.ID,
		&job.OwnerID,
		&job.Target,
		&data.agents,
		&data.personName,
		&data.personLinkedIn,
		&data.additionalContext,
		&job.Status,
		&data.results,
		&data.errorMessage,
		&job.TotalSources,
		&job.CreatedAt,
		&job.UpdatedAt,
		&data.completedAt,
		total,
	}
}

// countJobs counts rows matching the listing filters without fetching them.
func (r *ResearchJobRepo) countJobs(ctx context.Context, ownerID string, opts *model.JobListOptions) (int, error) {
	builder := &jobFilterQueryBuilder{
		query:  `SELECT count(*) FROM research_jobs WHERE owner_id = $1`,
		args:   []any{ownerID},
		argIdx: 2,
	}
	addJobListFilters(builder, opts)

	var total int
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, builder.query, builder.args...).Scan(&total)
	}); err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("count jobs: %w", err))
	}
	return total, nil
}
