// Package devseed populates a development database with representative
// research jobs so the API and CLI have data to work with out of the box.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/data"
	"github.com/scoutline/scout-api/internal/domain/model"
)

// DefaultOwnerID is the owner every seeded job belongs to. It matches the
// dev verifier's fallback so seeded jobs show up without extra headers.
const DefaultOwnerID = "dev-user"

type seedJob struct {
	req     model.CreateJobRequest
	status  model.JobStatus
	results string
	sources int
	errMsg  string
}

func seedJobs() []seedJob {
	person := "Dana Reeve"
	linkedin := "https://www.linkedin.com/in/dana-reeve-example"
	note := "Preparing for a partnership pitch next quarter."
	return []seedJob{
		{
			req: model.CreateJobRequest{
				Target:        "Acme Robotics",
				EnabledAgents: []model.AgentType{model.AgentCompanyDiscovery, model.AgentMarketAnalysis},
			},
			status:  model.JobStatusCompleted,
			results: "# Acme Robotics\n\nIndustrial automation vendor, ~400 employees, Series C.",
			sources: 23,
		},
		{
			req: model.CreateJobRequest{
				Target:            "Globex Corporation",
				EnabledAgents:     []model.AgentType{model.AgentCompanyDiscovery, model.AgentPersonResearch},
				PersonName:        &person,
				PersonLinkedIn:    &linkedin,
				AdditionalContext: &note,
			},
			status: model.JobStatusProcessing,
		},
		{
			req: model.CreateJobRequest{
				Target:        "Initech",
				EnabledAgents: []model.AgentType{model.AgentCompanyDiscovery, model.AgentCompetitorResearch},
			},
			status: model.JobStatusFailed,
			errMsg: "execution worker timed out after 3 attempts",
		},
		{
			req: model.CreateJobRequest{
				Target:        "Umbrella Health",
				EnabledAgents: []model.AgentType{model.AgentCompanyDiscovery},
			},
			status: model.JobStatusPending,
		},
	}
}

// Run seeds development research jobs for DefaultOwnerID. Seeding is
// idempotent: an owner that already has jobs is left untouched.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	repo := data.NewResearchJobRepo(db, data.RepoConfig{Logger: logger})

	page, err := repo.List(ctx, DefaultOwnerID, &model.JobListOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("check existing dev jobs: %w", err)
	}
	if page.Total > 0 {
		if logger != nil {
			logger.InfoContext(ctx, "dev seed skipped, owner already has jobs",
				"owner_id", DefaultOwnerID,
				"total", page.Total,
			)
		}
		return nil
	}

	for _, seed := range seedJobs() {
		if err := createSeedJob(ctx, repo, seed); err != nil {
			return fmt.Errorf("seed job %q: %w", seed.req.Target, err)
		}
	}

	if logger != nil {
		logger.InfoContext(ctx, "dev seed complete", "owner_id", DefaultOwnerID)
	}
	return nil
}

// createSeedJob inserts one job and walks it to its target status through the
// same guarded transitions the worker uses.
func createSeedJob(ctx context.Context, repo *data.ResearchJobRepo, seed seedJob) error {
	job, err := repo.Create(ctx, DefaultOwnerID, &seed.req)
	if err != nil {
		return err
	}
	if seed.status == model.JobStatusPending {
		return nil
	}

	if _, err := repo.MarkProcessing(ctx, job.ID); err != nil {
		return err
	}

	switch seed.status {
	case model.JobStatusCompleted:
		_, err = repo.CompleteWithResults(ctx, core.CompleteJobParams{
			ID:           job.ID,
			Results:      seed.results,
			TotalSources: seed.sources,
		})
	case model.JobStatusFailed:
		_, err = repo.MarkFailed(ctx, job.ID, seed.errMsg)
	case model.JobStatusProcessing:
		// Already there.
	}
	return err
}
