package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scoutline/scout-api/internal/domain/model"
)

var jobListHeaders = []string{"ID", "Target", "Status", "Agents", "Sources", "Created"}

var jobListAligns = []columnAlignment{
	alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft,
}

func newJobsCommand(opts *clientOptions) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage research jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(opts))
	jobsCmd.AddCommand(newJobsCreateCommand(opts))
	jobsCmd.AddCommand(newJobsShowCommand(opts))
	jobsCmd.AddCommand(newJobsRetryCommand(opts))
	jobsCmd.AddCommand(newJobsDuplicateCommand(opts))
	jobsCmd.AddCommand(newJobsDeleteCommand(opts))
	jobsCmd.AddCommand(newJobsArchiveCommand(opts))
	jobsCmd.AddCommand(newJobsStatsCommand(opts))
	jobsCmd.AddCommand(newJobsWatchCommand(opts))

	return jobsCmd
}

type listFlags struct {
	status string
	search string
	agents []string
	sort   string
	limit  int
	offset int
}

func (f *listFlags) query() string {
	q := url.Values{}
	if f.status != "" {
		q.Set("status", f.status)
	}
	if f.search != "" {
		q.Set("search", f.search)
	}
	if len(f.agents) > 0 {
		q.Set("agents", strings.Join(f.agents, ","))
	}
	if f.sort != "" {
		q.Set("sort", f.sort)
	}
	if f.limit > 0 {
		q.Set("limit", strconv.Itoa(f.limit))
	}
	if f.offset > 0 {
		q.Set("offset", strconv.Itoa(f.offset))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func newJobsListCommand(opts *clientOptions) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List research jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var page model.JobPage
			if err := client.do(cmd.Context(), http.MethodGet, "/v1/jobs"+flags.query(), nil, &page); err != nil {
				return err
			}
			if len(page.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}

			table := renderTable(jobListHeaders, buildJobRows(page.Jobs, time.Now()), jobListAligns)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d jobs\n", len(page.Jobs), page.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.status, "status", "", "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().StringVar(&flags.search, "search", "", "Filter by target substring")
	cmd.Flags().StringSliceVar(&flags.agents, "agents", nil, "Filter by enabled agents")
	cmd.Flags().StringVar(&flags.sort, "sort", "", "Sort order (newest, oldest, status, target)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "Page offset")

	return cmd
}

func newJobsCreateCommand(opts *clientOptions) *cobra.Command {
	var (
		agents         []string
		personName     string
		personLinkedIn string
		extraContext   string
	)

	cmd := &cobra.Command{
		Use:   "create <target>",
		Short: "Create a research job and kick off execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			body := map[string]any{"target": args[0]}
			if len(agents) > 0 {
				body["enabled_agents"] = agents
			}
			if personName != "" {
				body["person_name"] = personName
			}
			if personLinkedIn != "" {
				body["person_linkedin"] = personLinkedIn
			}
			if extraContext != "" {
				body["additional_context"] = extraContext
			}

			var resp struct {
				model.ResearchJob
				EstimatedCompletionMinutes int `json:"estimated_completion_minutes"`
			}
			if err := client.do(cmd.Context(), http.MethodPost, "/v1/jobs", body, &resp); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created job %s for %q\n", resp.ID, resp.Target)
			if resp.EstimatedCompletionMinutes > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Estimated completion: ~%d minutes\n", resp.EstimatedCompletionMinutes)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&agents, "agents", nil,
		"Agents to enable (company_discovery always runs; person_research, market_analysis, competitor_research)")
	cmd.Flags().StringVar(&personName, "person-name", "", "Person to research (required with person_research)")
	cmd.Flags().StringVar(&personLinkedIn, "person-linkedin", "", "LinkedIn URL of the person")
	cmd.Flags().StringVar(&extraContext, "context", "", "Additional context for the research agents")

	return cmd
}

func newJobsShowCommand(opts *clientOptions) *cobra.Command {
	var showResults bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one research job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var job model.ResearchJob
			if err := client.do(cmd.Context(), http.MethodGet, "/v1/jobs/"+url.PathEscape(args[0]), nil, &job); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", job.ID)
			fmt.Fprintf(out, "Target:    %s\n", job.Target)
			fmt.Fprintf(out, "Status:    %s\n", job.Status)
			fmt.Fprintf(out, "Agents:    %s\n", formatAgents(job.EnabledAgents))
			if job.PersonName != nil {
				fmt.Fprintf(out, "Person:    %s\n", *job.PersonName)
			}
			fmt.Fprintf(out, "Created:   %s\n", job.CreatedAt.Format(time.RFC3339))
			if job.CompletedAt != nil {
				fmt.Fprintf(out, "Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
				fmt.Fprintf(out, "Sources:   %d\n", job.TotalSources)
			}
			if job.ErrorMessage != nil {
				fmt.Fprintf(out, "Error:     %s\n", *job.ErrorMessage)
			}
			if showResults && job.Results != nil {
				fmt.Fprintf(out, "\n%s\n", *job.Results)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showResults, "results", false, "Print the research report")
	return cmd
}

func newJobsRetryCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry a failed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var job model.ResearchJob
			path := "/v1/jobs/" + url.PathEscape(args[0]) + "/retry"
			if err := client.do(cmd.Context(), http.MethodPost, path, nil, &job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s is %s again\n", job.ID, job.Status)
			return nil
		},
	}
}

func newJobsDuplicateCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Re-run a job as a fresh copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var job model.ResearchJob
			path := "/v1/jobs/" + url.PathEscape(args[0]) + "/duplicate"
			if err := client.do(cmd.Context(), http.MethodPost, path, nil, &job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created job %s from %s\n", job.ID, args[0])
			return nil
		},
	}
}

func newJobsDeleteCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a research job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			if err := client.do(cmd.Context(), http.MethodDelete, "/v1/jobs/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", args[0])
			return nil
		},
	}
}

func newJobsArchiveCommand(opts *clientOptions) *cobra.Command {
	var olderThanDays int

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive old completed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var resp struct {
				Archived int `json:"archived"`
			}
			body := map[string]any{"older_than_days": olderThanDays}
			if err := client.do(cmd.Context(), http.MethodPost, "/v1/jobs/archive", body, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d jobs\n", resp.Archived)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than-days", 30, "Archive completed jobs older than this many days")
	return cmd
}

func newJobsStatsCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var stats model.JobStats
			if err := client.do(cmd.Context(), http.MethodGet, "/v1/jobs/stats", nil, &stats); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			table := renderTable([]string{"Metric", "Value"}, buildStatsRows(&stats),
				[]columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(out, table)

			// The derived view (success rate, activity, agent popularity)
			// is computed client-side over a job snapshot.
			var page model.JobPage
			path := fmt.Sprintf("/v1/jobs?limit=%d", model.MaxJobListLimit)
			if err := client.do(cmd.Context(), http.MethodGet, path, nil, &page); err != nil {
				return err
			}
			fmt.Fprint(out, snapshotSummary(page.Jobs, time.Now()))
			return nil
		},
	}
}
