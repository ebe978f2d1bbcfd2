package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/scoutline/scout-api/internal/domain/model"
	"github.com/scoutline/scout-api/internal/service"
)

// newJobsWatchCommand streams the job list to the terminal, re-rendering
// whenever the poller picks up a change. The poller stops refreshing on its
// own once every job has settled.
func newJobsWatchCommand(opts *clientOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch jobs until they settle",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			poller, err := service.NewSnapshotPoller(service.SnapshotPollerOptions{
				Fetch:    apiSnapshotFetch(client),
				Interval: interval,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			unsub, updates := poller.Subscribe()
			defer unsub()

			go func() {
				// Run returns nil when the context is cancelled.
				_ = poller.Run(ctx)
			}()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case snap, ok := <-updates:
					if !ok {
						return nil
					}
					sortJobsForWatch(snap.Jobs)
					fmt.Fprintf(out, "\n%s  (%d jobs)\n", snap.FetchedAt.Format(time.TimeOnly), len(snap.Jobs))
					fmt.Fprintln(out, renderTable(jobListHeaders, buildJobRows(snap.Jobs, time.Now()), jobListAligns))
					if !hasActiveJobs(snap.Jobs) {
						fmt.Fprintln(out, "All jobs settled")
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", service.DefaultPollInterval, "Refresh interval")
	return cmd
}

// apiSnapshotFetch adapts the HTTP client to the poller's fetch contract.
func apiSnapshotFetch(client *apiClient) service.SnapshotFetch {
	return func(ctx context.Context) ([]*model.ResearchJob, error) {
		var page model.JobPage
		path := fmt.Sprintf("/v1/jobs?limit=%d", model.MaxJobListLimit)
		if err := client.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		return page.Jobs, nil
	}
}

func hasActiveJobs(jobs []*model.ResearchJob) bool {
	for _, job := range jobs {
		if job.Status.Active() {
			return true
		}
	}
	return false
}
