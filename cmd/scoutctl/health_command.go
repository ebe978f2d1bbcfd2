package main

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"
)

type healthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Features map[string]bool   `json:"features"`
}

func newHealthCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var status healthStatus
			err := client.do(cmd.Context(), http.MethodGet, "/healthz", nil, &status)
			// A 503 still carries a useful body.
			var apiErr *apiError
			if err != nil && (!errors.As(err, &apiErr) || status.Status == "") {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", status.Status)
			for _, name := range sortedKeys(status.Services) {
				fmt.Fprintf(out, "  %s: %s\n", name, status.Services[name])
			}
			if len(status.Features) > 0 {
				fmt.Fprintln(out, "Features:")
				for _, name := range sortedKeys(status.Features) {
					fmt.Fprintf(out, "  %s: %t\n", name, status.Features[name])
				}
			}
			if status.Status != "ok" {
				return fmt.Errorf("server reported %q", status.Status)
			}
			return nil
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
