package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	opts := &clientOptions{}

	rootCmd := &cobra.Command{
		Use:           "scoutctl",
		Short:         "Scout research job CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "api",
		envOrDefault("SCOUT_API_URL", "http://localhost:8080"),
		"Base URL of the scout API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token",
		os.Getenv("SCOUT_API_TOKEN"),
		"Bearer token for authentication")
	rootCmd.PersistentFlags().StringVar(&opts.owner, "owner",
		os.Getenv("SCOUT_OWNER"),
		"Owner id sent as X-Owner-ID (dev mode only)")

	rootCmd.AddCommand(newJobsCommand(opts))
	rootCmd.AddCommand(newHealthCommand(opts))

	return rootCmd
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
