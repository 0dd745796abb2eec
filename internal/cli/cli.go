package cli

import (
	"fmt"
	"os"

	"navigator-backend/pkg/config"

	"github.com/spf13/cobra"
)

var cfg *config.Config

// rootCmd runs the server when no subcommand is given
var rootCmd = &cobra.Command{
	Use:   "navigator",
	Short: "College inbox navigator backend",
	Long: `Ingests a student's inbox, extracts deadlines, schedule alerts and
course documents, and serves them together with semantic search.

Examples:
  navigator serve               # HTTP API, push listener and reminders
  navigator sync --all          # one-shot sync for every connected inbox
  navigator sync --user <id>    # one-shot sync for a single user
  navigator migrate             # create or update database tables`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute loads configuration and runs the selected command
func Execute() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(migrateCmd)
}
