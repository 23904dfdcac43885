package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/law-makers/reviewlens/internal/server"
)

// serveCmd runs the HTTP API until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the reviewlens HTTP API. Scrape jobs run in a background
worker pool; analysis results are cached for the configured TTL.`,
	Example: `  # Serve on the default address
  reviewlens serve

  # Serve on a custom address with a Postgres store
  reviewlens serve --listen :9000 --database-url postgres://localhost/reviewlens`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a := GetApp()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.Config.ListenAddr, a.Tracker, a.Store, a.Runner)
	return srv.ListenAndServe(ctx)
}
