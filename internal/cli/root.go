// Package cli provides the command-line interface for reviewlens.
package cli

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/reviewlens/internal/app"
	"github.com/law-makers/reviewlens/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "reviewlens",
	Short:   "Scrape and analyze e-commerce product reviews",
	Long:    `Reviewlens scrapes product reviews from Amazon and Flipkart and runs a five-stage analysis pipeline: sentiment, fake-detection, aspects, topics and insights.`,
	Version: "0.1.0",
}

// Execute runs the CLI. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if GetApp() != nil {
			return nil
		}
		cfg, err := config.Load(rootCmd)
		if err != nil {
			return err
		}
		application, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(application)
		return nil
	}

	rootCmd.PersistentPostRun = func(*cobra.Command, []string) {
		if a := GetApp(); a != nil {
			a.Close()
			SetApp(nil)
		}
	}

	rootCmd.PersistentPreRunE = wrapPreRun(rootCmd.PersistentPreRunE)
}

// wrapPreRun logs configuration failures before bubbling them up.
func wrapPreRun(next func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := next(cmd, args); err != nil {
			log.Error().Err(err).Msg("Initialization failed")
			return err
		}
		return nil
	}
}
