package cmd

import (
	"github.com/spf13/cobra"

	"github.com/orbitalops/liftoff/pkg/server"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the liftoff ingestion service",
	Long: `The ingestion service runs every entity on its schedule, exposes the
status API and serves Prometheus metrics until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	log, err := loggerFor(config.LoggingLevel)
	if err != nil {
		return err
	}

	log.Info("Configuration loaded")

	srv, err := server.NewServer(cmd.Context(), log, config)
	if err != nil {
		return err
	}

	return srv.Start(cmd.Context())
}
