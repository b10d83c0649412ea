package main

import (
	"github.com/jonathan/placement-portal/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for jobs, eligibility checks and round results.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Port
	if servePort > 0 {
		port = servePort
	}

	srv := server.New(server.Config{Port: port}, server.Deps{
		Jobs:      a.jobs,
		Bulk:      a.pipeline,
		Catalog:   a.db,
		Directory: a.db,
		Results:   a.db.Results(),
		Ping:      a.db.Ping,
	}, a.logger.Named("http"))

	return srv.Start()
}
