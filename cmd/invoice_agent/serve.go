package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/invoice-reconciler/internal/server"
	"github.com/jonathan/invoice-reconciler/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server exposing POST /normalize, POST /compare, POST /compare/stream and GET /health.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080 or PORT env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	ctx := context.Background()
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	srv := server.New(server.Config{
		Port:      cfg.Port,
		Pipeline:  pipelineOptions(cfg),
		RateLimit: ratelimit.LoadConfig(),
	}, client)

	return srv.Start(ctx)
}
