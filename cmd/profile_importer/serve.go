package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/profile-importer/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the extract, save and import endpoints used by the browser extension.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort > 0 {
		a.cfg.Server.Port = servePort
	}
	cfg, err := server.ConfigFrom(a.cfg)
	if err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	ready := a.importer.Ready()
	if !ready.Extraction {
		a.logger.Warn("no LLM API key configured; /extract and /import will fail")
	}
	if !ready.Notion {
		a.logger.Warn("no Notion API key configured; /save and /import will fail")
	}
	if cfg.JWT == nil {
		a.logger.Warn("server.jwt_secret not set; API is unauthenticated")
	}

	opts := []server.Option{
		server.WithLogger(a.logger),
		server.WithMetrics(a.metrics, prometheus.DefaultGatherer),
	}
	if a.saver.Configured() {
		opts = append(opts, server.WithSchemaSource(a.saver))
	}

	srv, err := server.New(cfg, a.importer, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	a.logger.Info("profile importer listening",
		zap.String("addr", srv.Addr()),
		zap.Bool("history", ready.History),
	)
	return srv.Start(ctx)
}
