// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-ranker/internal/llm"
	"github.com/pdiddy/digest-ranker/internal/metrics"
	"github.com/pdiddy/digest-ranker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the digest upload endpoint",
	Long: `Serve starts an HTTP server. POST /upload accepts a multipart form with
an eml_file (the digest .eml) and a user_bio (the reader profile) and returns
the top_n recommendations as JSON. GET /healthz reports liveness and
GET /metrics exposes Prometheus metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	// Fail at startup rather than on the first upload.
	if _, err := llm.New(cfg.Ranking); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		return err
	}

	ranking := cfg.Ranking
	srv := server.New(server.Options{
		Config:     *cfg,
		NewService: func() (llm.Service, error) { return llm.New(ranking) },
		Metrics:    m,
		Gatherer:   reg,
		Logger:     zap.L(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
