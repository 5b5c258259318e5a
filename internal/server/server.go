// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the digest ranking pipeline over HTTP. A client
// uploads a digest .eml with a reader profile and receives the ranked
// recommendations; the JSON report is also written to the output directory.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/digest-ranker/internal/llm"
	"github.com/pdiddy/digest-ranker/internal/metrics"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Config types.Config

	// NewService creates the ranking service for one upload.
	NewService func() (llm.Service, error)

	// Metrics is optional. When set, Gatherer backs GET /metrics.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Logger defaults to zap.L().
	Logger *zap.Logger

	// Now defaults to time.Now and dates the written reports.
	Now func() time.Time
}

// Server handles digest uploads.
type Server struct {
	cfg        types.Config
	newService func() (llm.Service, error)
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	limiter    *rate.Limiter
	log        *zap.Logger
	now        func() time.Time
}

// New creates a Server. A non-positive Server.RequestsPerMinute disables
// upload throttling.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	limit := rate.Inf
	burst := 0
	if rpm := opts.Config.Server.RequestsPerMinute; rpm > 0 {
		limit = rate.Every(time.Minute / time.Duration(rpm))
		burst = rpm
	}

	return &Server{
		cfg:        opts.Config,
		newService: opts.NewService,
		metrics:    opts.Metrics,
		gatherer:   opts.Gatherer,
		limiter:    rate.NewLimiter(limit, burst),
		log:        log,
		now:        now,
	}
}

// Handler returns the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Post("/upload", s.handleUpload)

	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.log, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON sends body with code. The status is already on the wire when
// encoding fails, so the error is only logged.
func writeJSON(w http.ResponseWriter, log *zap.Logger, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug("write response", zap.Int("status", code), zap.Error(err))
	}
}
