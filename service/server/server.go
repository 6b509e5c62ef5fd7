package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/swapexport/service/config"
	"github.com/brojonat/swapexport/service/metrics"
	"github.com/brojonat/swapexport/service/nats"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server for the export service.
type Server struct {
	addr      string
	cfg       *config.Config
	exporter  Exporter
	store     *ExportStore
	publisher nats.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The publisher is optional - if nil, export events are not published.
// The metrics is optional - if nil, the metrics endpoint is not available.
func New(cfg *config.Config, exporter Exporter, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		addr:      cfg.ServerAddr,
		cfg:       cfg,
		exporter:  exporter,
		store:     NewExportStore(cfg.ExportCacheTTL),
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// an export request waits for the whole paginated fetch
		WriteTimeout: cfg.FetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, name)(h))
	}

	route("POST /api/v1/exports", "/api/v1/exports",
		handleCreateExport(s.exporter, s.store, s.publisher, s.cfg.PreviewRows, s.logger))
	route("GET /api/v1/exports/{id}", "/api/v1/exports/{id}",
		handleGetExport(s.store, s.cfg.PreviewRows, s.logger))
	route("GET /api/v1/exports/{id}/csv", "/api/v1/exports/{id}/csv",
		handleDownloadCSV(s.store, s.logger))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	if s.publisher == nil {
		s.logger.Warn("NATS publisher not configured, export events disabled")
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
