// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

// Package observability provides HTTP endpoints for metrics and health probes.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the service is ready to serve requests.
type ReadinessChecker func() bool

// Metrics contains the TagForge Prometheus metrics.
type Metrics struct {
	// ResultsTotal counts engine outcomes by operation and result kind.
	ResultsTotal *prometheus.CounterVec

	// StorageFailures counts swallowed persistence errors by operation.
	// Fail-soft storage means these never surface to callers; the counter
	// is the only place they add up.
	StorageFailures *prometheus.CounterVec

	// JournalFailures counts dropped purchase journal records.
	JournalFailures prometheus.Counter
}

// NewMetrics creates and registers the TagForge metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tagforge_results_total",
				Help: "Total engine operation outcomes by operation and result",
			},
			[]string{"operation", "result"},
		),
		StorageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tagforge_storage_failures_total",
				Help: "Total swallowed storage errors by operation",
			},
			[]string{"operation"},
		),
		JournalFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tagforge_journal_failures_total",
				Help: "Total purchase journal records dropped",
			},
		),
	}

	reg.MustRegister(m.ResultsTotal)
	reg.MustRegister(m.StorageFailures)
	reg.MustRegister(m.JournalFailures)

	return m
}

// ObserveResult records one engine outcome. Safe on a nil receiver so the
// engine can run without metrics wired.
func (m *Metrics) ObserveResult(operation, result string) {
	if m == nil {
		return
	}
	m.ResultsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveStorageFailure records one swallowed storage error.
func (m *Metrics) ObserveStorageFailure(operation string) {
	if m == nil {
		return
	}
	m.StorageFailures.WithLabelValues(operation).Inc()
}

// ObserveJournalFailure records one dropped journal record.
func (m *Metrics) ObserveJournalFailure() {
	if m == nil {
		return
	}
	m.JournalFailures.Inc()
}

// Server provides HTTP endpoints for metrics and health probes.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server.
// addr is a listen address in "host:port" format.
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	// Own registry to avoid polluting the global one.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  readinessChecker,
	}
}

// Metrics returns the metrics set for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving observability endpoints. It returns an error channel
// that receives any error from the HTTP server after startup; the channel
// is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state on failure so the server can be stopped again.
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on, or empty if not
// running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleLiveness returns 200 while the process is running.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 when ready, 503 otherwise.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}
