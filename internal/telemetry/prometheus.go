package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// MetricsPath is where the Prometheus exporter is served
	MetricsPath = "/metrics"

	metricsReadHeaderTimeout = 5 * time.Second
)

// MetricsServer serves a Prometheus registry over HTTP
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewMetricsServer binds address and prepares a /metrics handler for gatherer.
// Serving starts with Start.
func NewMetricsServer(address string, gatherer prometheus.Gatherer) (*MetricsServer, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &MetricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		},
		listener: listener,
	}, nil
}

// Addr returns the bound address
func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background until Shutdown
func (s *MetricsServer) Start() {
	go func() {
		slog.Info("Serving Prometheus metrics", "address", s.Addr(), "path", MetricsPath)
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()
}

// Shutdown stops the server
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	// Serve closes the listener itself; this covers a server that never started
	_ = s.listener.Close()
	return err
}
