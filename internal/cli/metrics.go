// ABOUTME: Prometheus metrics endpoint
// ABOUTME: Registers renderer metrics and serves them over HTTP while playing
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsPath = "/metrics"

// metricsServer exposes renderer and runtime metrics on a private registry
type metricsServer struct {
	metrics *render.Metrics
	server  *http.Server
	logger  *zap.Logger
}

// startMetrics listens on addr and serves /metrics until shutdown
func startMetrics(addr string, logger *zap.Logger) (*metricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	metrics, err := render.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s := &metricsServer{
		metrics: metrics,
		server:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger:  logger,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("Serving metrics", zap.String("addr", listener.Addr().String()), zap.String("path", metricsPath))
	return s, nil
}

func (s *metricsServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}
}
