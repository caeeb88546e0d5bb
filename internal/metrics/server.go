package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultAddress is where the metrics endpoint listens unless configured
const DefaultAddress = "127.0.0.1:9464"

// Server exposes a registry at /metrics
type Server struct {
	server       *http.Server
	logger       *zap.Logger
	shutdownOnce sync.Once
}

// NewServer creates a stopped metrics server for reg. With a nil reg the
// endpoint answers 503.
func NewServer(address string, reg *prometheus.Registry, logger *zap.Logger) *Server {
	if address == "" {
		address = DefaultAddress
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	} else {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintln(w, "metrics collection is disabled")
		})
	}

	return &Server{
		server: &http.Server{
			Addr:         address,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	s.logger.Info("metrics server listening", zap.String("address", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("metrics server shutdown: %w", err)
			return
		}
		s.logger.Info("metrics server stopped")
	})
	return shutdownErr
}
