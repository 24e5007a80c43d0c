// Package ops serves health checks and metrics: over HTTP for load balancers
// and Prometheus, and as the standard gRPC health service.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/monitoring"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

const (
	checkTimeout  = 2 * time.Second
	probeInterval = 15 * time.Second
)

// Server runs the HTTP ops endpoints and the gRPC health service.
type Server struct {
	service string
	checks  map[string]Check

	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	grpcPort   int

	mu      sync.Mutex
	healthy bool
}

// New returns an ops server for service. A zero port disables that listener.
func New(service string, httpPort, grpcPort int, checks map[string]Check) *Server {
	s := &Server{
		service:  service,
		checks:   checks,
		health:   health.NewServer(),
		grpcPort: grpcPort,
		healthy:  true,
	}

	if httpPort > 0 {
		s.httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", httpPort),
			Handler:           s.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)
	return s
}

// Handler serves /health and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		failed := s.Probe(r.Context())
		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("FAIL " + strings.Join(failed, ",")))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Probe runs every check and publishes the outcome to the gRPC health
// service. It returns the names of the failed checks.
func (s *Server) Probe(ctx context.Context) []string {
	var failed []string
	for name, check := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(cctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("check", name).Msg("Health check failed")
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)

	status := healthpb.HealthCheckResponse_SERVING
	if len(failed) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)

	s.mu.Lock()
	if s.healthy && len(failed) > 0 {
		monitoring.Alert("Dependency unavailable", map[string]string{
			"service": s.service,
			"checks":  strings.Join(failed, ","),
		})
	}
	s.healthy = len(failed) == 0
	s.mu.Unlock()
	return failed
}

// Start opens the listeners and probes the dependencies until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.Probe(ctx)

	if s.grpcPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.grpcPort))
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		go func() {
			log.Info().Msgf("gRPC health server listening at %v", lis.Addr())
			if err := s.grpcServer.Serve(lis); err != nil {
				log.Error().Err(err).Msg("gRPC server error")
			}
		}()
	}

	if s.httpServer != nil {
		go func() {
			log.Info().Msgf("HTTP server for health checks and metrics started on %s", s.httpServer.Addr)
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP ops server error")
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Probe(ctx)
			}
		}
	}()
	return nil
}

// Shutdown marks the service as not serving and stops both listeners.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to stop HTTP ops server")
		}
	}
}

// HealthServer exposes the gRPC health service.
func (s *Server) HealthServer() healthpb.HealthServer {
	return s.health
}
