package grpc

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/aescanero/kvarea/pkg/ports"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the storage service
const ServiceName = "kvarea"

// Server represents the gRPC API server
type Server struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	store    ports.Store
	checks   map[string]ports.HealthChecker
	logger   *zap.Logger
}

// Config holds gRPC server configuration
type Config struct {
	Addr string
	// Store is pinged to derive the serving status when it implements ports.Pinger
	Store ports.Store
	// Checks must all pass for the service to be SERVING
	Checks map[string]ports.HealthChecker
	Logger *zap.Logger
}

// NewServer creates a new gRPC server
func NewServer(cfg *Config) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	s := &Server{
		server:   grpcServer,
		listener: listener,
		health:   healthServer,
		store:    cfg.Store,
		checks:   cfg.Checks,
		logger:   logger,
	}

	s.SetServing(true)

	return s, nil
}

// Addr returns the listener address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// SetServing updates the reported health of the storage service
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// CheckHealth pings the store, runs every configured check and updates the
// serving status. Any failure makes the service NOT_SERVING.
func (s *Server) CheckHealth(ctx context.Context) bool {
	serving := true

	if pinger, ok := s.store.(ports.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			s.logger.Warn("store health check failed", zap.Error(err))
			serving = false
		}
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checks[name].CheckHealth(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			serving = false
		}
	}

	s.SetServing(serving)
	return serving
}

// Watch runs CheckHealth every interval until ctx is done
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			s.CheckHealth(checkCtx)
			cancel()
		}
	}
}

// Start starts the gRPC server
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gRPC server")

	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.server.Stop()
	}

	s.logger.Info("gRPC server shut down complete")
	return nil
}
