// Package grpchealth exposes the standard grpc.health.v1 service so
// orchestrators can probe the bridge without an API token.
package grpchealth

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// IngestService is the service name whose status tracks the ingest path.
const IngestService = "punchbridge.ingest"

type Server struct {
	addr   string
	logger *zap.Logger
	grpc   *grpc.Server
	health *health.Server
}

// New registers the health service.  Both IngestService and the overall
// server ("") start NOT_SERVING until the first SetServing call.
func New(addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{addr: addr, logger: logger, grpc: gs, health: hs}
	s.SetServing(false)
	return s
}

// SetServing implements the health monitor's reporter.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(IngestService, status)
	s.health.SetServingStatus("", status)
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve runs on an existing listener.  It returns nil after Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown stops gracefully, falling back to a hard stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		return ctx.Err()
	}
}
