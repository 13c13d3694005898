package grpc_control

import (
	"context"
	"fmt"
	"net"
	"sync"

	"fx-agent/src/logger"
	"fx-agent/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// DecisionService is the name reported by the health service.
const DecisionService = "fxagent.Decision"

// -----------------------------------------------------------------------------

// ControlServer exposes the gRPC health and reflection services so that
// orchestrators can probe the decision service.
type ControlServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Server *grpc.Server
	Health *health.Server
	mu     sync.Mutex
}

// -----------------------------------------------------------------------------

func NewControlServer(cfg *models.MConfig, log *logger.Logger) *ControlServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus(DecisionService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &ControlServer{
		Config: cfg,
		Logger: log,
		Server: srv,
		Health: hs,
	}
}

// -----------------------------------------------------------------------------

// SetServing flips the status of the decision service.
func (s *ControlServer) SetServing(serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus(DecisionService, status)
	s.Health.SetServingStatus("", status)
	s.Logger.Info("gRPC health for %s: %s", DecisionService, status)
}

// -----------------------------------------------------------------------------

// Serve blocks serving on lis until ctx is done.
func (s *ControlServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.Logger.Info("gRPC control server listening on %s", lis.Addr())
	if err := s.Server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Start listens on grpc_port and serves until ctx is done.
func (s *ControlServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

// -----------------------------------------------------------------------------

func (s *ControlServer) Stop() {
	s.Health.Shutdown()
	s.Server.GracefulStop()
}
