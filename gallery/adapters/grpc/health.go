package grpc

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"morty.dev/characters/gallery/core"
)

const ServiceName = "gallery"

// Server exposes grpc.health.v1 with a status derived from pinging the
// gallery dependencies.
type Server struct {
	log     *slog.Logger
	srv     *grpc.Server
	health  *health.Server
	pingers map[string]core.Pinger
	every   time.Duration
}

func NewServer(log *slog.Logger, pingers map[string]core.Pinger, every time.Duration) *Server {
	if every <= 0 {
		every = 15 * time.Second
	}
	s := &Server{
		log:     log,
		srv:     grpc.NewServer(),
		health:  health.NewServer(),
		pingers: pingers,
		every:   every,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	return s
}

// Probe pings every dependency and publishes the resulting statuses.
// The overall status is SERVING only when all dependencies answer.
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	names := make([]string, 0, len(s.pingers))
	for name := range s.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		st := healthpb.HealthCheckResponse_SERVING
		if err := s.pingers[name].Ping(ctx); err != nil {
			s.log.Warn("ping failed", "service", name, "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = st
		}
		s.health.SetServingStatus(ServiceName+"."+name, st)
	}
	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(ServiceName, overall)
	return overall
}

// Serve blocks until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Probe(ctx)

	go func() {
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Debug("shutting down grpc server")
				s.health.Shutdown()
				s.srv.GracefulStop()
				return
			case <-ticker.C:
				s.Probe(ctx)
			}
		}
	}()

	if err := s.srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}
