package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"morty.dev/characters/gallery/core"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestProbe(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("down") })

	s := NewServer(log, map[string]core.Pinger{"kv": ok, "api": ok}, 0)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, s.Probe(t.Context()))

	s = NewServer(log, map[string]core.Pinger{"kv": ok, "api": down}, 0)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.Probe(t.Context()))
}

func TestServeHealth(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("broker down") })
	s := NewServer(log, map[string]core.Pinger{"kv": ok, "broker": down}, time.Hour)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(t.Context(), &healthpb.HealthCheckRequest{Service: ServiceName + ".kv"})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	resp, err = client.Check(t.Context(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("grpc server did not stop")
	}
}
