// Package grpc serves the standard gRPC health service, fed by a periodic store ping.
package grpc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	ServiceName = "ecofinds.Marketplace"

	defaultCheckInterval = 10 * time.Second
	pingTimeout          = 2 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	Server   *grpc.Server
	health   *health.Server
	pinger   Pinger
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewHealthServer(pinger Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		Server:   srv,
		health:   hs,
		pinger:   pinger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Check pings the store once and publishes the result.
func (h *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "store ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
	h.health.SetServingStatus("", status)
	return status
}

// StartChecks runs Check immediately and then every interval until Stop.
func (h *HealthServer) StartChecks(ctx context.Context) {
	h.Check(ctx)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Check(ctx)
			case <-h.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the check loop, marks the service as not serving and drains the server.
func (h *HealthServer) Stop() {
	close(h.stop)
	h.wg.Wait()
	h.health.Shutdown()
	h.Server.GracefulStop()
}
