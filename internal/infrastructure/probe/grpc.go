package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

// GRPCChecker probes gRPC endpoints via the standard health service.
// Connections are dialed lazily and reused across probes of the same
// target.
type GRPCChecker struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
	opts  []grpc.DialOption
}

// NewGRPCChecker creates a gRPC checker. Extra dial options are applied
// after the defaults, so callers can attach interceptors.
func NewGRPCChecker(opts ...grpc.DialOption) *GRPCChecker {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		// Keepalive detects broken connections between probes (reduced frequency to avoid "too_many_pings")
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
	}

	return &GRPCChecker{
		conns: make(map[string]*grpc.ClientConn),
		opts:  append(base, opts...),
	}
}

// Check queries the health service at the probe target. The probe is
// healthy only when the service reports SERVING.
func (g *GRPCChecker) Check(ctx context.Context, cfg types.ProbeConfig) error {
	conn, err := g.conn(cfg.Target)
	if err != nil {
		return err
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: cfg.Service,
	})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service reported %s", resp.GetStatus())
	}

	return nil
}

// Close tears down all cached connections
func (g *GRPCChecker) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var firstErr error
	for target, conn := range g.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(g.conns, target)
	}

	return firstErr
}

func (g *GRPCChecker) conn(target string) (*grpc.ClientConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if conn, ok := g.conns[target]; ok {
		return conn, nil
	}

	conn, err := grpc.NewClient(target, g.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}

	g.conns[target] = conn
	return conn, nil
}
