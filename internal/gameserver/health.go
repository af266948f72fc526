package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the gRPC health service reporting the tick loop.
const HealthServiceName = "warband.ActionQueue"

// HealthReporter mirrors Driver.Healthy into a gRPC health server.
type HealthReporter struct {
	driver   *Driver
	server   *health.Server
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	serving  bool
}

// NewHealthReporter returns a reporter polling driver every interval.
//
// Precondition: interval > 0.
func NewHealthReporter(driver *Driver, server *health.Server, interval time.Duration, now func() time.Time, logger *zap.Logger) *HealthReporter {
	return &HealthReporter{driver: driver, server: server, interval: interval, now: now, logger: logger}
}

// Report sets the health status once and returns whether the loop is healthy.
// The status starts NOT_SERVING until the first tick has run.
func (h *HealthReporter) Report() bool {
	ok := h.driver.Healthy(h.now())
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus(HealthServiceName, status)
	if ok != h.serving {
		h.logger.Info("tick loop health changed", zap.Bool("healthy", ok))
		h.serving = ok
	}
	return ok
}

// Start reports until ctx is cancelled.
func (h *HealthReporter) Start(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	h.Report()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Report()
		}
	}
}

// Stop marks every service NOT_SERVING.
func (h *HealthReporter) Stop(context.Context) error {
	h.server.Shutdown()
	return nil
}
