package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrShuttingDown is reported by Readiness once draining has started.
var ErrShuttingDown = errors.New("shutting down")

// HealthChecker exposes liveness and readiness checks.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// ReadinessSource reports whether dependencies are usable.
type ReadinessSource interface {
	Ready(ctx context.Context) error
}

// Monitor answers /healthz and /readyz.
type Monitor struct {
	deps     ReadinessSource
	draining atomic.Bool
	log      *slog.Logger
}

// NewMonitor creates a Monitor backed by deps, which may be nil.
func NewMonitor(deps ReadinessSource, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{deps: deps, log: log}
}

// Liveness reports success while the process is serving.
func (m *Monitor) Liveness(ctx context.Context) error {
	m.log.Debug("liveness check called")
	return nil
}

// Readiness fails while draining or when a critical dependency is down.
func (m *Monitor) Readiness(ctx context.Context) error {
	if m.draining.Load() {
		return ErrShuttingDown
	}
	if m.deps == nil {
		return nil
	}
	return m.deps.Ready(ctx)
}

// Drain marks the service as not ready so load balancers stop routing to it.
func (m *Monitor) Drain() {
	if m.draining.CompareAndSwap(false, true) {
		m.log.Info("readiness switched to draining")
	}
}
