package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Healthy   bool            `json:"healthy"`
	Services  map[string]bool `json:"services"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// HealthMonitor keeps the latest dependency health snapshot in memory.
type HealthMonitor struct {
	checks   map[string]PingFunc
	interval time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &HealthMonitor{checks: map[string]PingFunc{}, interval: interval, logger: logger}
}

// Register adds a named dependency check. Call before Start.
func (h *HealthMonitor) Register(name string, ping PingFunc) {
	h.checks[name] = ping
}

// Status returns latest stored health snapshot.
func (h *HealthMonitor) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Check pings every registered dependency once and stores the result.
func (h *HealthMonitor) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true, Services: make(map[string]bool, len(h.checks))}
	for name, ping := range h.checks {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := ping(pingCtx)
		cancel()
		status.Services[name] = err == nil
		if err != nil {
			status.Healthy = false
			h.logger.Warn("dependency health check failed", zap.String("service", name), zap.Error(err))
		}
	}
	status.CheckedAt = time.Now()

	h.mu.Lock()
	h.current = status
	h.mu.Unlock()
	return status
}

// Start performs periodic health checks until ctx is cancelled.
func (h *HealthMonitor) Start(ctx context.Context) {
	h.Check(ctx)
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Check(ctx)
			}
		}
	}()
}
