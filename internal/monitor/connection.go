package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"intraday-core/pkg/broker/kite"
)

// HealthChecker probes broker connectivity.
type HealthChecker interface {
	Profile(ctx context.Context) (kite.Profile, error)
}

const maxConsecutiveFailures = 3

// ConnectionMonitor pings the broker on an interval and calls onFatal after
// three consecutive failures. A single success resets the counter and
// re-arms the trip, so a later outage tears the session down again.
type ConnectionMonitor struct {
	checker  HealthChecker
	interval time.Duration
	onFatal  func(error)

	mu       sync.RWMutex
	failures int
	healthy  bool
	tripped  bool
}

// NewConnectionMonitor wires a connection monitor.
func NewConnectionMonitor(checker HealthChecker, interval time.Duration, onFatal func(error)) *ConnectionMonitor {
	return &ConnectionMonitor{
		checker:  checker,
		interval: interval,
		onFatal:  onFatal,
		healthy:  true,
	}
}

// Run probes until the context is cancelled.
func (m *ConnectionMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one probe.
func (m *ConnectionMonitor) Check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_, err := m.checker.Profile(probeCtx)
	cancel()

	m.mu.Lock()
	if err == nil {
		m.failures = 0
		m.healthy = true
		m.tripped = false
		m.mu.Unlock()
		return
	}

	m.failures++
	m.healthy = false
	failures := m.failures
	trip := failures >= maxConsecutiveFailures && !m.tripped
	if trip {
		m.tripped = true
	}
	m.mu.Unlock()

	log.Printf("monitor: broker probe failed (%d consecutive): %v", failures, err)
	if trip && m.onFatal != nil {
		m.onFatal(err)
	}
}

// Healthy reports the result of the last probe.
func (m *ConnectionMonitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}
