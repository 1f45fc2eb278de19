// Package monitor watches the broker after submission: the order log
// poller and the connection health probe.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"intraday-core/internal/events"
	"intraday-core/internal/journal"
	"intraday-core/pkg/broker/kite"
	"intraday-core/pkg/db"
)

// ActivitySource supplies the broker order log.
type ActivitySource interface {
	Orders(ctx context.Context) ([]kite.OrderEvent, error)
}

// Stats summarizes the most recent order activity.
type Stats struct {
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	Complete    int     `json:"complete"`
	Rejected    int     `json:"rejected"`
	Cancelled   int     `json:"cancelled"`
	SuccessRate float64 `json:"success_rate"`
}

// OrderMonitor polls the broker order log on a fixed interval and keeps a
// normalized per-order view. Polls never overlap; a slow poll causes the
// next one to be skipped, not queued. Terminal statuses are monotonic: once
// an order is COMPLETE, REJECTED or CANCELLED it never changes again.
type OrderMonitor struct {
	source   ActivitySource
	interval time.Duration
	window   int
	journal  *journal.Journal
	bus      *events.Bus
	queries  *db.Queries

	inFlight atomic.Bool

	mu   sync.RWMutex
	byID map[string]kite.OrderEvent
}

// NewOrderMonitor wires an order monitor; journal, bus and queries may be
// nil in tests.
func NewOrderMonitor(source ActivitySource, interval time.Duration, window int,
	jnl *journal.Journal, bus *events.Bus, queries *db.Queries) *OrderMonitor {

	if window <= 0 {
		window = 20
	}
	return &OrderMonitor{
		source:   source,
		interval: interval,
		window:   window,
		journal:  jnl,
		bus:      bus,
		queries:  queries,
		byID:     make(map[string]kite.OrderEvent),
	}
}

// Run polls until the context is cancelled.
func (m *OrderMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("monitor: order poll started, interval %s", m.interval)
	m.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("monitor: order poll stopped")
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll runs one fetch-and-ingest cycle.
func (m *OrderMonitor) Poll(ctx context.Context) {
	if !m.inFlight.CompareAndSwap(false, true) {
		log.Printf("monitor: previous poll still running, skipping")
		return
	}
	defer m.inFlight.Store(false)

	orders, err := m.source.Orders(ctx)
	if err != nil {
		// Logged and dropped; the next cycle retries.
		log.Printf("monitor: order log fetch failed: %v", err)
		return
	}
	for _, ev := range orders {
		m.ingest(ctx, ev)
	}
}

func (m *OrderMonitor) ingest(ctx context.Context, ev kite.OrderEvent) {
	if ev.OrderID == "" {
		return
	}

	m.mu.Lock()
	prev, seen := m.byID[ev.OrderID]
	if seen && prev.Terminal() {
		m.mu.Unlock()
		return
	}
	changed := !seen || prev.Status != ev.Status
	m.byID[ev.OrderID] = ev
	m.mu.Unlock()

	if !changed {
		return
	}

	if m.bus != nil {
		m.bus.Publish(events.New(events.TypeOrderUpdate, ev.Symbol, ev))
	}
	if m.journal != nil {
		m.journal.Info(ev.Symbol, fmt.Sprintf("order %s is %s", ev.OrderID, ev.Status))
	}
	if m.queries != nil {
		if err := m.queries.UpdateOrderStatus(ctx, ev.OrderID, ev.Status, ev.Message); err != nil {
			log.Printf("monitor: persist order status failed: %v", err)
		}
	}
}

// Recent returns up to window orders, newest first.
func (m *OrderMonitor) Recent() []kite.OrderEvent {
	m.mu.RLock()
	out := make([]kite.OrderEvent, 0, len(m.byID))
	for _, ev := range m.byID {
		out = append(out, ev)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > m.window {
		out = out[:m.window]
	}
	return out
}

// Stats aggregates the recent window. An empty window yields zero counts
// and a zero success rate.
func (m *OrderMonitor) Stats() Stats {
	recent := m.Recent()

	var s Stats
	s.Total = len(recent)
	for _, ev := range recent {
		switch ev.Status {
		case kite.StatusComplete:
			s.Complete++
		case kite.StatusRejected:
			s.Rejected++
		case kite.StatusCancelled:
			s.Cancelled++
		default:
			s.Pending++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Complete) / float64(s.Total) * 100
	}
	return s
}
