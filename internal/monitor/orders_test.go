package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"intraday-core/pkg/broker/kite"
)

type fakeSource struct {
	mu     sync.Mutex
	orders []kite.OrderEvent
	err    error
	block  chan struct{}
}

func (f *fakeSource) Orders(ctx context.Context) ([]kite.OrderEvent, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]kite.OrderEvent, len(f.orders))
	copy(out, f.orders)
	return out, nil
}

func (f *fakeSource) set(orders []kite.OrderEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
}

func eventAt(id, status string, minutesAgo int) kite.OrderEvent {
	return kite.OrderEvent{
		OrderID:   id,
		Symbol:    "RELIANCE",
		Action:    "BUY",
		Quantity:  10,
		Status:    status,
		Timestamp: time.Now().Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func TestStatsCountsAndSuccessRate(t *testing.T) {
	src := &fakeSource{}
	var orders []kite.OrderEvent
	for i := 0; i < 12; i++ {
		orders = append(orders, eventAt(fmt.Sprintf("c%d", i), kite.StatusComplete, i))
	}
	for i := 0; i < 3; i++ {
		orders = append(orders, eventAt(fmt.Sprintf("r%d", i), kite.StatusRejected, 20+i))
	}
	for i := 0; i < 5; i++ {
		orders = append(orders, eventAt(fmt.Sprintf("p%d", i), kite.StatusPending, 30+i))
	}
	src.set(orders)

	m := NewOrderMonitor(src, time.Second, 20, nil, nil, nil)
	m.Poll(context.Background())

	stats := m.Stats()
	if stats.Total != 20 {
		t.Fatalf("total = %d, want 20", stats.Total)
	}
	if stats.Complete != 12 || stats.Rejected != 3 || stats.Pending != 5 || stats.Cancelled != 0 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.SuccessRate != 60 {
		t.Fatalf("success rate = %v, want 60", stats.SuccessRate)
	}
}

func TestStatsEmptyWindow(t *testing.T) {
	m := NewOrderMonitor(&fakeSource{}, time.Second, 20, nil, nil, nil)
	m.Poll(context.Background())

	stats := m.Stats()
	if stats.Total != 0 || stats.SuccessRate != 0 {
		t.Fatalf("stats = %+v, want zeroes", stats)
	}
}

func TestStatsWindowKeepsNewest(t *testing.T) {
	src := &fakeSource{}
	var orders []kite.OrderEvent
	// 5 old completes, then 20 newer pendings that should fill the window.
	for i := 0; i < 5; i++ {
		orders = append(orders, eventAt(fmt.Sprintf("old%d", i), kite.StatusComplete, 100+i))
	}
	for i := 0; i < 20; i++ {
		orders = append(orders, eventAt(fmt.Sprintf("new%d", i), kite.StatusPending, i))
	}
	src.set(orders)

	m := NewOrderMonitor(src, time.Second, 20, nil, nil, nil)
	m.Poll(context.Background())

	stats := m.Stats()
	if stats.Total != 20 || stats.Complete != 0 || stats.Pending != 20 {
		t.Fatalf("stats = %+v, want 20 newest pendings only", stats)
	}
}

func TestTerminalStatusIsMonotonic(t *testing.T) {
	src := &fakeSource{}
	src.set([]kite.OrderEvent{eventAt("1", kite.StatusComplete, 0)})

	m := NewOrderMonitor(src, time.Second, 20, nil, nil, nil)
	m.Poll(context.Background())

	// A later poll reporting a regression must not override COMPLETE.
	src.set([]kite.OrderEvent{eventAt("1", kite.StatusPending, 0)})
	m.Poll(context.Background())

	recent := m.Recent()
	if len(recent) != 1 || recent[0].Status != kite.StatusComplete {
		t.Fatalf("recent = %+v, want COMPLETE preserved", recent)
	}
}

func TestPollErrorLeavesStateIntact(t *testing.T) {
	src := &fakeSource{}
	src.set([]kite.OrderEvent{eventAt("1", kite.StatusComplete, 0)})

	m := NewOrderMonitor(src, time.Second, 20, nil, nil, nil)
	m.Poll(context.Background())

	src.mu.Lock()
	src.err = errors.New("broker unavailable")
	src.mu.Unlock()
	m.Poll(context.Background())

	if stats := m.Stats(); stats.Total != 1 || stats.Complete != 1 {
		t.Fatalf("stats after failed poll = %+v", stats)
	}
}

func TestOverlappingPollIsSkipped(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	m := NewOrderMonitor(src, time.Second, 20, nil, nil, nil)

	done := make(chan struct{})
	go func() {
		m.Poll(context.Background())
		close(done)
	}()

	// Wait for the first poll to take the guard.
	deadline := time.After(time.Second)
	for !m.inFlight.Load() {
		select {
		case <-deadline:
			t.Fatal("first poll never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Second poll must return immediately instead of queueing.
	m.Poll(context.Background())

	close(src.block)
	<-done
}
