package db

import (
	"context"
	"errors"
	"testing"
)

func newTestDB(t *testing.T) *Queries {
	t.Helper()
	d, err := New(":memory:")
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := ApplyMigrations(d); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return NewQueries(d.DB)
}

func TestOrderRoundTrip(t *testing.T) {
	q := newTestDB(t)
	ctx := context.Background()

	order := Order{
		ID:            "ord-1",
		BrokerOrderID: "240831000001",
		Symbol:        "RELIANCE",
		Action:        "BUY",
		Quantity:      10,
		OrderType:     "LIMIT",
		Price:         101.3,
		Status:        "PENDING",
	}
	if err := q.InsertOrder(ctx, order); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := q.UpdateOrderStatus(ctx, "240831000001", "COMPLETE", "filled"); err != nil {
		t.Fatalf("update: %v", err)
	}

	orders, err := q.RecentOrders(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	if orders[0].Status != "COMPLETE" || orders[0].Message != "filled" {
		t.Fatalf("order = %+v", orders[0])
	}
}

func TestPositionLifecycle(t *testing.T) {
	q := newTestDB(t)
	ctx := context.Background()

	pos := Position{
		ID:         "pos-1",
		Symbol:     "RELIANCE",
		Direction:  "LONG",
		Quantity:   10,
		EntryPrice: 101.3,
		StopLoss:   99.5,
		Target:     110.3,
		Status:     PositionOpen,
	}
	if err := q.InsertPosition(ctx, pos); err != nil {
		t.Fatalf("insert: %v", err)
	}

	open, err := q.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("open positions: %v", err)
	}
	if len(open) != 1 || open[0].Symbol != "RELIANCE" {
		t.Fatalf("open = %+v", open)
	}

	if err := q.ClosePosition(ctx, "pos-1", 110.3, 90, "target hit"); err != nil {
		t.Fatalf("close: %v", err)
	}

	open, err = q.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("open positions after close: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("still open: %+v", open)
	}

	recent, err := q.RecentPositions(ctx, 5)
	if err != nil {
		t.Fatalf("recent positions: %v", err)
	}
	if len(recent) != 1 || recent[0].Status != PositionClosed || recent[0].PnL != 90 {
		t.Fatalf("recent = %+v", recent)
	}
	if recent[0].ExitReason != "target hit" || recent[0].ClosedAt == nil {
		t.Fatalf("exit details missing: %+v", recent[0])
	}

	// Closing twice reports not found.
	if err := q.ClosePosition(ctx, "pos-1", 110.3, 90, "target hit"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second close err = %v, want ErrNotFound", err)
	}
}

func TestStrategyLogs(t *testing.T) {
	q := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.InsertLog(ctx, "RELIANCE", "INFO", "analysis cycle complete"); err != nil {
			t.Fatalf("insert log: %v", err)
		}
	}

	logs, err := q.RecentLogs(ctx, 2)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	if logs[0].ID < logs[1].ID {
		t.Fatal("logs not in newest-first order")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	d, err := New(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(d); err != nil {
			t.Fatalf("migration pass %d: %v", i+1, err)
		}
	}
}
