package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Queries groups the persistence operations the engine and API use.
type Queries struct {
	db *sql.DB
}

// NewQueries creates a Queries instance over the database handle.
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// ----------------------------------------
// Orders
// ----------------------------------------

// InsertOrder persists a new submission attempt.
func (q *Queries) InsertOrder(ctx context.Context, o Order) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO orders (id, broker_order_id, symbol, action, quantity, order_type, price, status, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.BrokerOrderID, o.Symbol, o.Action, o.Quantity, o.OrderType, o.Price, o.Status, o.Message)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// UpdateOrderStatus records a broker status transition.
func (q *Queries) UpdateOrderStatus(ctx context.Context, brokerOrderID, status, message string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE broker_order_id = ?
	`, status, message, brokerOrderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// RecentOrders returns the newest orders first.
func (q *Queries) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, COALESCE(broker_order_id, ''), symbol, action, quantity, order_type,
		       price, status, COALESCE(message, ''), created_at, updated_at
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.BrokerOrderID, &o.Symbol, &o.Action, &o.Quantity,
			&o.OrderType, &o.Price, &o.Status, &o.Message, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ----------------------------------------
// Positions
// ----------------------------------------

// InsertPosition persists a newly opened position.
func (q *Queries) InsertPosition(ctx context.Context, p Position) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO positions (id, symbol, direction, quantity, entry_price, stop_loss, target, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Symbol, p.Direction, p.Quantity, p.EntryPrice, p.StopLoss, p.Target, p.Status)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// ClosePosition records the exit of a position.
func (q *Queries) ClosePosition(ctx context.Context, id string, exitPrice, pnl float64, reason string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, exit_price = ?, pnl = ?, exit_reason = ?, closed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, PositionClosed, exitPrice, pnl, reason, id, PositionOpen)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenPositions returns all positions still open.
func (q *Queries) OpenPositions(ctx context.Context) ([]Position, error) {
	return q.queryPositions(ctx, `
		SELECT id, symbol, direction, quantity, entry_price, stop_loss, target,
		       exit_price, COALESCE(exit_reason, ''), pnl, status, opened_at, closed_at
		FROM positions WHERE status = ? ORDER BY opened_at DESC
	`, PositionOpen)
}

// RecentPositions returns the newest positions first, open or closed.
func (q *Queries) RecentPositions(ctx context.Context, limit int) ([]Position, error) {
	return q.queryPositions(ctx, `
		SELECT id, symbol, direction, quantity, entry_price, stop_loss, target,
		       exit_price, COALESCE(exit_reason, ''), pnl, status, opened_at, closed_at
		FROM positions ORDER BY opened_at DESC LIMIT ?
	`, limit)
}

func (q *Queries) queryPositions(ctx context.Context, query string, args ...any) ([]Position, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Direction, &p.Quantity, &p.EntryPrice,
			&p.StopLoss, &p.Target, &p.ExitPrice, &p.ExitReason, &p.PnL, &p.Status,
			&p.OpenedAt, &p.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ----------------------------------------
// Strategy logs
// ----------------------------------------

// InsertLog persists one strategy log line.
func (q *Queries) InsertLog(ctx context.Context, symbol, level, message string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO strategy_logs (symbol, level, message) VALUES (?, ?, ?)
	`, symbol, level, message)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// RecentLogs returns the newest log lines first.
func (q *Queries) RecentLogs(ctx context.Context, limit int) ([]StrategyLog, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, COALESCE(symbol, ''), level, message, created_at
		FROM strategy_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var logs []StrategyLog
	for rows.Next() {
		var l StrategyLog
		if err := rows.Scan(&l.ID, &l.Symbol, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
