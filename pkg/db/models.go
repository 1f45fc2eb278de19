package db

import "time"

// Order is one submission attempt as persisted.
type Order struct {
	ID            string    `json:"id"`
	BrokerOrderID string    `json:"broker_order_id"`
	Symbol        string    `json:"symbol"`
	Action        string    `json:"action"`
	Quantity      int       `json:"quantity"`
	OrderType     string    `json:"order_type"`
	Price         float64   `json:"price"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Position lifecycle statuses.
const (
	PositionOpen   = "OPEN"
	PositionClosed = "CLOSED"
)

// Position is one trade from entry to exit as persisted.
type Position struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Direction  string     `json:"direction"`
	Quantity   int        `json:"quantity"`
	EntryPrice float64    `json:"entry_price"`
	StopLoss   float64    `json:"stop_loss"`
	Target     float64    `json:"target"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`
	ExitReason string     `json:"exit_reason,omitempty"`
	PnL        float64    `json:"pnl"`
	Status     string     `json:"status"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// StrategyLog is one persisted strategy log line.
type StrategyLog struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol,omitempty"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
