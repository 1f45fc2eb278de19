// Package kite wraps REST access to the Zerodha Kite Connect API: session
// exchange, historical candles, order placement and the order log.
package kite

import (
	"strings"
	"time"
)

// Candle is one OHLCV bar from the historical data API.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// OrderRequest describes an intraday (MIS) order to submit. StopLoss and
// Target, when set, ride along as broker-side protective levels.
type OrderRequest struct {
	Symbol    string
	Exchange  string
	Action    string // BUY or SELL
	Quantity  int
	OrderType string // MARKET or LIMIT
	Price     float64
	StopLoss  float64
	Target    float64
}

// OrderResult is the immediate outcome of a submission attempt.
type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// Profile is the authenticated user's identity, used as a liveness probe.
type Profile struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Broker   string `json:"broker"`
}

// Canonical order statuses after normalization.
const (
	StatusPending   = "PENDING"
	StatusComplete  = "COMPLETE"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// OrderEvent is one normalized entry from the broker order log. The broker
// reports several transient statuses and two generations of field names;
// both collapse to this single shape at ingestion.
type OrderEvent struct {
	OrderID      string    `json:"order_id"`
	Symbol       string    `json:"symbol"`
	Action       string    `json:"action"`
	Quantity     int       `json:"quantity"`
	Status       string    `json:"status"`
	Price        float64   `json:"price"`
	AveragePrice float64   `json:"average_price"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message,omitempty"`
}

// Terminal reports whether the status can no longer change.
func (e OrderEvent) Terminal() bool {
	switch e.Status {
	case StatusComplete, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// NormalizeStatus maps raw broker statuses onto the canonical set.
// Anything in flight ("OPEN", "TRIGGER PENDING", validation states) is
// PENDING; unknown values are treated as PENDING rather than dropped.
func NormalizeStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COMPLETE":
		return StatusComplete
	case "REJECTED":
		return StatusRejected
	case "CANCELLED", "CANCELLED AMO":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// Instrument is one row of the instrument master.
type Instrument struct {
	Token    int64   `json:"token"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Exchange string  `json:"exchange"`
	Segment  string  `json:"segment"`
	Type     string  `json:"type"`
	LotSize  int     `json:"lot_size"`
	TickSize float64 `json:"tick_size"`
}
