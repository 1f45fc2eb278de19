package events

import "time"

// Type identifies an event category on the bus.
type Type string

const (
	TypeSignal         Type = "signal"
	TypeOrderUpdate    Type = "order_update"
	TypePositionChange Type = "position_change"
	TypeStrategyLog    Type = "strategy_log"
	TypeAlert          Type = "alert"
	TypeSession        Type = "session"
)

// Event is the envelope published on the bus. Payload is one of the
// domain types (strategy.Signal, kite.OrderEvent, engine.Position, ...).
type Event struct {
	Type      Type      `json:"type"`
	Symbol    string    `json:"symbol,omitempty"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// New builds an event stamped with the current time.
func New(t Type, symbol string, payload any) Event {
	return Event{
		Type:      t,
		Symbol:    symbol,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
