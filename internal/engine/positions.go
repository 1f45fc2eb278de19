package engine

import (
	"sync"
	"time"

	"intraday-core/internal/strategy"
)

// Exit reasons recorded on position close.
const (
	ExitStopLoss   = "stop loss hit"
	ExitTarget     = "target hit"
	ExitForced     = "forced intraday exit"
	ExitManual     = "manual close"
	ExitSessionEnd = "session stopped"
)

// Position is one open trade tracked in memory.
type Position struct {
	ID            string        `json:"id"`
	Symbol        string        `json:"symbol"`
	Direction     strategy.Bias `json:"direction"`
	Quantity      int           `json:"quantity"`
	EntryPrice    float64       `json:"entry_price"`
	StopLoss      float64       `json:"stop_loss"`
	Target        float64       `json:"target"`
	CurrentPrice  float64       `json:"current_price"`
	UnrealizedPnL float64       `json:"unrealized_pnl"`
	OpenedAt      time.Time     `json:"opened_at"`
}

// PnLAt returns the signed profit at the given exit price.
func (p Position) PnLAt(price float64) float64 {
	if p.Direction == strategy.BiasShort {
		return (p.EntryPrice - price) * float64(p.Quantity)
	}
	return (price - p.EntryPrice) * float64(p.Quantity)
}

// Book tracks open positions and the symbols already traded today, one
// trade per symbol per session.
type Book struct {
	mu        sync.RWMutex
	open      map[string]Position
	completed map[string]bool
}

// NewBook returns an empty position book.
func NewBook() *Book {
	return &Book{
		open:      make(map[string]Position),
		completed: make(map[string]bool),
	}
}

// Open registers a freshly filled position.
func (b *Book) Open(p Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open[p.Symbol] = p
}

// Get returns the open position for a symbol.
func (b *Book) Get(symbol string) (Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.open[symbol]
	return p, ok
}

// List returns all open positions.
func (b *Book) List() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Position, 0, len(b.open))
	for _, p := range b.open {
		out = append(out, p)
	}
	return out
}

// TradedToday reports whether the symbol has an open or completed trade
// this session.
func (b *Book) TradedToday(symbol string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.open[symbol]; ok {
		return true
	}
	return b.completed[symbol]
}

// MarkPrice refreshes the current price and unrealized PnL of a position.
func (b *Book) MarkPrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.open[symbol]
	if !ok {
		return
	}
	p.CurrentPrice = price
	p.UnrealizedPnL = p.PnLAt(price)
	b.open[symbol] = p
}

// ExitCheck decides whether the candle triggers an exit for the open
// position on symbol. Stop-loss is evaluated before target so a candle
// spanning both resolves conservatively.
func (b *Book) ExitCheck(symbol string, c strategy.Candle) (Position, string, bool) {
	b.mu.RLock()
	p, ok := b.open[symbol]
	b.mu.RUnlock()
	if !ok {
		return Position{}, "", false
	}

	if p.Direction == strategy.BiasShort {
		if c.High >= p.StopLoss {
			return p, ExitStopLoss, true
		}
		if c.Low <= p.Target {
			return p, ExitTarget, true
		}
		return Position{}, "", false
	}

	if c.Low <= p.StopLoss {
		return p, ExitStopLoss, true
	}
	if c.High >= p.Target {
		return p, ExitTarget, true
	}
	return Position{}, "", false
}

// Close removes the position and marks the symbol completed for the day.
func (b *Book) Close(symbol string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.open[symbol]
	if !ok {
		return Position{}, false
	}
	delete(b.open, symbol)
	b.completed[symbol] = true
	return p, true
}

// ResetDay clears the completed-trade memory for a new session.
func (b *Book) ResetDay() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = make(map[string]bool)
}
