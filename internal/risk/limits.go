package risk

import (
	"fmt"
	"sync"
)

// Limits are the account-level caps evaluated before every submission.
type Limits struct {
	MaxPositionValue float64
	MaxDailyLoss     float64
	MaxOpenPositions int
}

// Tracker enforces Limits against the running day: realized PnL and the
// set of open positions. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	limits   Limits
	dailyPnL float64
	open     map[string]struct{}
}

// NewTracker builds a tracker for one trading day.
func NewTracker(limits Limits) *Tracker {
	return &Tracker{
		limits: limits,
		open:   make(map[string]struct{}),
	}
}

// SetLimits replaces the caps, applied when a session starts with fresh
// settings.
func (t *Tracker) SetLimits(limits Limits) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limits = limits
}

// CheckOrder returns an error when the proposed order would breach a limit.
func (t *Tracker) CheckOrder(symbol string, quantity int, price float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if value := float64(quantity) * price; t.limits.MaxPositionValue > 0 && value > t.limits.MaxPositionValue {
		return fmt.Errorf("limits: position value %.2f exceeds cap %.2f", value, t.limits.MaxPositionValue)
	}
	if t.limits.MaxDailyLoss > 0 && t.dailyPnL <= -t.limits.MaxDailyLoss {
		return fmt.Errorf("limits: daily loss %.2f has reached cap %.2f", -t.dailyPnL, t.limits.MaxDailyLoss)
	}
	if _, dup := t.open[symbol]; dup {
		return fmt.Errorf("limits: position already open for %s", symbol)
	}
	if t.limits.MaxOpenPositions > 0 && len(t.open) >= t.limits.MaxOpenPositions {
		return fmt.Errorf("limits: %d positions already open, cap is %d", len(t.open), t.limits.MaxOpenPositions)
	}
	return nil
}

// AddPosition records a newly opened position.
func (t *Tracker) AddPosition(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[symbol] = struct{}{}
}

// RemovePosition records a closed position.
func (t *Tracker) RemovePosition(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, symbol)
}

// RecordPnL adds a realized profit or loss to the daily total.
func (t *Tracker) RecordPnL(pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dailyPnL += pnl
}

// DailyPnL returns the realized PnL accumulated today.
func (t *Tracker) DailyPnL() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dailyPnL
}

// OpenCount returns the number of open positions being tracked.
func (t *Tracker) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// ResetDaily clears daily PnL, typically at session start.
func (t *Tracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dailyPnL = 0
}
