// Package engine runs the trading session: the analysis scheduler, the
// position book, and the facade the dashboard controls.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotLive is returned when an action requires an active trading session.
var ErrNotLive = errors.New("engine: live trading is not active")

// ErrAlreadyLive is returned when a session is already running.
var ErrAlreadyLive = errors.New("engine: live trading already active")

// Session owns the live-trading flag and the cancellation of both loops.
// Stop flips the flag synchronously before cancelling, so any in-flight
// analysis observes the change at its submission re-check.
type Session struct {
	mu        sync.RWMutex
	live      bool
	symbols   []string
	startedAt time.Time
	cancel    context.CancelFunc
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Start marks the session live for the given symbols. The returned context
// governs both the scheduler and the monitors.
func (s *Session) Start(parent context.Context, symbols []string) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live {
		return nil, ErrAlreadyLive
	}
	ctx, cancel := context.WithCancel(parent)
	s.live = true
	s.symbols = append([]string(nil), symbols...)
	s.startedAt = time.Now()
	s.cancel = cancel
	return ctx, nil
}

// Stop ends the session. The live flag drops before the loops are
// cancelled; safe to call when already stopped.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.live = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsLive reports whether trading is active. Re-checked immediately before
// every order submission.
func (s *Session) IsLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// Symbols returns the monitored symbols of the current or last session.
func (s *Session) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.symbols...)
}

// StartedAt returns when the current session began.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}
