// Package journal is the strategy activity feed: every notable engine event
// goes to the process log, the ring buffer the dashboard reads, the event
// bus, and sqlite.
package journal

import (
	"context"
	"log"
	"sync"
	"time"

	"intraday-core/internal/events"
	"intraday-core/pkg/db"
)

const ringSize = 1000

// Entry is one journal line.
type Entry struct {
	Symbol    string    `json:"symbol,omitempty"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Journal fans journal lines out to the log, the ring, the bus and the db.
// The db write is best-effort; a persistence failure never blocks trading.
type Journal struct {
	bus     *events.Bus
	queries *db.Queries

	mu   sync.RWMutex
	ring []Entry
}

// New builds a journal. queries may be nil in tests.
func New(bus *events.Bus, queries *db.Queries) *Journal {
	return &Journal{
		bus:     bus,
		queries: queries,
		ring:    make([]Entry, 0, ringSize),
	}
}

// Info records an informational line.
func (j *Journal) Info(symbol, message string) {
	j.record("INFO", symbol, message)
}

// Warn records a warning line.
func (j *Journal) Warn(symbol, message string) {
	j.record("WARN", symbol, message)
}

// Error records an error line.
func (j *Journal) Error(symbol, message string) {
	j.record("ERROR", symbol, message)
}

func (j *Journal) record(level, symbol, message string) {
	entry := Entry{
		Symbol:    symbol,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}

	if symbol != "" {
		log.Printf("journal: [%s] %s %s", level, symbol, message)
	} else {
		log.Printf("journal: [%s] %s", level, message)
	}

	j.mu.Lock()
	if len(j.ring) >= ringSize {
		j.ring = j.ring[1:]
	}
	j.ring = append(j.ring, entry)
	j.mu.Unlock()

	if j.bus != nil {
		j.bus.Publish(events.New(events.TypeStrategyLog, symbol, entry))
	}

	if j.queries != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := j.queries.InsertLog(ctx, symbol, level, message); err != nil {
			log.Printf("journal: persist failed: %v", err)
		}
	}
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n <= 0 || n > len(j.ring) {
		n = len(j.ring)
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = j.ring[len(j.ring)-1-i]
	}
	return out
}
