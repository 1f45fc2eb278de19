package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"intraday-core/internal/events"
	"intraday-core/internal/journal"
	"intraday-core/internal/monitor"
	"intraday-core/internal/risk"
	"intraday-core/pkg/broker/kite"
	"intraday-core/pkg/config"
	"intraday-core/pkg/db"
)

// Engine is the facade the API layer drives: session control, live status,
// and manual position management.
type Engine struct {
	cfg         *config.Config
	broker      *kite.Client
	instruments *kite.Instruments
	session     *Session
	book        *Book
	limits      *risk.Tracker
	scheduler   *Scheduler
	orders      *monitor.OrderMonitor
	conn        *monitor.ConnectionMonitor
	journal     *journal.Journal
	bus         *events.Bus
}

// New wires the engine and its monitors.
func New(cfg *config.Config, broker *kite.Client, instruments *kite.Instruments,
	source CandleSource, bus *events.Bus, jnl *journal.Journal, queries *db.Queries) *Engine {

	session := NewSession()
	book := NewBook()
	tun := cfg.Tunables()
	limits := risk.NewTracker(risk.Limits{
		MaxPositionValue: tun.MaxPositionValue,
		MaxDailyLoss:     tun.MaxDailyLoss,
		MaxOpenPositions: tun.MaxOpenPositions,
	})

	e := &Engine{
		cfg:         cfg,
		broker:      broker,
		instruments: instruments,
		session:     session,
		book:        book,
		limits:      limits,
		journal:     jnl,
		bus:         bus,
	}
	e.scheduler = NewScheduler(cfg, session, source, broker, limits, book, jnl, bus, queries)
	e.orders = monitor.NewOrderMonitor(broker, cfg.StatusPollInterval, cfg.OrderWindow, jnl, bus, queries)
	e.conn = monitor.NewConnectionMonitor(broker, cfg.StatusPollInterval, e.onConnectionLost)
	return e
}

// StartTrading begins a live session over the given symbols.
func (e *Engine) StartTrading(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("engine: no symbols to monitor")
	}
	tun := e.cfg.Tunables()
	if !tun.DryRun && !e.broker.Connected() {
		return fmt.Errorf("engine: broker session required before live trading")
	}

	symbols = e.instruments.Known(symbols)
	if len(symbols) == 0 {
		return fmt.Errorf("engine: none of the requested symbols are tradable")
	}

	sctx, err := e.session.Start(ctx, symbols)
	if err != nil {
		return err
	}

	e.limits.SetLimits(risk.Limits{
		MaxPositionValue: tun.MaxPositionValue,
		MaxDailyLoss:     tun.MaxDailyLoss,
		MaxOpenPositions: tun.MaxOpenPositions,
	})
	e.book.ResetDay()
	e.limits.ResetDaily()

	go e.scheduler.Run(sctx)
	go e.orders.Run(sctx)
	if !tun.DryRun {
		go e.conn.Run(sctx)
	}

	e.journal.Info("", fmt.Sprintf("live trading started for %d symbols", len(symbols)))
	e.bus.Publish(events.New(events.TypeSession, "", map[string]any{"live": true, "symbols": symbols}))
	return nil
}

// StopTrading ends the session. The live flag drops before the exit
// round-trips begin, so an analysis pass already past its fetch cannot
// submit a fresh entry while positions are being closed.
func (e *Engine) StopTrading(ctx context.Context) error {
	if !e.session.IsLive() {
		return ErrNotLive
	}

	e.session.Stop()
	e.scheduler.ExitAll(ctx, ExitSessionEnd)

	e.journal.Info("", "live trading stopped")
	e.bus.Publish(events.New(events.TypeSession, "", map[string]any{"live": false}))
	return nil
}

// onConnectionLost tears the session down after repeated probe failures.
func (e *Engine) onConnectionLost(err error) {
	e.journal.Error("", fmt.Sprintf("broker connection lost: %v", err))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if stopErr := e.StopTrading(ctx); stopErr != nil && stopErr != ErrNotLive {
		log.Printf("engine: teardown after connection loss failed: %v", stopErr)
	}
}

// ClosePosition exits one open position on operator request.
func (e *Engine) ClosePosition(ctx context.Context, symbol string) error {
	return e.scheduler.ClosePosition(ctx, symbol)
}

// LiveStatus is the dashboard snapshot.
type LiveStatus struct {
	MarketOpen      bool            `json:"market_open"`
	LiveTrading     bool            `json:"live_trading"`
	DryRun          bool            `json:"dry_run"`
	BrokerConnected bool            `json:"broker_connected"`
	Symbols         []string        `json:"monitored_symbols"`
	Positions       []Position      `json:"positions"`
	DailyPnL        float64         `json:"daily_pnl"`
	Orders          monitor.Stats   `json:"orders"`
	Logs            []journal.Entry `json:"logs"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
}

// Status assembles the live snapshot.
func (e *Engine) Status() LiveStatus {
	now := time.Now()
	status := LiveStatus{
		MarketOpen:      e.cfg.MarketOpen.Reached(now) && !e.cfg.MarketClose.Reached(now),
		LiveTrading:     e.session.IsLive(),
		DryRun:          e.cfg.Tunables().DryRun,
		BrokerConnected: e.broker.Connected(),
		Symbols:         e.session.Symbols(),
		Positions:       e.book.List(),
		DailyPnL:        e.limits.DailyPnL(),
		Orders:          e.orders.Stats(),
		Logs:            e.journal.Recent(50),
	}
	if status.LiveTrading {
		startedAt := e.session.StartedAt()
		status.StartedAt = &startedAt
	}
	return status
}

// RecentOrders exposes the monitor's normalized order view.
func (e *Engine) RecentOrders() []kite.OrderEvent {
	return e.orders.Recent()
}

// OpenPositions exposes the in-memory book.
func (e *Engine) OpenPositions() []Position {
	return e.book.List()
}

// IsLive reports whether a session is active.
func (e *Engine) IsLive() bool {
	return e.session.IsLive()
}
