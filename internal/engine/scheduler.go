package engine

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"intraday-core/internal/events"
	"intraday-core/internal/journal"
	"intraday-core/internal/risk"
	"intraday-core/internal/strategy"
	"intraday-core/pkg/broker/kite"
	"intraday-core/pkg/config"
	"intraday-core/pkg/db"
)

// CandleSource supplies the candle history for one symbol, oldest first.
type CandleSource interface {
	Candles(ctx context.Context, symbol string) ([]strategy.Candle, error)
}

// OrderPlacer submits orders to the broker.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req kite.OrderRequest) (kite.OrderResult, error)
}

// Scheduler drives one analysis pass per candle interval across the
// watchlist. Ticks never overlap: if a pass is still running when the next
// tick fires, the new tick is skipped and the late pass finishes alone.
// Tunable strategy and sizing parameters are re-read from the config
// snapshot on every entry hunt.
type Scheduler struct {
	cfg     *config.Config
	session *Session
	limits  *risk.Tracker
	book    *Book
	source  CandleSource
	broker  OrderPlacer
	journal *journal.Journal
	bus     *events.Bus
	queries *db.Queries

	// clock is swappable in tests.
	clock func() time.Time

	inFlight atomic.Bool
}

// NewScheduler wires a scheduler; queries may be nil in tests.
func NewScheduler(cfg *config.Config, session *Session, source CandleSource, broker OrderPlacer,
	limits *risk.Tracker, book *Book, jnl *journal.Journal, bus *events.Bus, queries *db.Queries) *Scheduler {

	return &Scheduler{
		cfg:     cfg,
		session: session,
		limits:  limits,
		book:    book,
		source:  source,
		broker:  broker,
		journal: jnl,
		bus:     bus,
		queries: queries,
		clock:   time.Now,
	}
}

// Run ticks at the candle interval until the session context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CandleInterval)
	defer ticker.Stop()

	log.Printf("scheduler: started, interval %s", s.cfg.CandleInterval)
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one analysis pass over every monitored symbol.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Printf("scheduler: previous pass still running, skipping tick")
		return
	}
	defer s.inFlight.Store(false)

	for _, symbol := range s.session.Symbols() {
		if ctx.Err() != nil {
			return
		}
		if err := s.processSymbol(ctx, symbol); err != nil {
			s.journal.Error(symbol, fmt.Sprintf("analysis failed: %v", err))
		}
	}
}

// processSymbol fetches candles once and either manages the open position
// or looks for a new entry. A failed fetch ends the pass for this symbol;
// the next tick retries naturally.
func (s *Scheduler) processSymbol(ctx context.Context, symbol string) error {
	candles, err := s.source.Candles(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}

	if _, open := s.book.Get(symbol); open {
		return s.managePosition(ctx, symbol, candles)
	}
	if s.book.TradedToday(symbol) {
		return nil
	}
	return s.huntEntry(ctx, symbol, candles)
}

func (s *Scheduler) huntEntry(ctx context.Context, symbol string, candles []strategy.Candle) error {
	now := s.clock()
	tun := s.cfg.Tunables()
	generator := strategy.NewGenerator(strategy.Params{
		SMAPeriod:       s.cfg.SMAPeriod,
		MinWickPercent:  tun.MinWickPercent,
		RiskRewardRatio: tun.RiskRewardRatio,
		EntryOpen:       s.cfg.EntryOpen,
		EntryCutoff:     s.cfg.EntryCutoff,
	})
	sig := generator.Analyze(symbol, candles, now)
	s.bus.Publish(events.New(events.TypeSignal, symbol, sig))

	if sig.Hold() {
		s.journal.Info(symbol, "HOLD: "+sig.Reason)
		return nil
	}
	s.journal.Info(symbol, sig.Reason)

	sizing := risk.Sizing{
		Mode:            tun.PositionSizing,
		CapitalPerTrade: tun.CapitalPerTrade,
		TotalCapital:    tun.TotalCapital,
		RiskPercent:     tun.RiskPercent,
		Leverage:        tun.Leverage,
	}
	sig.Quantity = sizing.Quantity(sig.Entry, sig.StopLoss)

	if err := risk.ValidateSignal(sig); err != nil {
		s.journal.Warn(symbol, fmt.Sprintf("signal rejected: %v", err))
		return nil
	}
	if err := s.limits.CheckOrder(symbol, sig.Quantity, sig.Entry); err != nil {
		s.journal.Warn(symbol, fmt.Sprintf("blocked by limits: %v", err))
		return nil
	}

	return s.submit(ctx, sig)
}

// submit places the entry order. The live flag is re-read here, at the last
// moment before the broker call, so a stop issued mid-analysis wins.
func (s *Scheduler) submit(ctx context.Context, sig strategy.Signal) error {
	if !s.session.IsLive() {
		s.journal.Warn(sig.Symbol, "live trading disabled before submission, order dropped")
		return nil
	}

	req := kite.OrderRequest{
		Symbol:    sig.Symbol,
		Exchange:  s.cfg.Exchange,
		Action:    string(sig.Action),
		Quantity:  sig.Quantity,
		OrderType: s.cfg.OrderType,
		Price:     sig.Entry,
		StopLoss:  s.protectiveStop(sig),
		Target:    s.protectiveTarget(sig),
	}

	record := db.Order{
		ID:        uuid.NewString(),
		Symbol:    sig.Symbol,
		Action:    string(sig.Action),
		Quantity:  sig.Quantity,
		OrderType: req.OrderType,
		Price:     sig.Entry,
	}

	res, err := s.broker.PlaceOrder(ctx, req)
	if err != nil {
		record.Status = kite.StatusRejected
		record.Message = err.Error()
		s.persistOrder(record)
		s.journal.Error(sig.Symbol, fmt.Sprintf("order submission failed: %v", err))
		return nil
	}

	record.BrokerOrderID = res.OrderID
	record.Status = kite.StatusPending
	record.Message = res.Message
	s.persistOrder(record)

	direction := strategy.BiasLong
	if sig.Action == strategy.ActionSell {
		direction = strategy.BiasShort
	}
	pos := Position{
		ID:           uuid.NewString(),
		Symbol:       sig.Symbol,
		Direction:    direction,
		Quantity:     sig.Quantity,
		EntryPrice:   sig.Entry,
		StopLoss:     sig.StopLoss,
		Target:       sig.Target,
		CurrentPrice: sig.Entry,
		OpenedAt:     s.clock(),
	}
	s.book.Open(pos)
	s.limits.AddPosition(sig.Symbol)
	s.persistPosition(pos)

	s.bus.Publish(events.New(events.TypePositionChange, sig.Symbol, pos))
	s.journal.Info(sig.Symbol, fmt.Sprintf("order %s placed: %s %d @ %.2f", res.OrderID, sig.Action, sig.Quantity, sig.Entry))
	return nil
}

// managePosition marks the open position to the latest candle and exits on
// stop, target or the forced intraday deadline.
func (s *Scheduler) managePosition(ctx context.Context, symbol string, candles []strategy.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	last := candles[len(candles)-1]
	s.book.MarkPrice(symbol, last.Close)

	if pos, reason, hit := s.book.ExitCheck(symbol, last); hit {
		price := pos.StopLoss
		if reason == ExitTarget {
			price = pos.Target
		}
		return s.exitPosition(ctx, pos, price, reason)
	}

	if s.cfg.ForceExit.Reached(s.clock()) {
		if pos, ok := s.book.Get(symbol); ok {
			return s.exitPosition(ctx, pos, last.Close, ExitForced)
		}
	}
	return nil
}

// exitPosition closes a position with an opposite market order.
func (s *Scheduler) exitPosition(ctx context.Context, pos Position, price float64, reason string) error {
	action := "SELL"
	if pos.Direction == strategy.BiasShort {
		action = "BUY"
	}

	res, err := s.broker.PlaceOrder(ctx, kite.OrderRequest{
		Symbol:    pos.Symbol,
		Exchange:  s.cfg.Exchange,
		Action:    action,
		Quantity:  pos.Quantity,
		OrderType: "MARKET",
	})
	if err != nil {
		// The position stays open; the next tick retries the exit.
		s.journal.Error(pos.Symbol, fmt.Sprintf("exit order failed (%s): %v", reason, err))
		return nil
	}

	closed, ok := s.book.Close(pos.Symbol)
	if !ok {
		return nil
	}
	pnl := closed.PnLAt(price)
	s.limits.RemovePosition(pos.Symbol)
	s.limits.RecordPnL(pnl)

	if s.queries != nil {
		if err := s.queries.ClosePosition(ctx, closed.ID, price, pnl, reason); err != nil {
			log.Printf("scheduler: persist close failed: %v", err)
		}
	}

	s.bus.Publish(events.New(events.TypePositionChange, pos.Symbol, closed))
	s.journal.Info(pos.Symbol, fmt.Sprintf("position closed (%s): exit order %s, pnl %.2f", reason, res.OrderID, pnl))
	return nil
}

// ExitAll force-closes every open position, used at stop and at the
// intraday deadline.
func (s *Scheduler) ExitAll(ctx context.Context, reason string) {
	for _, pos := range s.book.List() {
		price := pos.CurrentPrice
		if price == 0 {
			price = pos.EntryPrice
		}
		if err := s.exitPosition(ctx, pos, price, reason); err != nil {
			s.journal.Error(pos.Symbol, fmt.Sprintf("forced exit failed: %v", err))
		}
	}
}

// ClosePosition exits one position on operator request.
func (s *Scheduler) ClosePosition(ctx context.Context, symbol string) error {
	pos, ok := s.book.Get(symbol)
	if !ok {
		return fmt.Errorf("engine: no open position for %s", symbol)
	}
	price := pos.CurrentPrice
	if price == 0 {
		price = pos.EntryPrice
	}
	return s.exitPosition(ctx, pos, price, ExitManual)
}

func (s *Scheduler) protectiveStop(sig strategy.Signal) float64 {
	pct := s.cfg.StopLossPercent / 100
	if sig.Action == strategy.ActionSell {
		return sig.Entry * (1 + pct)
	}
	return sig.Entry * (1 - pct)
}

func (s *Scheduler) protectiveTarget(sig strategy.Signal) float64 {
	pct := s.cfg.TargetPercent / 100
	if sig.Action == strategy.ActionSell {
		return sig.Entry * (1 - pct)
	}
	return sig.Entry * (1 + pct)
}

func (s *Scheduler) persistOrder(o db.Order) {
	if s.queries == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.queries.InsertOrder(ctx, o); err != nil {
		log.Printf("scheduler: persist order failed: %v", err)
	}
}

func (s *Scheduler) persistPosition(p Position) {
	if s.queries == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.queries.InsertPosition(ctx, db.Position{
		ID:         p.ID,
		Symbol:     p.Symbol,
		Direction:  string(p.Direction),
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		StopLoss:   p.StopLoss,
		Target:     p.Target,
		Status:     db.PositionOpen,
	})
	if err != nil {
		log.Printf("scheduler: persist position failed: %v", err)
	}
}
