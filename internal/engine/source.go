package engine

import (
	"context"
	"fmt"
	"time"

	"intraday-core/internal/strategy"
	"intraday-core/pkg/broker/kite"
	"intraday-core/pkg/config"
)

// historyDays is how far back candle fetches reach. Generous enough to
// carry the SMA window over weekends and holidays.
const historyDays = 5

// KiteSource adapts the broker historical-data API to the scheduler's
// CandleSource.
type KiteSource struct {
	client      *kite.Client
	instruments *kite.Instruments
	cfg         *config.Config
}

// NewKiteSource builds a candle source over the broker client.
func NewKiteSource(client *kite.Client, instruments *kite.Instruments, cfg *config.Config) *KiteSource {
	return &KiteSource{client: client, instruments: instruments, cfg: cfg}
}

// Candles fetches the recent bar history for a symbol, oldest first.
func (s *KiteSource) Candles(ctx context.Context, symbol string) ([]strategy.Candle, error) {
	token, err := s.instruments.TokenFor(symbol)
	if err != nil {
		return nil, err
	}

	to := time.Now()
	from := to.AddDate(0, 0, -historyDays)
	raw, err := s.client.HistoricalCandles(ctx, token, intervalName(s.cfg.CandleInterval), from, to)
	if err != nil {
		return nil, err
	}

	candles := make([]strategy.Candle, 0, len(raw))
	for _, c := range raw {
		candles = append(candles, strategy.Candle{
			Timestamp: c.Timestamp,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	return candles, nil
}

// intervalName maps a duration onto the broker's interval identifiers.
func intervalName(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes <= 1 {
		return "minute"
	}
	return fmt.Sprintf("%dminute", minutes)
}
