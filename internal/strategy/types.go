// Package strategy implements the SMA wick-rejection intraday strategy:
// setup detection on the 50-period SMA, rejection confirmation, and signal
// generation with structured entry, stop and target levels.
package strategy

import "time"

// Bias is the directional lean established by a setup candle.
type Bias string

const (
	BiasLong  Bias = "LONG"
	BiasShort Bias = "SHORT"
	BiasNone  Bias = "NONE"
)

// Action is the trading decision carried by a signal.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Candle is one OHLCV bar on the strategy interval.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Body returns the absolute open-to-close distance.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-to-low distance.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// LowerWick returns the distance from the body bottom to the low.
func (c Candle) LowerWick() float64 {
	if c.Close >= c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// UpperWick returns the distance from the high to the body top.
func (c Candle) UpperWick() float64 {
	if c.Close >= c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Signal is the strategy output for one symbol on one cycle.
// Entry, StopLoss and Target are the authoritative levels; Reason is a
// human-readable annotation that, for entries, follows a fixed grammar.
type Signal struct {
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Entry       float64   `json:"entry,omitempty"`
	StopLoss    float64   `json:"stop_loss,omitempty"`
	Target      float64   `json:"target,omitempty"`
	Reason      string    `json:"reason"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Hold reports whether the signal carries no trade.
func (s Signal) Hold() bool {
	return s.Action == ActionHold
}

// SetupState records a detected setup awaiting rejection confirmation.
type SetupState struct {
	Bias            Bias
	DetectedAtIndex int
	SMAAtDetection  float64
	Candle          Candle
}
