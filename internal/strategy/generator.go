package strategy

import (
	"fmt"
	"time"

	"intraday-core/internal/indicators"
	"intraday-core/pkg/config"
)

// Params are the tunables the generator consumes.
type Params struct {
	SMAPeriod       int
	MinWickPercent  float64
	RiskRewardRatio float64
	EntryOpen       config.ClockTime
	EntryCutoff     config.ClockTime
}

// Generator produces at most one actionable signal per analysis cycle.
// It is stateless across cycles: each call rescans the session's candles,
// so a missed cycle never loses a setup.
type Generator struct {
	params Params
}

// NewGenerator builds a generator with the given tunables.
func NewGenerator(p Params) *Generator {
	return &Generator{params: p}
}

// Analyze scans the candle history for a setup followed by a rejection
// confirmation and returns a BUY/SELL signal with entry, stop and target
// levels, or a HOLD signal explaining why no trade is possible.
//
// The SMA at each candle is computed over the closes of the preceding
// period, so the candle under inspection never influences its own baseline.
func (g *Generator) Analyze(symbol string, candles []Candle, now time.Time) Signal {
	hold := func(reason string) Signal {
		s := Signal{
			Symbol:      symbol,
			Action:      ActionHold,
			Reason:      reason,
			GeneratedAt: now,
		}
		if len(candles) > 0 {
			s.Price = candles[len(candles)-1].Close
		}
		return s
	}

	if !g.withinEntryWindow(now) {
		return hold(fmt.Sprintf("Outside entry window (%s-%s)",
			g.params.EntryOpen, g.params.EntryCutoff))
	}

	period := g.params.SMAPeriod
	if len(candles) <= period {
		return hold(fmt.Sprintf("Insufficient data: have %d candles, need more than %d",
			len(candles), period))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	setup, found := g.findSetup(candles, closes, now)
	if !found {
		return hold("No setup detected this session")
	}

	for j := setup.DetectedAtIndex + 1; j < len(candles); j++ {
		c := candles[j]
		if !sameDay(c.Timestamp, now) {
			continue
		}
		if !ConfirmRejection(c, setup.Bias, setup.SMAAtDetection, g.params.MinWickPercent) {
			continue
		}

		var entry, stop float64
		var action Action
		if setup.Bias == BiasLong {
			action = ActionBuy
			entry = c.High
			stop = c.Low
		} else {
			action = ActionSell
			entry = c.Low
			stop = c.High
		}

		risk := entry - stop
		if risk < 0 {
			risk = -risk
		}
		var target float64
		if action == ActionBuy {
			target = entry + g.params.RiskRewardRatio*risk
		} else {
			target = entry - g.params.RiskRewardRatio*risk
		}

		return Signal{
			Symbol:      symbol,
			Action:      action,
			Price:       entry,
			Entry:       entry,
			StopLoss:    stop,
			Target:      target,
			Reason:      FormatEntryReason(setup.Bias, entry, stop, target),
			GeneratedAt: now,
		}
	}

	return hold(fmt.Sprintf("Setup detected (%s), awaiting rejection confirmation", setup.Bias))
}

// findSetup returns the first setup on a current-session candle. The SMA
// captured here is reused for the rejection check.
func (g *Generator) findSetup(candles []Candle, closes []float64, now time.Time) (SetupState, bool) {
	period := g.params.SMAPeriod
	for i := period; i < len(candles); i++ {
		c := candles[i]
		if !sameDay(c.Timestamp, now) {
			continue
		}
		sma, err := indicators.SMA(closes[:i], period)
		if err != nil {
			continue
		}
		if bias, ok := DetectSetup(c, sma); ok {
			return SetupState{
				Bias:            bias,
				DetectedAtIndex: i,
				SMAAtDetection:  sma,
				Candle:          c,
			}, true
		}
	}
	return SetupState{}, false
}

func (g *Generator) withinEntryWindow(now time.Time) bool {
	return g.params.EntryOpen.Reached(now) && !g.params.EntryCutoff.Reached(now)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
