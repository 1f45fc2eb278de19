package risk

import "math"

// Sizing mode names accepted in configuration.
const (
	SizingFixedCapital = "fixed_capital"
	SizingFixedRisk    = "fixed_risk"
)

// Sizing computes order quantities from configured capital allocation.
type Sizing struct {
	Mode            string
	CapitalPerTrade float64
	TotalCapital    float64
	RiskPercent     float64
	Leverage        float64
}

// Quantity returns the share count for a trade at the given entry and stop.
// fixed_capital allocates a fixed notional per trade; fixed_risk sizes so
// that a stop-out loses RiskPercent of total capital. Leverage scales both.
// The result is never below 1 so a valid signal always trades something.
func (s Sizing) Quantity(entry, stop float64) int {
	if entry <= 0 {
		return 0
	}

	leverage := s.Leverage
	if leverage < 1 {
		leverage = 1
	}

	var qty float64
	switch s.Mode {
	case SizingFixedRisk:
		riskPerShare := math.Abs(entry - stop)
		if riskPerShare <= 0 {
			return 0
		}
		riskBudget := s.TotalCapital * s.RiskPercent / 100
		qty = riskBudget / riskPerShare * leverage
	default:
		qty = s.CapitalPerTrade / entry * leverage
	}

	n := int(qty)
	if n < 1 {
		n = 1
	}
	return n
}
