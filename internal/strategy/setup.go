package strategy

const (
	// A setup candle must be mostly wick: body at most 30% of the range,
	// rejection wick at least twice the body.
	maxSetupBodyRatio  = 0.30
	minWickToBodyRatio = 2.0
)

// DetectSetup classifies a candle against the SMA as a long setup, a short
// setup, or neither. A zero-range candle is never a setup.
func DetectSetup(c Candle, sma float64) (Bias, bool) {
	rng := c.Range()
	if rng <= 0 {
		return BiasNone, false
	}

	body := c.Body()
	if body/rng > maxSetupBodyRatio {
		return BiasNone, false
	}

	// Long: lower wick probed below the SMA and was rejected back above it.
	if c.LowerWick() >= minWickToBodyRatio*body &&
		c.Low <= sma && c.Close > sma {
		return BiasLong, true
	}

	// Short: upper wick probed above the SMA and was rejected back below it.
	if c.UpperWick() >= minWickToBodyRatio*body &&
		c.High >= sma && c.Close < sma {
		return BiasShort, true
	}

	return BiasNone, false
}
