package strategy

// ConfirmRejection decides whether a candle confirms the pending setup.
// The SMA used is the one captured when the setup was detected, and the
// wick threshold is inclusive.
func ConfirmRejection(c Candle, bias Bias, setupSMA, minWickPercent float64) bool {
	rng := c.Range()
	if rng <= 0 {
		return false
	}

	switch bias {
	case BiasLong:
		wickPct := c.LowerWick() / rng * 100
		return c.Close > c.Open &&
			c.Close > setupSMA &&
			c.Low <= setupSMA &&
			wickPct >= minWickPercent
	case BiasShort:
		wickPct := c.UpperWick() / rng * 100
		return c.Close < c.Open &&
			c.Close < setupSMA &&
			c.High >= setupSMA &&
			wickPct >= minWickPercent
	}
	return false
}
