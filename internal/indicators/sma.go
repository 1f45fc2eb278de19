// Package indicators provides the technical calculations the strategy
// consumes. Every function reports insufficient data explicitly instead of
// returning a partial value.
package indicators

import "errors"

// ErrInsufficientData is returned when a window has fewer samples than the
// indicator period requires.
var ErrInsufficientData = errors.New("indicators: insufficient data for period")

// SMA computes the simple moving average over the most recent period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("indicators: period must be positive")
	}
	if len(values) < period {
		return 0, ErrInsufficientData
	}

	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}
