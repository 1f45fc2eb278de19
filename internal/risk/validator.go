// Package risk gates every actionable signal before it can reach the
// broker: structural validation, position sizing and account-level limits.
package risk

import (
	"fmt"
	"math"

	"intraday-core/internal/strategy"
)

const minReasonLength = 10

// reasonTolerance absorbs the two-decimal rounding of annotated levels.
const reasonTolerance = 0.005 + 1e-9

// ValidateSignal is the final gate before submission. It trusts nothing
// upstream: every field is re-checked from scratch, and when the reason
// annotation matches the entry grammar its levels are cross-checked
// against the structured fields. HOLD signals pass untouched.
func ValidateSignal(sig strategy.Signal) error {
	if sig.Hold() {
		return nil
	}

	if sig.Symbol == "" {
		return fmt.Errorf("validate: missing symbol")
	}
	if sig.Action != strategy.ActionBuy && sig.Action != strategy.ActionSell {
		return fmt.Errorf("validate: unknown action %q", sig.Action)
	}
	if !isFinitePositive(sig.Price) {
		return fmt.Errorf("validate: price %v is not a positive finite number", sig.Price)
	}
	if sig.Quantity <= 0 {
		return fmt.Errorf("validate: quantity %d must be positive", sig.Quantity)
	}
	if len(sig.Reason) < minReasonLength {
		return fmt.Errorf("validate: reason too short (%d chars, need %d)", len(sig.Reason), minReasonLength)
	}

	if !isFinitePositive(sig.Entry) || !isFinitePositive(sig.StopLoss) || !isFinitePositive(sig.Target) {
		return fmt.Errorf("validate: entry/stop/target must be positive finite numbers")
	}

	switch sig.Action {
	case strategy.ActionBuy:
		if sig.Entry <= sig.StopLoss {
			return fmt.Errorf("validate: long entry %.2f must exceed stop %.2f", sig.Entry, sig.StopLoss)
		}
		if sig.Target <= sig.Entry {
			return fmt.Errorf("validate: long target %.2f must exceed entry %.2f", sig.Target, sig.Entry)
		}
	case strategy.ActionSell:
		if sig.Entry >= sig.StopLoss {
			return fmt.Errorf("validate: short entry %.2f must be below stop %.2f", sig.Entry, sig.StopLoss)
		}
		if sig.Target >= sig.Entry {
			return fmt.Errorf("validate: short target %.2f must be below entry %.2f", sig.Target, sig.Entry)
		}
	}

	if parsed, ok := strategy.ParseEntryReason(sig.Reason); ok {
		if err := crossCheck(sig, parsed); err != nil {
			return err
		}
	}

	return nil
}

// crossCheck compares annotated levels against the structured fields.
func crossCheck(sig strategy.Signal, parsed strategy.ParsedReason) error {
	wantBias := strategy.BiasLong
	if sig.Action == strategy.ActionSell {
		wantBias = strategy.BiasShort
	}
	if parsed.Bias != wantBias {
		return fmt.Errorf("validate: reason direction %s conflicts with action %s", parsed.Bias, sig.Action)
	}
	if !near(parsed.Entry, sig.Entry) {
		return fmt.Errorf("validate: reason entry %.2f disagrees with signal entry %.2f", parsed.Entry, sig.Entry)
	}
	if !near(parsed.Stop, sig.StopLoss) {
		return fmt.Errorf("validate: reason stop %.2f disagrees with signal stop %.2f", parsed.Stop, sig.StopLoss)
	}
	if !near(parsed.Target, sig.Target) {
		return fmt.Errorf("validate: reason target %.2f disagrees with signal target %.2f", parsed.Target, sig.Target)
	}
	return nil
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= reasonTolerance
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
