package risk

import (
	"math"
	"strings"
	"testing"
	"time"

	"intraday-core/internal/strategy"
)

func validBuySignal() strategy.Signal {
	return strategy.Signal{
		Symbol:      "RELIANCE",
		Action:      strategy.ActionBuy,
		Price:       101.3,
		Quantity:    10,
		Entry:       101.3,
		StopLoss:    99.5,
		Target:      110.3,
		Reason:      strategy.FormatEntryReason(strategy.BiasLong, 101.3, 99.5, 110.3),
		GeneratedAt: time.Now(),
	}
}

func TestValidateSignalAccepts(t *testing.T) {
	if err := ValidateSignal(validBuySignal()); err != nil {
		t.Fatalf("valid signal rejected: %v", err)
	}
}

func TestValidateSignalHoldBypasses(t *testing.T) {
	sig := strategy.Signal{Action: strategy.ActionHold, Reason: "x"}
	if err := ValidateSignal(sig); err != nil {
		t.Fatalf("HOLD should bypass validation, got %v", err)
	}
}

func TestValidateSignalRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*strategy.Signal)
		wantMsg string
	}{
		{
			name:    "missing symbol",
			mutate:  func(s *strategy.Signal) { s.Symbol = "" },
			wantMsg: "symbol",
		},
		{
			name:    "unknown action",
			mutate:  func(s *strategy.Signal) { s.Action = "LONG" },
			wantMsg: "action",
		},
		{
			name:    "zero price",
			mutate:  func(s *strategy.Signal) { s.Price = 0 },
			wantMsg: "price",
		},
		{
			name:    "nan price",
			mutate:  func(s *strategy.Signal) { s.Price = math.NaN() },
			wantMsg: "price",
		},
		{
			name:    "negative quantity",
			mutate:  func(s *strategy.Signal) { s.Quantity = -5 },
			wantMsg: "quantity",
		},
		{
			name:    "zero quantity",
			mutate:  func(s *strategy.Signal) { s.Quantity = 0 },
			wantMsg: "quantity",
		},
		{
			name:    "reason too short",
			mutate:  func(s *strategy.Signal) { s.Reason = "ok" },
			wantMsg: "reason too short",
		},
		{
			name: "long stop above entry",
			mutate: func(s *strategy.Signal) {
				s.StopLoss = 102
				s.Reason = strategy.FormatEntryReason(strategy.BiasLong, s.Entry, 102, s.Target)
			},
			wantMsg: "stop",
		},
		{
			name: "long target below entry",
			mutate: func(s *strategy.Signal) {
				s.Target = 100
				s.Reason = strategy.FormatEntryReason(strategy.BiasLong, s.Entry, s.StopLoss, 100)
			},
			wantMsg: "target",
		},
		{
			name: "reason direction conflicts with action",
			mutate: func(s *strategy.Signal) {
				s.Reason = strategy.FormatEntryReason(strategy.BiasShort, s.Entry, s.StopLoss, s.Target)
			},
			wantMsg: "direction",
		},
		{
			name: "reason levels disagree with fields",
			mutate: func(s *strategy.Signal) {
				s.Reason = strategy.FormatEntryReason(strategy.BiasLong, 105.55, s.StopLoss, s.Target)
			},
			wantMsg: "disagrees",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := validBuySignal()
			tt.mutate(&sig)
			err := ValidateSignal(sig)
			if err == nil {
				t.Fatal("expected rejection, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidateSignalShortOrdering(t *testing.T) {
	sig := strategy.Signal{
		Symbol:   "TCS",
		Action:   strategy.ActionSell,
		Price:    98.7,
		Quantity: 5,
		Entry:    98.7,
		StopLoss: 100.5,
		Target:   89.7,
		Reason:   strategy.FormatEntryReason(strategy.BiasShort, 98.7, 100.5, 89.7),
	}
	if err := ValidateSignal(sig); err != nil {
		t.Fatalf("valid short rejected: %v", err)
	}

	sig.StopLoss = 98
	sig.Reason = strategy.FormatEntryReason(strategy.BiasShort, 98.7, 98, 89.7)
	if err := ValidateSignal(sig); err == nil {
		t.Fatal("short with stop below entry should be rejected")
	}
}

func TestValidateSignalFreeformReasonSkipsCrossCheck(t *testing.T) {
	sig := validBuySignal()
	sig.Reason = "manual override entry per desk instruction"
	if err := ValidateSignal(sig); err != nil {
		t.Fatalf("freeform reason should not trigger cross-check: %v", err)
	}
}
