package strategy

import "testing"

func TestDetectSetup(t *testing.T) {
	tests := []struct {
		name     string
		c        Candle
		sma      float64
		wantBias Bias
		wantOK   bool
	}{
		{
			name: "long setup: lower wick pierces sma, close above",
			// body 0.5, range 2.2, lower wick 2.0
			c:        Candle{Open: 101, High: 101.2, Low: 99, Close: 100.5},
			sma:      100,
			wantBias: BiasLong,
			wantOK:   true,
		},
		{
			name: "short setup: upper wick pierces sma, close below",
			c:        Candle{Open: 99, High: 101, Low: 98.8, Close: 99.5},
			sma:      100,
			wantBias: BiasShort,
			wantOK:   true,
		},
		{
			name: "zero range candle is never a setup",
			c:      Candle{Open: 100, High: 100, Low: 100, Close: 100},
			sma:    100,
			wantOK: false,
		},
		{
			name: "body too large relative to range",
			// body 1.5 of range 2.0 = 75%
			c:      Candle{Open: 99.2, High: 101, Low: 99, Close: 100.7},
			sma:    100,
			wantOK: false,
		},
		{
			name: "wick never reaches the sma",
			c:      Candle{Open: 102, High: 102.2, Low: 100.5, Close: 102.1},
			sma:    100,
			wantOK: false,
		},
		{
			name: "close back below sma disqualifies long",
			c:      Candle{Open: 100.1, High: 100.2, Low: 98, Close: 99.9},
			sma:    100,
			wantOK: false,
		},
		{
			name: "wick less than twice the body",
			// body 0.4, lower wick 0.6, range 2.1
			c:      Candle{Open: 100.5, High: 102, Low: 99.9, Close: 100.9},
			sma:    100,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bias, ok := DetectSetup(tt.c, tt.sma)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && bias != tt.wantBias {
				t.Fatalf("bias = %v, want %v", bias, tt.wantBias)
			}
		})
	}
}
