package indicators

import (
	"errors"
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		period  int
		want    float64
		wantErr error
	}{
		{
			name:   "exact window",
			values: []float64{1, 2, 3, 4, 5},
			period: 5,
			want:   3,
		},
		{
			name:   "uses most recent values",
			values: []float64{100, 100, 10, 20, 30},
			period: 3,
			want:   20,
		},
		{
			name:    "insufficient data",
			values:  []float64{1, 2, 3},
			period:  5,
			wantErr: ErrInsufficientData,
		},
		{
			name:    "empty input",
			values:  nil,
			period:  50,
			wantErr: ErrInsufficientData,
		},
		{
			name:   "flat series",
			values: []float64{100.5, 100.5, 100.5, 100.5},
			period: 4,
			want:   100.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SMA(tt.values, tt.period)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("SMA = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSMAInvalidPeriod(t *testing.T) {
	if _, err := SMA([]float64{1, 2, 3}, 0); err == nil {
		t.Fatal("expected error for zero period")
	}
}
