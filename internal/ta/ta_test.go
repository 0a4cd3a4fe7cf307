package ta

import (
	"errors"
	"math"
	"testing"
	"time"

	"daily-losers-bot/internal/types"
)

func barsFrom(closes ...float64) []types.PriceBar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]types.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = types.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func TestRSIKnownValue(t *testing.T) {
	got := RSI([]float64{1, 2, 1}, 2)
	want := 100.0 - 100.0/1.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("RSI = %f, want %f", got, want)
	}
}

func TestRSIShortHistoryIsNaN(t *testing.T) {
	if v := RSI([]float64{1, 2, 3}, 14); !math.IsNaN(v) {
		t.Errorf("expected NaN for short history, got %f", v)
	}
	if v := RSI(nil, 14); !math.IsNaN(v) {
		t.Errorf("expected NaN for empty history, got %f", v)
	}
}

func TestRSIRisingSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	if v := RSI(closes, 14); v != 100 {
		t.Errorf("expected 100 for a strictly rising series, got %f", v)
	}
}

func TestRSIBounded(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 50 + 10*math.Sin(float64(i)/3) + float64(i%7)
	}
	for _, n := range DefaultWindows {
		for i, v := range RSISeries(closes, n) {
			if i < n-1 {
				if !math.IsNaN(v) {
					t.Fatalf("window %d index %d: expected NaN, got %f", n, i, v)
				}
				continue
			}
			if v < 0 || v > 100 {
				t.Fatalf("window %d index %d: RSI %f out of range", n, i, v)
			}
		}
	}
}

func TestStdDevIsPopulation(t *testing.T) {
	got := StdDev([]float64{1, 2, 3, 4, 5}, 5)
	if math.Abs(got-math.Sqrt2) > 1e-12 {
		t.Errorf("StdDev = %f, want %f", got, math.Sqrt2)
	}
}

func TestComputeIndicatorsBandBreaches(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		wantHigh bool
		wantLow  bool
	}{
		{"touches upper band", []float64{10, 10, 10, 10, 20}, true, false},
		{"touches lower band", []float64{20, 20, 20, 20, 10}, false, true},
		{"inside bands", []float64{1, 2, 3, 4, 5}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := ComputeIndicators("AAA", barsFrom(tt.closes...), []int{5})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			w, ok := row.Window(5)
			if !ok {
				t.Fatal("window 5 missing")
			}
			if w.BBHigh != tt.wantHigh || w.BBLow != tt.wantLow {
				t.Errorf("got high=%v low=%v, want high=%v low=%v", w.BBHigh, w.BBLow, tt.wantHigh, tt.wantLow)
			}
		})
	}
}

func TestComputeIndicatorsShortHistory(t *testing.T) {
	row, err := ComputeIndicators("AAA", barsFrom(10, 9, 8), DefaultWindows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(row.Windows) != len(DefaultWindows) {
		t.Fatalf("expected %d windows, got %d", len(DefaultWindows), len(row.Windows))
	}
	for _, w := range row.Windows {
		if w.Valid() || w.BBHigh || w.BBLow {
			t.Errorf("window %d should be undefined, got %+v", w.Window, w)
		}
	}
	if !row.AllUndefined() {
		t.Error("expected row to be all undefined")
	}
	if row.Close != 8 {
		t.Errorf("expected latest close 8, got %f", row.Close)
	}
}

func TestComputeIndicatorsErrors(t *testing.T) {
	if _, err := ComputeIndicators("AAA", barsFrom(1, 2, 3), []int{14, -1}); !errors.Is(err, types.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for negative window, got %v", err)
	}
	if _, err := ComputeIndicators("AAA", nil, DefaultWindows); !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for empty history, got %v", err)
	}
	if _, err := ComputeIndicatorsK("AAA", barsFrom(1, 2, 3), DefaultWindows, -2); !errors.Is(err, types.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for negative band width, got %v", err)
	}
}

func TestBollingerSeriesAligned(t *testing.T) {
	bands := BollingerSeries([]float64{1, 2, 3, 4, 5, 6}, 5, 2)
	if len(bands) != 6 {
		t.Fatalf("expected 6 bands, got %d", len(bands))
	}
	for i := 0; i < 4; i++ {
		if !math.IsNaN(bands[i].Middle) {
			t.Errorf("index %d: expected NaN middle band", i)
		}
	}
	if bands[4].Middle != 3 || bands[5].Middle != 4 {
		t.Errorf("unexpected middle bands %f, %f", bands[4].Middle, bands[5].Middle)
	}
}
