package ta

import (
	"fmt"
	"math"

	"daily-losers-bot/internal/types"
)

// DefaultWindows are the lookbacks the strategy evaluates.
var DefaultWindows = []int{14, 30, 50, 200}

// DefaultBandWidth is the Bollinger k.
const DefaultBandWidth = 2.0

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// RSI returns the latest Wilder RSI over n periods, NaN when fewer than n
// closes are available.
func RSI(closes []float64, n int) float64 {
	s := RSISeries(closes, n)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

// RSISeries is aligned with closes. Gains and losses are smoothed with an
// exponential average (alpha = 1/n) seeded at zero on the first bar, and
// values before index n-1 are NaN.
func RSISeries(closes []float64, n int) []float64 {
	out := make([]float64, len(closes))
	if n <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	alpha := 1.0 / float64(n)
	var avgUp, avgDown float64
	for i := range closes {
		up, down := 0.0, 0.0
		if i > 0 {
			d := closes[i] - closes[i-1]
			if d > 0 {
				up = d
			} else {
				down = -d
			}
		}
		if i == 0 {
			avgUp, avgDown = up, down
		} else {
			avgUp = (1-alpha)*avgUp + alpha*up
			avgDown = (1-alpha)*avgDown + alpha*down
		}
		if i < n-1 {
			out[i] = math.NaN()
			continue
		}
		if avgDown == 0 {
			out[i] = 100.0
			continue
		}
		rs := avgUp / avgDown
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}

// StdDev is the population standard deviation of the last n values.
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

// Band is one aligned Bollinger reading.
type Band struct {
	Middle, Upper, Lower float64
}

// BollingerSeries computes bands for every index of closes. Entries before
// the window is populated are NaN.
func BollingerSeries(closes []float64, n int, k float64) []Band {
	out := make([]Band, len(closes))
	for i := range closes {
		mid, up, low := Bollinger(closes[:i+1], n, k)
		out[i] = Band{Middle: mid, Upper: up, Lower: low}
	}
	return out
}

// Closes extracts closing prices in bar order.
func Closes(bars []types.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// ComputeIndicators evaluates every window against the latest bar.
func ComputeIndicators(symbol string, bars []types.PriceBar, windows []int) (types.IndicatorRow, error) {
	return ComputeIndicatorsK(symbol, bars, windows, DefaultBandWidth)
}

func ComputeIndicatorsK(symbol string, bars []types.PriceBar, windows []int, k float64) (types.IndicatorRow, error) {
	if k < 0 {
		return types.IndicatorRow{}, fmt.Errorf("%w: band width %.2f", types.ErrInvalidParameter, k)
	}
	for _, n := range windows {
		if n <= 0 {
			return types.IndicatorRow{}, fmt.Errorf("%w: window %d", types.ErrInvalidParameter, n)
		}
	}
	if len(bars) == 0 {
		return types.IndicatorRow{}, types.NewSymbolError(symbol, "indicators", types.ErrDataUnavailable)
	}

	closes := Closes(bars)
	latest := bars[len(bars)-1]
	row := types.IndicatorRow{
		Symbol:  symbol,
		Date:    latest.Date,
		Close:   latest.Close,
		Windows: make([]types.WindowIndicators, 0, len(windows)),
	}
	for _, n := range windows {
		mid, up, low := Bollinger(closes, n, k)
		w := types.WindowIndicators{
			Window:   n,
			RSI:      RSI(closes, n),
			BBUpper:  up,
			BBMiddle: mid,
			BBLower:  low,
		}
		// comparisons against NaN are false, so short windows never breach
		w.BBHigh = latest.Close >= up
		w.BBLow = latest.Close <= low
		row.Windows = append(row.Windows, w)
	}
	return row, nil
}
