// Package signal turns indicator rows into buy and sell symbol sets.
package signal

import (
	"daily-losers-bot/internal/ta"
	"daily-losers-bot/internal/types"
)

const (
	DefaultOversold   = 30.0
	DefaultOverbought = 70.0
)

type Classifier struct {
	Oversold   float64
	Overbought float64
	Windows    []int
}

func New() Classifier {
	return Classifier{
		Oversold:   DefaultOversold,
		Overbought: DefaultOverbought,
		Windows:    ta.DefaultWindows,
	}
}

// IsBuy is true when any window closed at or under its lower band or has an
// RSI at or under Oversold. NaN readings never match.
func (c Classifier) IsBuy(row types.IndicatorRow) bool {
	for _, n := range c.Windows {
		w, ok := row.Window(n)
		if !ok {
			continue
		}
		if w.BBLow || w.RSI <= c.Oversold {
			return true
		}
	}
	return false
}

// IsSell mirrors IsBuy on the upper band and Overbought.
func (c Classifier) IsSell(row types.IndicatorRow) bool {
	for _, n := range c.Windows {
		w, ok := row.Window(n)
		if !ok {
			continue
		}
		if w.BBHigh || w.RSI >= c.Overbought {
			return true
		}
	}
	return false
}

func (c Classifier) ClassifyBuy(rows []types.IndicatorRow) []string {
	return c.filter(rows, c.IsBuy)
}

func (c Classifier) ClassifySell(rows []types.IndicatorRow) []string {
	return c.filter(rows, c.IsSell)
}

func (c Classifier) filter(rows []types.IndicatorRow, keep func(types.IndicatorRow) bool) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, r := range rows {
		if seen[r.Symbol] || !keep(r) {
			continue
		}
		seen[r.Symbol] = true
		out = append(out, r.Symbol)
	}
	return out
}
