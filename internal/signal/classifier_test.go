package signal

import (
	"math"
	"reflect"
	"testing"

	"daily-losers-bot/internal/types"
)

func row(symbol string, windows ...types.WindowIndicators) types.IndicatorRow {
	return types.IndicatorRow{Symbol: symbol, Windows: windows}
}

func win(n int, rsi float64, high, low bool) types.WindowIndicators {
	return types.WindowIndicators{Window: n, RSI: rsi, BBHigh: high, BBLow: low}
}

func undefinedRow(symbol string) types.IndicatorRow {
	nan := math.NaN()
	return row(symbol, win(14, nan, false, false), win(30, nan, false, false), win(50, nan, false, false), win(200, nan, false, false))
}

func TestClassifyBuy(t *testing.T) {
	c := New()
	rows := []types.IndicatorRow{
		row("RSI14", win(14, 25, false, false), win(30, 45, false, false)),
		row("EDGE", win(50, 30, false, false)),
		row("BAND200", win(14, 50, false, false), win(200, 55, false, true)),
		row("NONE", win(14, 50, false, false), win(30, 31, false, false)),
		row("SELLONLY", win(14, 75, true, false)),
		undefinedRow("SHORT"),
	}

	got := c.ClassifyBuy(rows)
	want := []string{"RSI14", "EDGE", "BAND200"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ClassifyBuy = %v, want %v", got, want)
	}
}

func TestClassifySell(t *testing.T) {
	c := New()
	rows := []types.IndicatorRow{
		row("RSI30", win(14, 50, false, false), win(30, 71, false, false)),
		row("EDGE", win(200, 70, false, false)),
		row("BAND14", win(14, 60, true, false)),
		row("NONE", win(14, 69.9, false, false)),
		row("BUYONLY", win(14, 20, false, true)),
		undefinedRow("SHORT"),
	}

	got := c.ClassifySell(rows)
	want := []string{"RSI30", "EDGE", "BAND14"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ClassifySell = %v, want %v", got, want)
	}
}

func TestUndefinedRowExcludedFromBoth(t *testing.T) {
	c := New()
	rows := []types.IndicatorRow{undefinedRow("SHORT")}
	if got := c.ClassifyBuy(rows); len(got) != 0 {
		t.Errorf("expected no buys, got %v", got)
	}
	if got := c.ClassifySell(rows); len(got) != 0 {
		t.Errorf("expected no sells, got %v", got)
	}
}

func TestCustomThresholds(t *testing.T) {
	c := Classifier{Oversold: 40, Overbought: 60, Windows: []int{14}}
	rows := []types.IndicatorRow{
		row("LOW", win(14, 39, false, false)),
		row("HIGH", win(14, 61, false, false)),
		row("IGNORED", win(30, 10, false, true)),
	}
	if got := c.ClassifyBuy(rows); !reflect.DeepEqual(got, []string{"LOW"}) {
		t.Errorf("ClassifyBuy = %v", got)
	}
	if got := c.ClassifySell(rows); !reflect.DeepEqual(got, []string{"HIGH"}) {
		t.Errorf("ClassifySell = %v", got)
	}
}
