package engine

import (
	"fmt"
	"strconv"
	"strings"

	"daily-losers-bot/internal/types"
)

const (
	msgNothingToSell      = "No positions to sell"
	msgNothingToLiquidate = "No positions available to liquidate for capital"
	msgNothingLiquidated  = "No positions liquidated for capital"
	msgNothingBought      = "No positions bought"
	msgSoldHeader         = "Successfully%s sold the following positions:\n"
	msgLiquidatedHeader   = "Successfully%s liquidated the following positions:\n"
	msgBoughtHeader       = "Successfully%s bought the following positions:\n"
	pretendMarker         = " pretend"
	failuresHeader        = "Errors:\n"
)

func summaryMessage(phase string, outcomes []types.OrderOutcome, pretend bool) string {
	marker := ""
	if pretend {
		marker = pretendMarker
	}

	var b strings.Builder
	switch phase {
	case types.PhaseSell:
		if len(outcomes) == 0 {
			return msgNothingToSell
		}
		fmt.Fprintf(&b, msgSoldHeader, marker)
		for _, o := range outcomes {
			fmt.Fprintf(&b, "%s shares of %s\n", formatAmount(o.Qty), o.Symbol)
		}
	case types.PhaseLiquidate:
		if len(outcomes) == 0 {
			return msgNothingLiquidated
		}
		fmt.Fprintf(&b, msgLiquidatedHeader, marker)
		for _, o := range outcomes {
			fmt.Fprintf(&b, "Sold $%s of %s\n", formatAmount(o.Notional), o.Symbol)
		}
	case types.PhaseBuy:
		if len(outcomes) == 0 {
			return msgNothingBought
		}
		fmt.Fprintf(&b, msgBoughtHeader, marker)
		for _, o := range outcomes {
			fmt.Fprintf(&b, "$%s of %s\n", formatAmount(o.Notional), o.Symbol)
		}
	}
	return b.String()
}

func failedMessage(phase string, err error) string {
	return fmt.Sprintf("%s failed: %v", phase, err)
}

// withFailures appends one line per skipped symbol.
func withFailures(msg string, failures []types.SymbolFailure) string {
	if len(failures) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(failuresHeader)
	for _, f := range failures {
		b.WriteString(f.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// formatAmount prints the shortest form: 5000, 12.5, 33.33.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func indicatorFields(r types.IndicatorRow) map[string]float64 {
	out := map[string]float64{"close": r.Close}
	for _, w := range r.Windows {
		if !w.Valid() {
			continue
		}
		n := strconv.Itoa(w.Window)
		out["rsi_"+n] = w.RSI
		out["bb_upper_"+n] = w.BBUpper
		out["bb_lower_"+n] = w.BBLower
	}
	return out
}
