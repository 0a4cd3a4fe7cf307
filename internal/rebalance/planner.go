// Package rebalance converts portfolio snapshots into notional order plans.
package rebalance

import (
	"fmt"
	"math"
	"sort"

	"daily-losers-bot/internal/types"
)

const DefaultTargetCashFraction = 0.10

// Options tunes PlanLiquidation.
type Options struct {
	TargetCashFraction float64
	// SkipLosing drops top-half positions that are under water.
	SkipLosing bool
}

func DefaultOptions() Options {
	return Options{TargetCashFraction: DefaultTargetCashFraction, SkipLosing: true}
}

// PlanLiquidation builds the sells that bring cash back to the target
// fraction of the portfolio. The top half of positions by unrealized P&L
// percent is sold in proportion to market value, each amount truncated to
// whole currency units. The truncation means the plan can fall short of
// the cash needed by less than one unit per position sold.
func PlanLiquidation(positions []types.Position, opts Options) (types.Plan, error) {
	frac := opts.TargetCashFraction
	if frac <= 0 || frac >= 1 || math.IsNaN(frac) {
		return types.Plan{}, fmt.Errorf("%w: target cash fraction %v", types.ErrInvalidParameter, frac)
	}
	if len(positions) == 0 {
		return types.Plan{}, nil
	}

	total, cash := 0.0, 0.0
	holdings := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		total += p.MarketValue
		if p.IsCash() {
			cash += p.MarketValue
			continue
		}
		if p.MarketValue > 0 {
			holdings = append(holdings, p)
		}
	}
	if total <= 0 || cash/total >= frac {
		return types.Plan{}, nil
	}
	cashNeeded := total*frac - cash

	top := TopPerformers(holdings)
	if opts.SkipLosing {
		kept := top[:0]
		for _, p := range top {
			if p.UnrealizedPLPct >= 0 {
				kept = append(kept, p)
			}
		}
		top = kept
	}

	topTotal := 0.0
	for _, p := range top {
		topTotal += p.MarketValue
	}
	if topTotal <= 0 {
		return types.Plan{}, nil
	}

	plan := types.Plan{}
	for _, p := range top {
		amount := math.Floor(p.MarketValue / topTotal * cashNeeded)
		if amount <= 0 {
			continue
		}
		plan.Entries = append(plan.Entries, types.PlanEntry{Symbol: p.Symbol, Notional: amount})
	}
	return plan, nil
}

// CashNeeded is the shortfall against the target, zero when already met.
func CashNeeded(positions []types.Position, frac float64) float64 {
	total, cash := 0.0, 0.0
	for _, p := range positions {
		total += p.MarketValue
		if p.IsCash() {
			cash += p.MarketValue
		}
	}
	if total <= 0 || cash/total >= frac {
		return 0
	}
	return total*frac - cash
}

// TopPerformers ranks non-cash positions by unrealized P&L percent, best
// first, and keeps floor(n/2) of them.
func TopPerformers(positions []types.Position) []types.Position {
	ranked := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		if !p.IsCash() {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UnrealizedPLPct > ranked[j].UnrealizedPLPct
	})
	return ranked[:len(ranked)/2]
}
