package rebalance

import (
	"fmt"
	"math"

	"daily-losers-bot/internal/types"
)

const (
	DefaultBuyLimit    = 8
	DefaultCashReserve = 1.0
)

// PlanPurchases splits availableCash equally over the first limit
// candidates, holding back reserve dollars from each slice.
func PlanPurchases(candidates []string, availableCash float64, limit int, reserve float64) (types.Plan, error) {
	if limit <= 0 {
		return types.Plan{}, fmt.Errorf("%w: buy limit %d", types.ErrInvalidParameter, limit)
	}
	if reserve < 0 {
		return types.Plan{}, fmt.Errorf("%w: cash reserve %.2f", types.ErrInvalidParameter, reserve)
	}
	if len(candidates) == 0 || availableCash <= 0 {
		return types.Plan{}, nil
	}

	taken := candidates
	if len(taken) > limit {
		taken = taken[:limit]
	}
	notional := availableCash/float64(len(taken)) - reserve
	// orders are sent in cents
	notional = math.Floor(notional*100) / 100
	if notional <= 0 {
		return types.Plan{}, nil
	}

	plan := types.Plan{Entries: make([]types.PlanEntry, 0, len(taken))}
	for _, sym := range taken {
		plan.Entries = append(plan.Entries, types.PlanEntry{Symbol: sym, Notional: notional})
	}
	return plan, nil
}
