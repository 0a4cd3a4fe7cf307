package rebalance

import (
	"errors"
	"reflect"
	"testing"

	"daily-losers-bot/internal/types"
)

func TestPlanPurchasesEqualWeight(t *testing.T) {
	plan, err := PlanPurchases([]string{"AAA", "BBB"}, 1000, 5, DefaultCashReserve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []types.PlanEntry{{Symbol: "AAA", Notional: 499}, {Symbol: "BBB", Notional: 499}}
	if !reflect.DeepEqual(plan.Entries, want) {
		t.Errorf("got %+v, want %+v", plan.Entries, want)
	}
}

func TestPlanPurchasesLimit(t *testing.T) {
	candidates := []string{"A", "B", "C", "D", "E", "F"}
	plan, err := PlanPurchases(candidates, 900, 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := plan.Symbols(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("got %v, want first three candidates", got)
	}
	for _, e := range plan.Entries {
		if e.Notional != 300 {
			t.Errorf("%s: notional %f, want 300", e.Symbol, e.Notional)
		}
	}
}

func TestPlanPurchasesRoundsDownToCents(t *testing.T) {
	plan, err := PlanPurchases([]string{"A", "B", "C"}, 100, 8, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range plan.Entries {
		if e.Notional != 33.33 {
			t.Errorf("%s: notional %f, want 33.33", e.Symbol, e.Notional)
		}
	}
	if plan.Total() > 100 {
		t.Errorf("plan spends %f, more than available", plan.Total())
	}
}

func TestPlanPurchasesEmpty(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		cash       float64
		reserve    float64
	}{
		{"no candidates", nil, 1000, 1},
		{"no cash", []string{"A"}, 0, 1},
		{"reserve eats slice", []string{"A", "B"}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanPurchases(tt.candidates, tt.cash, 5, tt.reserve)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !plan.IsEmpty() {
				t.Errorf("expected empty plan, got %+v", plan)
			}
		})
	}
}

func TestPlanPurchasesInvalid(t *testing.T) {
	if _, err := PlanPurchases([]string{"A"}, 100, 0, 1); !errors.Is(err, types.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for zero limit, got %v", err)
	}
	if _, err := PlanPurchases([]string{"A"}, 100, 5, -1); !errors.Is(err, types.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for negative reserve, got %v", err)
	}
}
