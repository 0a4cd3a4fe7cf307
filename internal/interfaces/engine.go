package interfaces

import (
	"context"

	"daily-losers-bot/internal/types"
)

type Engine interface {
	Run(ctx context.Context) (*types.RunReport, error)
	SellFromCriteria(ctx context.Context) (types.PhaseReport, error)
	LiquidateForCapital(ctx context.Context) (types.PhaseReport, error)
	BuyOrders(ctx context.Context) (types.PhaseReport, error)
	GetBuyCandidates(ctx context.Context) ([]string, []types.SymbolFailure, error)
	GetSellCandidates(ctx context.Context, positions []types.Position) ([]string, []types.SymbolFailure, error)
}
