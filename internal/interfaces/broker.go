package interfaces

import (
	"context"

	"daily-losers-bot/internal/types"
)

// Broker is the trading side of the brokerage account.
type Broker interface {
	Account(ctx context.Context) (types.Account, error)
	// Positions includes a synthetic Cash row carrying uninvested cash.
	Positions(ctx context.Context) ([]types.Position, error)
	Asset(ctx context.Context, symbol string) (types.Asset, error)
	Clock(ctx context.Context) (types.Clock, error)
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}
