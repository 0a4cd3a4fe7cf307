package interfaces

import (
	"context"
	"time"

	"daily-losers-bot/internal/types"
)

type MarketData interface {
	// PriceHistory returns bars in chronological order. timeframe is one of
	// 1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w, 1mo.
	PriceHistory(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]types.PriceBar, error)
}
