package alpaca

import (
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"daily-losers-bot/internal/types"
)

var timeFrames = map[string]marketdata.TimeFrame{
	"1m":  marketdata.NewTimeFrame(1, marketdata.Min),
	"5m":  marketdata.NewTimeFrame(5, marketdata.Min),
	"15m": marketdata.NewTimeFrame(15, marketdata.Min),
	"30m": marketdata.NewTimeFrame(30, marketdata.Min),
	"1h":  marketdata.NewTimeFrame(1, marketdata.Hour),
	"4h":  marketdata.NewTimeFrame(4, marketdata.Hour),
	"1d":  marketdata.NewTimeFrame(1, marketdata.Day),
	"1w":  marketdata.NewTimeFrame(1, marketdata.Week),
	"1mo": marketdata.NewTimeFrame(1, marketdata.Month),
}

// ParseTimeFrame converts a bar interval such as "1d" or "15m".
func ParseTimeFrame(s string) (marketdata.TimeFrame, error) {
	tf, ok := timeFrames[s]
	if !ok {
		return marketdata.TimeFrame{}, fmt.Errorf("%w: unsupported timeframe %q", types.ErrInvalidParameter, s)
	}
	return tf, nil
}
