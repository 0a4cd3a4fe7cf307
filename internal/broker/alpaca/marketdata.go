package alpaca

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/types"
)

// PriceHistory fetches raw (unadjusted) bars between start and end.
func (a *Alpaca) PriceHistory(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]types.PriceBar, error) {
	tf, err := ParseTimeFrame(timeframe)
	if err != nil {
		return nil, types.NewSymbolError(symbol, "price_history", err)
	}
	if !end.After(start) {
		return nil, types.NewSymbolError(symbol, "price_history",
			fmt.Errorf("%w: end %s is not after start %s", types.ErrInvalidParameter, end.Format(time.DateOnly), start.Format(time.DateOnly)))
	}

	bars, err := a.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Start:      start,
		End:        end,
		Feed:       marketdata.Feed(a.p.Feed),
		Adjustment: marketdata.Adjustment("raw"),
	})
	if err != nil {
		return nil, classify(symbol, "price_history", err)
	}
	if len(bars) == 0 {
		return nil, types.NewSymbolError(symbol, "price_history", types.ErrDataUnavailable)
	}

	out := make([]types.PriceBar, 0, len(bars))
	for _, b := range bars {
		out = append(out, types.PriceBar{
			Date:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	logger.Debug(ctx, "Fetched price history", "symbol", symbol, "bars", len(out), "timeframe", timeframe)
	return out, nil
}

// Articles returns the most recent news for symbol, newest first.
func (a *Alpaca) Articles(ctx context.Context, symbol string, limit int) ([]types.Article, error) {
	if limit <= 0 {
		return nil, types.NewSymbolError(symbol, "news", fmt.Errorf("%w: limit %d", types.ErrInvalidParameter, limit))
	}
	news, err := a.data.GetNews(marketdata.GetNewsRequest{
		Symbols:        []string{symbol},
		TotalLimit:     limit,
		IncludeContent: true,
	})
	if err != nil {
		return nil, classify(symbol, "news", err)
	}
	if len(news) == 0 {
		return nil, types.NewSymbolError(symbol, "news", types.ErrDataUnavailable)
	}

	out := make([]types.Article, 0, len(news))
	for _, n := range news {
		body := n.Content
		if strings.TrimSpace(body) == "" {
			body = n.Summary
		}
		out = append(out, types.Article{
			Symbol:      symbol,
			Title:       n.Headline,
			Body:        body,
			URL:         n.URL,
			Source:      n.Source,
			PublishedAt: n.CreatedAt,
		})
	}
	return out, nil
}
