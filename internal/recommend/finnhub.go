// Package recommend fetches analyst rating counts.
package recommend

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"daily-losers-bot/internal/api"
	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/ratelimit"
	"daily-losers-bot/internal/types"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

// Finnhub reads /stock/recommendation, which lists periods newest first.
// The token travels in a header so request URLs are safe to log.
type Finnhub struct {
	client *api.Client
}

var _ interfaces.RecommendationSource = (*Finnhub)(nil)

type Options struct {
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
}

func NewFinnhub(token string, opts Options) *Finnhub {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	clientOpts := []api.ClientOption{
		api.WithBaseURL(opts.BaseURL),
		api.WithTimeout(opts.Timeout),
		api.WithHeader("X-Finnhub-Token", token),
		api.WithLogging(true),
	}
	if opts.RequestsPerMinute > 0 {
		clientOpts = append(clientOpts, api.WithRateLimiter(ratelimit.PerMinute(opts.RequestsPerMinute)))
	}
	return &Finnhub{client: api.NewClient(clientOpts...)}
}

// Recommendation returns the most recent period for symbol.
func (f *Finnhub) Recommendation(ctx context.Context, symbol string) (types.Recommendation, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	req := api.NewRequest("GET", "/stock/recommendation?"+q.Encode()).WithContext(ctx)
	resp, err := f.client.DoWithRetry(req, nil)
	if err != nil {
		return types.Recommendation{}, types.NewSymbolError(symbol, "recommendation", err)
	}

	var periods []types.Recommendation
	if err := resp.ParseJSON(&periods); err != nil {
		return types.Recommendation{}, types.NewSymbolError(symbol, "recommendation", err)
	}
	if len(periods) == 0 {
		return types.Recommendation{}, types.NewSymbolError(symbol, "recommendation",
			fmt.Errorf("%w: no analyst coverage", types.ErrDataUnavailable))
	}

	latest := periods[0]
	if latest.Symbol == "" {
		latest.Symbol = symbol
	}
	logger.Debug(ctx, "Fetched analyst recommendation", "symbol", symbol, "period", latest.Period,
		"strong_buy", latest.StrongBuy, "buy", latest.Buy, "hold", latest.Hold,
		"sell", latest.Sell, "strong_sell", latest.StrongSell)
	return latest, nil
}
