package sentiment

import (
	"fmt"
	"strings"

	"daily-losers-bot/internal/types"
)

// AggregateArticles reduces article labels to a verdict. It is BULLISH only
// when bullish labels outnumber bearish and neutral labels combined.
func AggregateArticles(labels []types.SentimentLabel) (types.SentimentLabel, error) {
	if len(labels) == 0 {
		return types.Bearish, fmt.Errorf("%w: no article labels", types.ErrDataUnavailable)
	}
	var bull, bear, neutral int
	for _, l := range labels {
		switch l {
		case types.Bullish:
			bull++
		case types.Bearish:
			bear++
		default:
			neutral++
		}
	}
	if bull > bear+neutral {
		return types.Bullish, nil
	}
	return types.Bearish, nil
}

// AggregateRecommendations is bullish when strong buy and buy counts
// outnumber strong sell, sell and hold combined.
func AggregateRecommendations(rec types.Recommendation) (bool, error) {
	bulls := rec.StrongBuy + rec.Buy
	bears := rec.StrongSell + rec.Sell + rec.Hold
	if bulls+bears == 0 {
		return false, fmt.Errorf("%w: no analyst ratings for %s", types.ErrDataUnavailable, rec.Symbol)
	}
	return bulls > bears, nil
}

// GateOrder decides which filter runs first when building buy candidates.
// A candidate must pass every gate either way.
type GateOrder string

const (
	TechnicalFirst GateOrder = "technical_first"
	SentimentFirst GateOrder = "sentiment_first"
)

func ParseGateOrder(s string) (GateOrder, error) {
	switch GateOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", TechnicalFirst:
		return TechnicalFirst, nil
	case SentimentFirst:
		return SentimentFirst, nil
	default:
		return "", fmt.Errorf("%w: gate order %q", types.ErrInvalidParameter, s)
	}
}
