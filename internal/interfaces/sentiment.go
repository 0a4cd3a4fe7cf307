package interfaces

import (
	"context"

	"daily-losers-bot/internal/types"
)

// SentimentLabeler classifies a single news article.
type SentimentLabeler interface {
	Label(ctx context.Context, title, body string) (types.SentimentLabel, error)
}

// NewsSentiment reduces a symbol's recent articles to one label.
type NewsSentiment interface {
	Sentiment(ctx context.Context, symbol string) (types.SentimentLabel, error)
}
