package noop

import (
	"context"

	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/types"
)

// Labeler is used when no model is configured. Every article is NEUTRAL,
// so no symbol ever passes the news gate.
type Labeler struct{}

func New() *Labeler {
	return &Labeler{}
}

func (l *Labeler) Label(ctx context.Context, title, body string) (types.SentimentLabel, error) {
	logger.Debug(ctx, "Noop labeler called - always returns NEUTRAL", "title", title)
	return types.Neutral, nil
}
