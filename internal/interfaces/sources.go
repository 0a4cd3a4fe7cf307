package interfaces

import (
	"context"

	"daily-losers-bot/internal/types"
)

// NewsSource provides recent articles about a symbol.
type NewsSource interface {
	Articles(ctx context.Context, symbol string, limit int) ([]types.Article, error)
}

// RecommendationSource provides the latest analyst rating counts.
type RecommendationSource interface {
	Recommendation(ctx context.Context, symbol string) (types.Recommendation, error)
}

// Notifier delivers phase summaries to a human.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Recorder persists run reports.
type Recorder interface {
	RecordRun(ctx context.Context, report *types.RunReport) error
	Close() error
}
