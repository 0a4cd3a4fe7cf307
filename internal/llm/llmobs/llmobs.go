package llmobs

import (
	"context"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/trace"
	"daily-losers-bot/internal/types"
)

// observableLabeler wraps a SentimentLabeler with observability (logging & tracing)
type observableLabeler struct {
	labeler  interfaces.SentimentLabeler
	provider string
}

var _ interfaces.SentimentLabeler = (*observableLabeler)(nil)

func Wrap(labeler interfaces.SentimentLabeler, provider string) interfaces.SentimentLabeler {
	return &observableLabeler{labeler: labeler, provider: provider}
}

func (ol *observableLabeler) Label(ctx context.Context, title, body string) (types.SentimentLabel, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Label")
	defer span.End()

	// Skip(1) reports the caller rather than this wrapper
	logger.DebugSkip(ctx, 1, "Requesting article sentiment",
		"provider", ol.provider,
		"title", title,
		"body_chars", len(body),
	)

	label, err := ol.labeler.Label(ctx, title, body)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to label article", err,
			"provider", ol.provider,
			"title", title,
		)
		return "", err
	}

	logger.DebugSkip(ctx, 1, "Article sentiment received",
		"provider", ol.provider,
		"title", title,
		"label", label,
	)
	return label, nil
}
