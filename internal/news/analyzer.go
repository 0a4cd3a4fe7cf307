package news

import (
	"context"
	"fmt"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/ratelimit"
	"daily-losers-bot/internal/sentiment"
	"daily-losers-bot/internal/trace"
	"daily-losers-bot/internal/types"
)

// Analyzer labels articles one by one and folds the labels into a verdict
type Analyzer struct {
	labeler interfaces.SentimentLabeler
	limiter *ratelimit.Limiter
}

func NewAnalyzer(labeler interfaces.SentimentLabeler, limiter *ratelimit.Limiter) *Analyzer {
	return &Analyzer{labeler: labeler, limiter: limiter}
}

// LabelArticles returns one label per article. An article the model fails on
// counts as NEUTRAL so it still votes against BULLISH; when every article
// fails the result is ErrDataUnavailable.
func (a *Analyzer) LabelArticles(ctx context.Context, symbol string, articles []types.Article) ([]types.SentimentLabel, error) {
	ctx, span := trace.StartSpan(ctx, "news.LabelArticles")
	defer span.End()

	labels := make([]types.SentimentLabel, 0, len(articles))
	labeled := 0
	var lastErr error
	for _, article := range articles {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body := truncate(HTMLToText(article.Body), maxBodyChars)
		label, err := a.labeler.Label(ctx, article.Title, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn(ctx, "Failed to label article, counting it as neutral", "symbol", symbol, "title", article.Title, "error", err)
			lastErr = err
			labels = append(labels, types.Neutral)
			continue
		}
		logger.Debug(ctx, "Article labeled", "symbol", symbol, "title", article.Title, "label", label)
		labels = append(labels, label)
		labeled++
	}

	if labeled == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: no article could be labeled: %w", types.ErrDataUnavailable, lastErr)
		}
		return nil, fmt.Errorf("%w: no articles", types.ErrDataUnavailable)
	}
	return labels, nil
}

// Analyze labels the articles and aggregates the result.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, articles []types.Article) (types.SentimentVerdict, error) {
	labels, err := a.LabelArticles(ctx, symbol, articles)
	if err != nil {
		return types.SentimentVerdict{}, types.NewSymbolError(symbol, "news_sentiment", err)
	}
	label, err := sentiment.AggregateArticles(labels)
	if err != nil {
		return types.SentimentVerdict{}, types.NewSymbolError(symbol, "news_sentiment", err)
	}

	v := types.SentimentVerdict{Symbol: symbol, Label: label, Articles: len(labels)}
	logger.Info(ctx, "News sentiment aggregated", "symbol", symbol, "articles", v.Articles, "verdict", v.Label)
	return v, nil
}
