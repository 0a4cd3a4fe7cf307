package eodobs

import (
	"context"
	"time"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeDay")
	defer span.End()
	return oes.observe(ctx, t.Format(time.DateOnly), func() (string, error) {
		return oes.summarizer.SummarizeDay(t)
	})
}

func (oes *observableEodSummarizer) SummarizeToday() (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeToday")
	defer span.End()
	return oes.observe(ctx, "today", oes.summarizer.SummarizeToday)
}

func (oes *observableEodSummarizer) observe(ctx context.Context, date string, fn func() (string, error)) (string, error) {
	start := time.Now()
	logger.InfoSkip(ctx, 2, "Starting EOD summary", "date", date)

	csvPath, err := fn()
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, "EOD summary failed", err,
			"date", date,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	if csvPath == "" {
		logger.InfoSkip(ctx, 2, "No orders journaled for EOD summary", "date", date)
		return "", nil
	}

	logger.InfoSkip(ctx, 2, "EOD summary written",
		"date", date,
		"csv_path", csvPath,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return csvPath, nil
}

func (oes *observableEodSummarizer) ShouldRunNow() (bool, string) {
	ctx, span := trace.StartSpan(context.Background(), "eod.ShouldRunNow")
	defer span.End()

	shouldRun, csvPath := oes.summarizer.ShouldRunNow()
	logger.DebugSkip(ctx, 1, "EOD check completed",
		"should_run", shouldRun,
		"csv_path", csvPath,
	)
	return shouldRun, csvPath
}
