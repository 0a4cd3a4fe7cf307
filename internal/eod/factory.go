package eod

import (
	"time"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/tradelog"
)

// NewSummarizer summarizes journal days as dated in loc.
func NewSummarizer(journal *tradelog.Log, loc *time.Location) interfaces.EodSummarizer {
	if loc == nil {
		loc = time.UTC
	}
	return &eodSummarizer{journal: journal, loc: loc, now: time.Now}
}
