package interfaces

import "time"

// EodSummarizer turns a day of journaled orders into a per-symbol CSV.
// An empty path means there was nothing to summarize.
type EodSummarizer interface {
	SummarizeDay(day time.Time) (csvPath string, err error)
	SummarizeToday() (csvPath string, err error)
	// ShouldRunNow is true after the cutoff when today's CSV does not exist yet.
	ShouldRunNow() (shouldRun bool, csvPath string)
}
