package eod

import (
	"path/filepath"
	"time"
)

func eodCSVPath(dir string, t time.Time) string {
	return filepath.Join(dir, "eod", t.Format(time.DateOnly)+".csv")
}

// cutoffTime is when the day's orders are final, shortly after the 16:00 close.
func cutoffTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 16, 10, 0, 0, t.Location())
}
