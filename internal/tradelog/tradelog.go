// Package tradelog writes a daily JSONL journal of orders and gate decisions.
package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

type Entry struct {
	Time     string  `json:"time"`
	RunID    string  `json:"run_id,omitempty"`
	Phase    string  `json:"phase"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Qty      float64 `json:"qty,omitempty"`
	Notional float64 `json:"notional,omitempty"`
	Price    float64 `json:"price,omitempty"`
	OrderID  string  `json:"order_id"`
	Status   string  `json:"status"`
	Pretend  bool    `json:"pretend"`
	Reason   string  `json:"reason,omitempty"`
}

type DecisionEntry struct {
	Time       string             `json:"time"`
	RunID      string             `json:"run_id,omitempty"`
	Symbol     string             `json:"symbol"`
	Gate       string             `json:"gate"`
	Passed     bool               `json:"passed"`
	Reason     string             `json:"reason,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Extra      map[string]any     `json:"extra,omitempty"`
}

// Log appends entries to <dir>/<date>.txt and <dir>/decisions/<date>.txt,
// dated in loc.
type Log struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
	now func() time.Time
}

func New(dir string, loc *time.Location) *Log {
	if dir == "" {
		dir = "logs"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Log{dir: dir, loc: loc, now: time.Now}
}

func (l *Log) Dir() string { return l.dir }

func (l *Log) DailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.In(l.loc).Format(time.DateOnly)+".txt")
}

func (l *Log) DecisionsFilepath(t time.Time) string {
	return filepath.Join(l.dir, "decisions", t.In(l.loc).Format(time.DateOnly)+".txt")
}

func (l *Log) Append(e Entry) error {
	now := l.now().In(l.loc)
	e.Time = now.Format(timeLayout)
	return l.appendJSON(l.DailyFilepath(now), e)
}

func (l *Log) AppendDecision(e DecisionEntry) error {
	now := l.now().In(l.loc)
	e.Time = now.Format(timeLayout)
	return l.appendJSON(l.DecisionsFilepath(now), e)
}

func (l *Log) appendJSON(p string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadDay returns the order entries journaled on t's date. A missing file
// yields no entries.
func (l *Log) ReadDay(t time.Time) ([]Entry, error) {
	f, err := os.Open(l.DailyFilepath(t))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// CompressOlder gzips journal files last modified before the retention window.
func (l *Log) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// an earlier run already compressed it
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			_ = os.Remove(gz)
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
