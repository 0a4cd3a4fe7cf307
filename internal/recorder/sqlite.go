// Package recorder persists run reports.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/types"
)

// SQLiteRecorder stores runs, phases, orders and failures.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

var _ interfaces.Recorder = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(context.Background(), "SQLite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS phases (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES runs(run_id),
			seq      INTEGER NOT NULL,
			phase    TEXT NOT NULL,
			pretend  INTEGER NOT NULL,
			message  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_phases_run ON phases(run_id)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL REFERENCES runs(run_id),
			phase     TEXT NOT NULL,
			symbol    TEXT NOT NULL,
			side      TEXT NOT NULL,
			qty       REAL,
			notional  REAL,
			order_id  TEXT,
			status    TEXT,
			pretend   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol)`,

		`CREATE TABLE IF NOT EXISTS failures (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL REFERENCES runs(run_id),
			phase   TEXT NOT NULL,
			symbol  TEXT NOT NULL,
			stage   TEXT NOT NULL,
			error   TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes the report in one transaction.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, report *types.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (run_id, started_at, finished_at) VALUES (?,?,?)`,
		report.RunID, report.StartedAt.Unix(), report.FinishedAt.Unix()); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, p := range report.Phases {
		if _, err := tx.ExecContext(ctx, `INSERT INTO phases (run_id, seq, phase, pretend, message) VALUES (?,?,?,?,?)`,
			report.RunID, i, p.Phase, p.Pretend, p.Message); err != nil {
			return fmt.Errorf("insert phase: %w", err)
		}
		for _, o := range p.Outcomes {
			if _, err := tx.ExecContext(ctx, `INSERT INTO orders
				(run_id, phase, symbol, side, qty, notional, order_id, status, pretend)
				VALUES (?,?,?,?,?,?,?,?,?)`,
				report.RunID, p.Phase, o.Symbol, o.Side, o.Qty, o.Notional, o.OrderID, o.Status, o.Pretend); err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
		}
		for _, f := range p.Failures {
			msg := ""
			if f.Err != nil {
				msg = f.Err.Error()
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO failures (run_id, phase, symbol, stage, error) VALUES (?,?,?,?,?)`,
				report.RunID, p.Phase, f.Symbol, f.Stage, msg); err != nil {
				return fmt.Errorf("insert failure: %w", err)
			}
		}
	}
	return tx.Commit()
}

// RunSummary is one row of the runs table with its order count.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Orders     int
}

// RecentRuns lists the latest runs, newest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT r.run_id, r.started_at, r.finished_at,
			(SELECT COUNT(*) FROM orders o WHERE o.run_id = r.run_id)
		FROM runs r ORDER BY r.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, finished int64
		if err := rows.Scan(&s.RunID, &started, &finished, &s.Orders); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(started, 0)
		s.FinishedAt = time.Unix(finished, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Info(context.Background(), "Closing SQLite recorder")
	return r.db.Close()
}
