package screener

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/types"
)

// FilterTradeable keeps symbols the broker can trade fractionally.
// A symbol whose lookup fails is dropped; only cancellation aborts.
func FilterTradeable(ctx context.Context, broker interfaces.Broker, symbols []string) ([]string, error) {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		asset, err := broker.Asset(ctx, sym)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if types.Skippable(err) {
				logger.Debug(ctx, "Dropping unknown symbol", "symbol", sym, "error", err)
			} else {
				logger.Warn(ctx, "Dropping symbol after asset lookup failed", "symbol", sym, "error", err)
			}
			continue
		}
		if !asset.Tradeable() {
			logger.Debug(ctx, "Dropping untradeable symbol", "symbol", sym,
				"tradable", asset.Tradable, "fractionable", asset.Fractionable,
				"status", asset.Status, "exchange", asset.Exchange)
			continue
		}
		out = append(out, sym)
	}
	return out, nil
}

// SaveLosers scrapes the losers list, filters it and writes it to path.
func SaveLosers(ctx context.Context, s interfaces.Screener, broker interfaces.Broker, path string, top int) ([]string, error) {
	losers, err := s.Losers(ctx, top)
	if err != nil {
		return nil, err
	}
	tradeable, err := FilterTradeable(ctx, broker, losers)
	if err != nil {
		return nil, err
	}
	if err := WriteSymbols(path, tradeable); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Saved previous day losers", "path", path, "scraped", len(losers), "tradeable", len(tradeable))
	return tradeable, nil
}

// WriteSymbols writes one symbol per row, replacing the file atomically.
func WriteSymbols(path string, symbols []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".losers-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	for _, s := range symbols {
		if err := w.Write([]string{s}); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadLosers reads the file written by SaveLosers. A missing file is
// ErrDataUnavailable.
func LoadLosers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: losers file %s not found", types.ErrDataUnavailable, path)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(rec) == 0 {
			continue
		}
		if sym := strings.TrimSpace(rec[0]); sym != "" {
			out = append(out, sym)
		}
	}
	return out, nil
}

// FileScreener serves the saved list, so a morning run does not depend on
// the page being reachable.
type FileScreener struct {
	Path string
}

var _ interfaces.Screener = (*FileScreener)(nil)

func (f FileScreener) Losers(ctx context.Context, top int) ([]string, error) {
	symbols, err := LoadLosers(f.Path)
	if err != nil {
		return nil, err
	}
	if top > 0 && len(symbols) > top {
		symbols = symbols[:top]
	}
	return symbols, nil
}
