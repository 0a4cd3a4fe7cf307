// Package eod turns the day's order journal into a per-symbol CSV summary.
package eod

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"daily-losers-bot/internal/tradelog"
	"daily-losers-bot/internal/types"
)

type eodSummarizer struct {
	journal *tradelog.Log
	loc     *time.Location
	now     func() time.Time
}

var headers = []string{
	"symbol", "buy_orders", "buy_notional", "sell_orders", "sell_qty",
	"sell_notional", "net_notional", "pretend_orders", "failed_orders",
}

// SummarizeDay writes <journal dir>/eod/<date>.csv. It returns an empty
// path when nothing was journaled that day.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	t = t.In(s.loc)
	entries, err := s.journal.ReadDay(t)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	aggs := map[string]*aggRow{}
	for _, e := range entries {
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}
		switch {
		case e.Pretend:
			row.Pretend++
			continue
		case isFailed(e.Status):
			row.Failed++
			continue
		}
		value := e.Notional
		if value == 0 {
			value = e.Qty * e.Price
		}
		switch e.Side {
		case types.SideBuy:
			row.BuyOrders++
			row.BuyNotional += value
		case types.SideSell:
			row.SellOrders++
			row.SellQty += e.Qty
			row.SellNotional += value
		}
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := eodCSVPath(s.journal.Dir(), t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(headers); err != nil {
		return "", err
	}
	var total aggRow
	total.Symbol = "TOTAL"
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write(record(r)); err != nil {
			return "", err
		}
		total.BuyOrders += r.BuyOrders
		total.BuyNotional += r.BuyNotional
		total.SellOrders += r.SellOrders
		total.SellQty += r.SellQty
		total.SellNotional += r.SellNotional
		total.Pretend += r.Pretend
		total.Failed += r.Failed
	}
	if err := w.Write(record(&total)); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	return outPath, nil
}

func record(r *aggRow) []string {
	return []string{
		r.Symbol,
		strconv.Itoa(r.BuyOrders),
		fmt.Sprintf("%.2f", r.BuyNotional),
		strconv.Itoa(r.SellOrders),
		strconv.FormatFloat(r.SellQty, 'f', -1, 64),
		fmt.Sprintf("%.2f", r.SellNotional),
		fmt.Sprintf("%.2f", r.net()),
		strconv.Itoa(r.Pretend),
		strconv.Itoa(r.Failed),
	}
}

func isFailed(status string) bool {
	switch strings.ToLower(status) {
	case "rejected", "canceled", "cancelled", "expired":
		return true
	}
	return false
}

func (s *eodSummarizer) SummarizeToday() (string, error) { return s.SummarizeDay(s.now()) }

// ShouldRunNow is true after the cutoff when today's CSV does not exist yet.
func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	now := s.now().In(s.loc)
	outPath := eodCSVPath(s.journal.Dir(), now)
	if now.After(cutoffTime(now)) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}
