package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"daily-losers-bot/internal/store"
	"daily-losers-bot/internal/tradelog"
	"daily-losers-bot/internal/types"
)

type fakeBroker struct {
	mu           sync.Mutex
	positions    []types.Position
	positionsErr error
	cash         float64
	open         bool
	rejects      map[string]bool
	orders       []types.OrderReq
}

func (b *fakeBroker) Account(ctx context.Context) (types.Account, error) {
	return types.Account{Cash: b.cash, Equity: b.cash, BuyingPower: b.cash}, nil
}

func (b *fakeBroker) Positions(ctx context.Context) ([]types.Position, error) {
	if b.positionsErr != nil {
		return nil, b.positionsErr
	}
	return b.positions, nil
}

func (b *fakeBroker) Asset(ctx context.Context, symbol string) (types.Asset, error) {
	return types.Asset{Symbol: symbol, Tradable: true, Fractionable: true, Status: "active"}, nil
}

func (b *fakeBroker) Clock(ctx context.Context) (types.Clock, error) {
	return types.Clock{IsOpen: b.open}, nil
}

func (b *fakeBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejects[req.Symbol] {
		return types.OrderResp{}, types.NewSymbolError(req.Symbol, "order", types.ErrOrderRejected)
	}
	b.orders = append(b.orders, req)
	return types.OrderResp{OrderID: "ord-" + req.Symbol, Status: "accepted"}, nil
}

type fakeMarketData struct {
	bars  map[string][]types.PriceBar
	calls []string
}

func (m *fakeMarketData) PriceHistory(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]types.PriceBar, error) {
	m.calls = append(m.calls, symbol)
	bars, ok := m.bars[symbol]
	if !ok {
		return nil, types.NewSymbolError(symbol, "bars", types.ErrDataUnavailable)
	}
	return bars, nil
}

type fakeScreener struct {
	losers []string
	err    error
}

func (s fakeScreener) Losers(ctx context.Context, top int) ([]string, error) {
	return s.losers, s.err
}

type fakeNews struct {
	labels map[string]types.SentimentLabel
	calls  []string
}

func (n *fakeNews) Sentiment(ctx context.Context, symbol string) (types.SentimentLabel, error) {
	n.calls = append(n.calls, symbol)
	l, ok := n.labels[symbol]
	if !ok {
		return types.Bearish, types.NewSymbolError(symbol, "news_sentiment", types.ErrDataUnavailable)
	}
	return l, nil
}

type fakeRecs struct {
	recs  map[string]types.Recommendation
	calls []string
}

func (r *fakeRecs) Recommendation(ctx context.Context, symbol string) (types.Recommendation, error) {
	r.calls = append(r.calls, symbol)
	rec, ok := r.recs[symbol]
	if !ok {
		return types.Recommendation{}, types.NewSymbolError(symbol, "recommendation", types.ErrNotFound)
	}
	return rec, nil
}

type captureNotifier struct {
	messages []string
}

func (n *captureNotifier) Notify(ctx context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

type captureRecorder struct {
	reports []*types.RunReport
}

func (r *captureRecorder) RecordRun(ctx context.Context, report *types.RunReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func (r *captureRecorder) Close() error { return nil }

func series(start, step float64, n int) []types.PriceBar {
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.PriceBar, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = types.PriceBar{Date: d0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

// falling bars drive RSI to 0, rising bars to 100.
func falling() []types.PriceBar { return series(200, -1, 60) }
func rising() []types.PriceBar  { return series(100, 1, 60) }

// sideways alternates around 100.5 without touching the bands.
func sideways() []types.PriceBar {
	bars := series(100, 0, 60)
	for i := range bars {
		if i%2 == 1 {
			bars[i].Close = 101
		}
	}
	return bars
}

var bullishRec = types.Recommendation{StrongBuy: 5, Buy: 4, Hold: 2}
var bearishRec = types.Recommendation{Buy: 1, Hold: 6, Sell: 2}

type fixture struct {
	broker   *fakeBroker
	md       *fakeMarketData
	screener fakeScreener
	news     *fakeNews
	recs     *fakeRecs
	notifier *captureNotifier
	recorder *captureRecorder
	journal  *tradelog.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		broker:   &fakeBroker{open: true, rejects: map[string]bool{}},
		md:       &fakeMarketData{bars: map[string][]types.PriceBar{}},
		news:     &fakeNews{labels: map[string]types.SentimentLabel{}},
		recs:     &fakeRecs{recs: map[string]types.Recommendation{}},
		notifier: &captureNotifier{},
		recorder: &captureRecorder{},
		journal:  tradelog.New(t.TempDir(), time.UTC),
	}
}

func (f *fixture) engine(t *testing.T, yaml string) *Engine {
	t.Helper()
	cfg, err := store.ParseConfig([]byte(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	e, err := New(cfg, Deps{
		Broker:          f.broker,
		MarketData:      f.md,
		Screener:        f.screener,
		News:            f.news,
		Recommendations: f.recs,
		Notifier:        f.notifier,
		Recorder:        f.recorder,
		TradeLog:        f.journal,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	e.now = func() time.Time { return time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC) }
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e
}

func TestSellFromCriteria(t *testing.T) {
	f := newFixture(t)
	f.broker.positions = []types.Position{
		{Symbol: types.CashSymbol, Qty: 100, MarketValue: 100},
		{Symbol: "HOT", Qty: 2.5, MarketValue: 400},
		{Symbol: "FLAT", Qty: 1, MarketValue: 500},
		{Symbol: "GONE", Qty: 3, MarketValue: 90},
	}
	f.md.bars["HOT"] = rising()
	f.md.bars["FLAT"] = sideways()
	e := f.engine(t, "{}")

	pr, err := e.SellFromCriteria(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Successfully sold the following positions:\n2.5 shares of HOT\n" +
		"Errors:\nGONE (indicators): bars GONE: data unavailable\n"
	if pr.Message != want {
		t.Errorf("message:\n%q\nwant:\n%q", pr.Message, want)
	}
	if len(f.broker.orders) != 1 || f.broker.orders[0].Qty != 2.5 || f.broker.orders[0].Side != types.SideSell {
		t.Errorf("unexpected orders %+v", f.broker.orders)
	}
	if f.broker.orders[0].ClientOrderID == "" {
		t.Error("expected a client order id")
	}
	if len(f.notifier.messages) != 1 || f.notifier.messages[0] != want {
		t.Errorf("expected one summary notification, got %v", f.notifier.messages)
	}

	entries, err := f.journal.ReadDay(time.Now())
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(entries) != 1 || entries[0].Symbol != "HOT" || entries[0].OrderID != "ord-HOT" {
		t.Errorf("unexpected journal %+v", entries)
	}
}

func TestSellFromCriteriaMarketClosed(t *testing.T) {
	f := newFixture(t)
	f.broker.open = false
	f.broker.positions = []types.Position{
		{Symbol: types.CashSymbol, MarketValue: 100},
		{Symbol: "HOT", Qty: 2, MarketValue: 400},
	}
	f.md.bars["HOT"] = rising()
	e := f.engine(t, "{}")

	pr, err := e.SellFromCriteria(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.Message != "Successfully pretend sold the following positions:\n2 shares of HOT\n" {
		t.Errorf("unexpected message %q", pr.Message)
	}
	if len(f.broker.orders) != 0 {
		t.Errorf("expected no orders while closed, got %+v", f.broker.orders)
	}
	if !pr.Pretend || !pr.Outcomes[0].Pretend || pr.Outcomes[0].Status != statusPretend {
		t.Errorf("expected pretend outcome, got %+v", pr)
	}
}

func TestSellFromCriteriaNothingToSell(t *testing.T) {
	tests := []struct {
		name      string
		positions []types.Position
		bars      map[string][]types.PriceBar
	}{
		{"cash only", []types.Position{{Symbol: types.CashSymbol, MarketValue: 100}}, nil},
		{"no sell signal", []types.Position{{Symbol: "FLAT", Qty: 1, MarketValue: 100}}, map[string][]types.PriceBar{"FLAT": sideways()}},
		{"zero quantity", []types.Position{{Symbol: "HOT", Qty: 0, MarketValue: 0}}, map[string][]types.PriceBar{"HOT": rising()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.broker.positions = tt.positions
			for k, v := range tt.bars {
				f.md.bars[k] = v
			}
			pr, err := f.engine(t, "{}").SellFromCriteria(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pr.Message != msgNothingToSell {
				t.Errorf("expected %q, got %q", msgNothingToSell, pr.Message)
			}
		})
	}
}

func TestSellFromCriteriaPositionsFailure(t *testing.T) {
	f := newFixture(t)
	f.broker.positionsErr = errors.New("boom")

	pr, err := f.engine(t, "{}").SellFromCriteria(context.Background())
	if err == nil {
		t.Fatal("expected the phase to fail")
	}
	if pr.Message != "sell_from_criteria failed: positions: boom" {
		t.Errorf("unexpected message %q", pr.Message)
	}
	if len(f.notifier.messages) != 1 {
		t.Errorf("expected failure to be notified, got %v", f.notifier.messages)
	}
}

func TestLiquidateForCapital(t *testing.T) {
	f := newFixture(t)
	f.broker.positions = []types.Position{
		{Symbol: types.CashSymbol, MarketValue: 5000},
		{Symbol: "A", Qty: 100, MarketValue: 60000, UnrealizedPLPct: 0.08},
		{Symbol: "B", Qty: 50, MarketValue: 35000, UnrealizedPLPct: 0.02},
	}
	e := f.engine(t, "{}")

	pr, err := e.LiquidateForCapital(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.Message != "Successfully liquidated the following positions:\nSold $5000 of A\n" {
		t.Errorf("unexpected message %q", pr.Message)
	}
	if len(f.broker.orders) != 1 || f.broker.orders[0].Notional != 5000 || f.broker.orders[0].Qty != 0 {
		t.Errorf("expected one notional sell, got %+v", f.broker.orders)
	}
}

func TestLiquidateForCapitalEmptyResults(t *testing.T) {
	tests := []struct {
		name      string
		positions []types.Position
		want      string
	}{
		{"no holdings", []types.Position{{Symbol: types.CashSymbol, MarketValue: 100}}, msgNothingToLiquidate},
		{"empty snapshot", nil, msgNothingToLiquidate},
		{"cash above target", []types.Position{
			{Symbol: types.CashSymbol, MarketValue: 12000},
			{Symbol: "A", Qty: 1, MarketValue: 60000, UnrealizedPLPct: 0.08},
			{Symbol: "B", Qty: 1, MarketValue: 28000, UnrealizedPLPct: 0.02},
		}, msgNothingLiquidated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.broker.positions = tt.positions
			pr, err := f.engine(t, "{}").LiquidateForCapital(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pr.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, pr.Message)
			}
		})
	}
}

func buyFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.screener = fakeScreener{losers: []string{"DROP1", "DROP2", "FLAT", "UNRATED", "DROP3", "SOUR"}}
	for _, s := range []string{"DROP1", "DROP2", "UNRATED", "DROP3", "SOUR"} {
		f.md.bars[s] = falling()
	}
	f.md.bars["FLAT"] = sideways()
	f.recs.recs = map[string]types.Recommendation{
		"DROP1": bullishRec,
		"DROP2": bullishRec,
		"DROP3": bullishRec,
		"FLAT":  bullishRec,
		"SOUR":  bearishRec,
	}
	f.news.labels = map[string]types.SentimentLabel{
		"DROP1": types.Bullish,
		"DROP2": types.Bearish,
		"DROP3": types.Bullish,
		"FLAT":  types.Bullish,
		"SOUR":  types.Bullish,
	}
	f.broker.cash = 1000
	return f
}

func TestGetBuyCandidatesGateOrders(t *testing.T) {
	for _, order := range []string{"technical_first", "sentiment_first"} {
		t.Run(order, func(t *testing.T) {
			f := buyFixture(t)
			e := f.engine(t, "strategy:\n  gate_order: "+order+"\n")

			got, failures, err := e.GetBuyCandidates(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want := []string{"DROP1", "DROP3"}; !reflect.DeepEqual(got, want) {
				t.Errorf("expected %v, got %v", want, got)
			}
			if len(failures) != 1 || failures[0].Symbol != "UNRATED" || failures[0].Stage != "analyst" {
				t.Errorf("unexpected failures %+v", failures)
			}
			for _, sym := range f.news.calls {
				if sym == "SOUR" || sym == "UNRATED" {
					t.Errorf("news should not be fetched for %s after the analyst gate rejected it", sym)
				}
			}
		})
	}
}

func TestGetBuyCandidatesSentimentFirstSkipsIndicators(t *testing.T) {
	f := buyFixture(t)
	e := f.engine(t, "strategy:\n  gate_order: sentiment_first\n")

	if _, _, err := e.GetBuyCandidates(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"DROP1", "DROP2", "FLAT", "UNRATED", "DROP3", "SOUR"}; !reflect.DeepEqual(f.recs.calls, want) {
		t.Errorf("expected analyst lookups for every loser %v, got %v", want, f.recs.calls)
	}
	if want := []string{"DROP1", "DROP2", "FLAT", "DROP3"}; !reflect.DeepEqual(f.news.calls, want) {
		t.Errorf("expected news only for analyst survivors %v, got %v", want, f.news.calls)
	}
	want := []string{"DROP1", "FLAT", "DROP3"}
	if !reflect.DeepEqual(f.md.calls, want) {
		t.Errorf("expected indicators only for sentiment survivors %v, got %v", want, f.md.calls)
	}
}

func TestGetBuyCandidatesScreenerFailure(t *testing.T) {
	f := newFixture(t)
	f.screener = fakeScreener{err: types.ErrDataUnavailable}
	_, _, err := f.engine(t, "{}").GetBuyCandidates(context.Background())
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestBuyOrders(t *testing.T) {
	f := buyFixture(t)
	f.broker.rejects["DROP3"] = true
	e := f.engine(t, "{}")

	pr, err := e.BuyOrders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Successfully bought the following positions:\n$499 of DROP1\n" +
		"Errors:\n" +
		"UNRATED (analyst): recommendation UNRATED: not found\n" +
		"DROP3 (order): order DROP3: order rejected\n"
	if pr.Message != want {
		t.Errorf("message:\n%q\nwant:\n%q", pr.Message, want)
	}
	if len(f.broker.orders) != 1 || f.broker.orders[0].Notional != 499 || f.broker.orders[0].Side != types.SideBuy {
		t.Errorf("unexpected orders %+v", f.broker.orders)
	}
}

func TestBuyOrdersNothingBought(t *testing.T) {
	f := buyFixture(t)
	f.broker.cash = 1.5
	pr, err := f.engine(t, "{}").BuyOrders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(pr.Message, msgNothingBought) {
		t.Errorf("expected %q, got %q", msgNothingBought, pr.Message)
	}
	if len(f.broker.orders) != 0 {
		t.Errorf("expected no orders, got %+v", f.broker.orders)
	}
}

func TestRun(t *testing.T) {
	f := buyFixture(t)
	f.broker.positions = []types.Position{{Symbol: types.CashSymbol, MarketValue: 1000}}
	e := f.engine(t, "production: true\n")

	var slept time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 60*time.Second {
		t.Errorf("expected the production startup delay, got %s", slept)
	}

	var phases []string
	for _, p := range report.Phases {
		phases = append(phases, p.Phase)
	}
	if want := []string{types.PhaseSell, types.PhaseLiquidate, types.PhaseBuy}; !reflect.DeepEqual(phases, want) {
		t.Errorf("expected phases %v, got %v", want, phases)
	}
	if len(f.notifier.messages) != 3 {
		t.Fatalf("expected one message per phase, got %d", len(f.notifier.messages))
	}
	if f.notifier.messages[0] != msgNothingToSell || f.notifier.messages[1] != msgNothingToLiquidate {
		t.Errorf("unexpected messages %q", f.notifier.messages[:2])
	}
	if !strings.Contains(f.notifier.messages[2], "$499 of DROP1\n$499 of DROP3\n") {
		t.Errorf("unexpected buy message %q", f.notifier.messages[2])
	}
	if len(f.recorder.reports) != 1 || f.recorder.reports[0].RunID == "" {
		t.Errorf("expected the run to be recorded, got %+v", f.recorder.reports)
	}

	entries, _ := f.journal.ReadDay(time.Now())
	for _, en := range entries {
		if en.RunID != report.RunID {
			t.Errorf("expected journal entries tagged with run id %s, got %+v", report.RunID, en)
		}
	}
}

func TestRunContinuesAfterPhaseFailure(t *testing.T) {
	f := buyFixture(t)
	f.broker.positionsErr = errors.New("boom")
	e := f.engine(t, "{}")

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("phase failures should not fail the run: %v", err)
	}
	if len(report.Phases) != 3 {
		t.Fatalf("expected all phases to run, got %d", len(report.Phases))
	}
	if !strings.Contains(report.Phases[0].Message, "failed") || !strings.Contains(report.Phases[1].Message, "failed") {
		t.Errorf("expected failed snapshot phases, got %q and %q", report.Phases[0].Message, report.Phases[1].Message)
	}
	if len(report.Phases[2].Outcomes) != 2 {
		t.Errorf("expected the buy phase to still place orders, got %+v", report.Phases[2])
	}
}

func TestRunCancelledDuringDelay(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, "strategy:\n  startup_delay_seconds: 5\n")
	e.sleep = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(f.notifier.messages) != 0 {
		t.Errorf("expected no phases to run, got %v", f.notifier.messages)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg, err := store.ParseConfig([]byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(cfg, Deps{}); !errors.Is(err, types.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestHistoryWindow(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	// 02:00 UTC on the 15th is still the 14th in New York
	now := time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC)
	start, end := historyWindow(now, loc, 365)

	if end.Day() != 13 || end.Month() != time.March {
		t.Errorf("expected end on Mar 13, got %s", end)
	}
	if !start.Equal(end.AddDate(0, 0, -365)) {
		t.Errorf("expected a 365 day window, got %s to %s", start, end)
	}
}
