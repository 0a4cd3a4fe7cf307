package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/rebalance"
	"daily-losers-bot/internal/sentiment"
	"daily-losers-bot/internal/signal"
	"daily-losers-bot/internal/ta"
	"daily-losers-bot/internal/tradelog"
	"daily-losers-bot/internal/types"
)

// Deps are the collaborators the engine drives. Recorder, Notifier and
// TradeLog may be nil.
type Deps struct {
	Broker          interfaces.Broker
	MarketData      interfaces.MarketData
	Screener        interfaces.Screener
	News            interfaces.NewsSentiment
	Recommendations interfaces.RecommendationSource
	Notifier        interfaces.Notifier
	Recorder        interfaces.Recorder
	TradeLog        *tradelog.Log
}

type settings struct {
	windows      []int
	bandWidth    float64
	timeframe    string
	historyDays  int
	loc          *time.Location
	losersTop    int
	buyLimit     int
	cashReserve  float64
	liquidation  rebalance.Options
	gateOrder    sentiment.GateOrder
	startupDelay time.Duration
}

// Engine runs the daily sell, liquidate and buy phases.
type Engine struct {
	deps       Deps
	set        settings
	classifier signal.Classifier
	orders     *orderExecutor

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ interfaces.Engine = (*Engine)(nil)

type runIDKey struct{}

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Run executes the three phases in order. A failed phase is reported and
// the next one still runs; only cancellation stops the run early.
func (e *Engine) Run(ctx context.Context) (*types.RunReport, error) {
	report := &types.RunReport{RunID: uuid.NewString(), StartedAt: e.now()}
	ctx = withRunID(ctx, report.RunID)

	if e.set.startupDelay > 0 {
		logger.Info(ctx, "Waiting before first phase", "delay", e.set.startupDelay.String())
		if err := e.sleep(ctx, e.set.startupDelay); err != nil {
			return report, err
		}
	}

	phases := []func(context.Context) (types.PhaseReport, error){
		e.SellFromCriteria,
		e.LiquidateForCapital,
		e.BuyOrders,
	}
	for _, phase := range phases {
		pr, err := phase(ctx)
		report.Phases = append(report.Phases, pr)
		if err != nil && ctx.Err() != nil {
			report.FinishedAt = e.now()
			e.record(ctx, report)
			return report, ctx.Err()
		}
	}

	report.FinishedAt = e.now()
	e.record(ctx, report)
	return report, nil
}

func (e *Engine) record(ctx context.Context, report *types.RunReport) {
	if e.deps.Recorder == nil {
		return
	}
	// the run already happened; a lost record must not fail it
	if err := e.deps.Recorder.RecordRun(context.WithoutCancel(ctx), report); err != nil {
		logger.ErrorWithErr(ctx, "Failed to record run", err, "run_id", report.RunID)
	}
}

// SellFromCriteria sells the whole position of every holding whose
// indicators flag it as overbought.
func (e *Engine) SellFromCriteria(ctx context.Context) (types.PhaseReport, error) {
	return e.phase(ctx, types.PhaseSell, func(ctx context.Context, pr *types.PhaseReport) error {
		positions, err := e.deps.Broker.Positions(ctx)
		if err != nil {
			return fmt.Errorf("positions: %w", err)
		}
		book := newPositionBook(positions)
		if book.empty() {
			return nil
		}

		candidates, failures, err := e.GetSellCandidates(ctx, positions)
		pr.Failures = append(pr.Failures, failures...)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		pretend, err := e.pretend(ctx)
		if err != nil {
			return err
		}
		pr.Pretend = pretend

		for _, sym := range candidates {
			p, ok := book.get(sym)
			if !ok || p.Qty <= 0 {
				continue
			}
			out, err := e.orders.submit(ctx, types.PhaseSell, types.OrderReq{
				Symbol: sym,
				Side:   types.SideSell,
				Qty:    p.Qty,
				Tag:    "criteria",
			}, pretend)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				pr.Failures = append(pr.Failures, types.SymbolFailure{Symbol: sym, Stage: "order", Err: err})
				continue
			}
			pr.Outcomes = append(pr.Outcomes, out)
		}
		return nil
	})
}

// LiquidateForCapital sells slices of the best performers until cash is
// back at the target fraction of the portfolio.
func (e *Engine) LiquidateForCapital(ctx context.Context) (types.PhaseReport, error) {
	return e.phase(ctx, types.PhaseLiquidate, func(ctx context.Context, pr *types.PhaseReport) error {
		positions, err := e.deps.Broker.Positions(ctx)
		if err != nil {
			return fmt.Errorf("positions: %w", err)
		}
		book := newPositionBook(positions)
		if book.empty() {
			pr.Message = msgNothingToLiquidate
			return nil
		}

		plan, err := rebalance.PlanLiquidation(positions, e.set.liquidation)
		if err != nil {
			return err
		}
		if plan.IsEmpty() {
			return nil
		}
		logger.Info(ctx, "Liquidation planned",
			"cash", book.cash(),
			"portfolio_value", book.total(),
			"target_fraction", e.set.liquidation.TargetCashFraction,
			"symbols", plan.Symbols(),
			"total", plan.Total(),
		)

		pretend, err := e.pretend(ctx)
		if err != nil {
			return err
		}
		pr.Pretend = pretend

		e.placeNotional(ctx, types.PhaseLiquidate, types.SideSell, plan, pretend, pr)
		return ctx.Err()
	})
}

// BuyOrders splits available cash over the buy candidates.
func (e *Engine) BuyOrders(ctx context.Context) (types.PhaseReport, error) {
	return e.phase(ctx, types.PhaseBuy, func(ctx context.Context, pr *types.PhaseReport) error {
		candidates, failures, err := e.GetBuyCandidates(ctx)
		pr.Failures = append(pr.Failures, failures...)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		acct, err := e.deps.Broker.Account(ctx)
		if err != nil {
			return fmt.Errorf("account: %w", err)
		}
		plan, err := rebalance.PlanPurchases(candidates, acct.Cash, e.set.buyLimit, e.set.cashReserve)
		if err != nil {
			return err
		}
		if plan.IsEmpty() {
			logger.Risk(ctx, "", "INSUFFICIENT_CASH", "cash", acct.Cash, "candidates", len(candidates))
			return nil
		}

		pretend, err := e.pretend(ctx)
		if err != nil {
			return err
		}
		pr.Pretend = pretend

		e.placeNotional(ctx, types.PhaseBuy, types.SideBuy, plan, pretend, pr)
		return ctx.Err()
	})
}

func (e *Engine) placeNotional(ctx context.Context, phase, side string, plan types.Plan, pretend bool, pr *types.PhaseReport) {
	for _, entry := range plan.Entries {
		if ctx.Err() != nil {
			return
		}
		out, err := e.orders.submit(ctx, phase, types.OrderReq{
			Symbol:   entry.Symbol,
			Side:     side,
			Notional: entry.Notional,
			Tag:      phase,
		}, pretend)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			pr.Failures = append(pr.Failures, types.SymbolFailure{Symbol: entry.Symbol, Stage: "order", Err: err})
			continue
		}
		pr.Outcomes = append(pr.Outcomes, out)
	}
}

// phase runs body, fills in the summary and sends it.
func (e *Engine) phase(ctx context.Context, name string, body func(context.Context, *types.PhaseReport) error) (types.PhaseReport, error) {
	pr := types.PhaseReport{Phase: name}
	err := body(ctx, &pr)
	if err != nil {
		pr.Message = failedMessage(name, err)
	} else if pr.Message == "" {
		pr.Message = summaryMessage(name, pr.Outcomes, pr.Pretend)
	}
	pr.Message = withFailures(pr.Message, pr.Failures)

	if e.deps.Notifier != nil {
		if nerr := e.deps.Notifier.Notify(context.WithoutCancel(ctx), pr.Message); nerr != nil {
			logger.ErrorWithErr(ctx, "Failed to send phase summary", nerr, "phase", name)
		}
	}
	return pr, err
}

// pretend is true when the market is closed: orders are described but not sent.
func (e *Engine) pretend(ctx context.Context) (bool, error) {
	clock, err := e.deps.Broker.Clock(ctx)
	if err != nil {
		return false, fmt.Errorf("clock: %w", err)
	}
	if !clock.IsOpen {
		logger.Warn(ctx, "Market is closed, orders will not be sent",
			"error", types.ErrMarketClosed, "next_open", clock.NextOpen)
	}
	return !clock.IsOpen, nil
}

// GetSellCandidates computes indicators for every held symbol and keeps the
// ones the classifier flags for selling.
func (e *Engine) GetSellCandidates(ctx context.Context, positions []types.Position) ([]string, []types.SymbolFailure, error) {
	book := newPositionBook(positions)
	rows, failures, err := e.indicatorRows(ctx, book.symbols())
	if err != nil {
		return nil, failures, err
	}
	candidates := e.classifier.ClassifySell(rows)
	logger.Info(ctx, "Sell candidates selected", "held", len(book.symbols()), "candidates", candidates)
	return candidates, failures, nil
}

// GetBuyCandidates filters the saved losers through the technical, analyst
// and news gates in the configured order.
func (e *Engine) GetBuyCandidates(ctx context.Context) ([]string, []types.SymbolFailure, error) {
	losers, err := e.deps.Screener.Losers(ctx, e.set.losersTop)
	if err != nil {
		return nil, nil, fmt.Errorf("losers: %w", err)
	}

	var gates []gate
	switch e.set.gateOrder {
	case sentiment.SentimentFirst:
		gates = []gate{e.analystGate, e.newsGate, e.technicalGate}
	default:
		gates = []gate{e.technicalGate, e.analystGate, e.newsGate}
	}

	var failures []types.SymbolFailure
	candidates := losers
	for _, g := range gates {
		if len(candidates) == 0 {
			break
		}
		passed, failed, err := g(ctx, candidates)
		failures = append(failures, failed...)
		if err != nil {
			return nil, failures, err
		}
		candidates = passed
	}
	if candidates == nil {
		candidates = []string{}
	}

	logger.Info(ctx, "Buy candidates selected",
		"losers", len(losers),
		"gate_order", string(e.set.gateOrder),
		"candidates", candidates,
		"failures", len(failures),
	)
	return candidates, failures, nil
}

// gate keeps the symbols that pass. A returned error aborts candidate selection.
type gate func(ctx context.Context, symbols []string) ([]string, []types.SymbolFailure, error)

func (e *Engine) technicalGate(ctx context.Context, symbols []string) ([]string, []types.SymbolFailure, error) {
	rows, failures, err := e.indicatorRows(ctx, symbols)
	if err != nil {
		return nil, failures, err
	}
	passed := e.classifier.ClassifyBuy(rows)
	keep := make(map[string]bool, len(passed))
	for _, s := range passed {
		keep[s] = true
	}
	for _, r := range rows {
		e.decision(ctx, r.Symbol, "technical", keep[r.Symbol], "", indicatorFields(r))
	}
	return passed, failures, nil
}

func (e *Engine) analystGate(ctx context.Context, symbols []string) ([]string, []types.SymbolFailure, error) {
	var passed []string
	var failures []types.SymbolFailure
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, failures, err
		}
		rec, err := e.deps.Recommendations.Recommendation(ctx, sym)
		if err == nil {
			var bullish bool
			bullish, err = sentiment.AggregateRecommendations(rec)
			if err == nil {
				e.decision(ctx, sym, "analyst", bullish, "", nil)
				if bullish {
					passed = append(passed, sym)
				}
				continue
			}
		}
		failures = append(failures, e.symbolFailure(ctx, sym, "analyst", err))
	}
	return passed, failures, nil
}

func (e *Engine) newsGate(ctx context.Context, symbols []string) ([]string, []types.SymbolFailure, error) {
	var passed []string
	var failures []types.SymbolFailure
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, failures, err
		}
		label, err := e.deps.News.Sentiment(ctx, sym)
		if err != nil {
			failures = append(failures, e.symbolFailure(ctx, sym, "news", err))
			continue
		}
		ok := label == types.Bullish
		e.decision(ctx, sym, "news", ok, string(label), nil)
		if ok {
			passed = append(passed, sym)
		}
	}
	return passed, failures, nil
}

// indicatorRows fetches history and computes indicators per symbol. Symbols
// whose data cannot be fetched are reported as failures.
func (e *Engine) indicatorRows(ctx context.Context, symbols []string) ([]types.IndicatorRow, []types.SymbolFailure, error) {
	start, end := historyWindow(e.now(), e.set.loc, e.set.historyDays)
	rows := make([]types.IndicatorRow, 0, len(symbols))
	var failures []types.SymbolFailure
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, failures, err
		}
		bars, err := e.deps.MarketData.PriceHistory(ctx, sym, start, end, e.set.timeframe)
		if err == nil {
			var row types.IndicatorRow
			row, err = ta.ComputeIndicatorsK(sym, bars, e.set.windows, e.set.bandWidth)
			if err == nil {
				rows = append(rows, row)
				continue
			}
		}
		failures = append(failures, e.symbolFailure(ctx, sym, "indicators", err))
	}
	return rows, failures, nil
}

func (e *Engine) symbolFailure(ctx context.Context, sym, stage string, err error) types.SymbolFailure {
	if types.Skippable(err) {
		logger.Warn(ctx, "Skipping symbol", "symbol", sym, "stage", stage, "error", err)
	} else {
		logger.ErrorWithErr(ctx, "Skipping symbol after unexpected error", err, "symbol", sym, "stage", stage)
	}
	return types.SymbolFailure{Symbol: sym, Stage: stage, Err: err}
}

func (e *Engine) decision(ctx context.Context, sym, gate string, passed bool, reason string, inds map[string]float64) {
	logger.Decision(ctx, sym, gate, passed, reason)
	if e.deps.TradeLog == nil {
		return
	}
	if err := e.deps.TradeLog.AppendDecision(tradelog.DecisionEntry{
		RunID:      runIDFrom(ctx),
		Symbol:     sym,
		Gate:       gate,
		Passed:     passed,
		Reason:     reason,
		Indicators: inds,
	}); err != nil {
		logger.ErrorWithErr(ctx, "Failed to journal decision", err, "symbol", sym)
	}
}

// historyWindow ends on the previous day in loc and reaches days back.
func historyWindow(now time.Time, loc *time.Location, days int) (time.Time, time.Time) {
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	return end.AddDate(0, 0, -days), end
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var errNoDeps = errors.New("engine needs a broker, market data, screener, news sentiment and recommendations")
