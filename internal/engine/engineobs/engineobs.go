package engineobs

import (
	"context"
	"time"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/trace"
	"daily-losers-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Run(ctx context.Context) (*types.RunReport, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Run")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Starting daily run")

	report, err := oe.engine.Run(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Daily run failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return report, err
	}

	orders := 0
	failures := 0
	for _, p := range report.Phases {
		orders += len(p.Outcomes)
		failures += len(p.Failures)
	}
	logger.InfoSkip(ctx, 1, "Daily run completed",
		"run_id", report.RunID,
		"phases", len(report.Phases),
		"orders", orders,
		"failures", failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (oe *observableEngine) SellFromCriteria(ctx context.Context) (types.PhaseReport, error) {
	return oe.phase(ctx, "engine.SellFromCriteria", oe.engine.SellFromCriteria)
}

func (oe *observableEngine) LiquidateForCapital(ctx context.Context) (types.PhaseReport, error) {
	return oe.phase(ctx, "engine.LiquidateForCapital", oe.engine.LiquidateForCapital)
}

func (oe *observableEngine) BuyOrders(ctx context.Context) (types.PhaseReport, error) {
	return oe.phase(ctx, "engine.BuyOrders", oe.engine.BuyOrders)
}

func (oe *observableEngine) phase(ctx context.Context, name string, fn func(context.Context) (types.PhaseReport, error)) (types.PhaseReport, error) {
	ctx, span := trace.StartSpan(ctx, name)
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 2, "Starting phase", "phase", name)

	pr, err := fn(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, "Phase failed", err,
			"phase", name,
			"failures", len(pr.Failures),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return pr, err
	}

	logger.InfoSkip(ctx, 2, "Phase completed",
		"phase", name,
		"orders", len(pr.Outcomes),
		"failures", len(pr.Failures),
		"pretend", pr.Pretend,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pr, nil
}

func (oe *observableEngine) GetBuyCandidates(ctx context.Context) ([]string, []types.SymbolFailure, error) {
	ctx, span := trace.StartSpan(ctx, "engine.GetBuyCandidates")
	defer span.End()

	candidates, failures, err := oe.engine.GetBuyCandidates(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Buy candidate selection failed", err)
		return candidates, failures, err
	}
	if logger.IsDebugEnabled() {
		logger.DebugSkip(ctx, 1, "Buy candidates", "symbols", candidates, "failures", len(failures))
	}
	return candidates, failures, nil
}

func (oe *observableEngine) GetSellCandidates(ctx context.Context, positions []types.Position) ([]string, []types.SymbolFailure, error) {
	ctx, span := trace.StartSpan(ctx, "engine.GetSellCandidates")
	defer span.End()

	candidates, failures, err := oe.engine.GetSellCandidates(ctx, positions)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Sell candidate selection failed", err, "positions", len(positions))
		return candidates, failures, err
	}
	logger.DebugSkip(ctx, 1, "Sell candidates", "count", len(candidates), "failures", len(failures))
	return candidates, failures, nil
}
