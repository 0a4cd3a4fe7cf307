package engine

import (
	"fmt"
	"time"

	"daily-losers-bot/internal/rebalance"
	"daily-losers-bot/internal/sentiment"
	"daily-losers-bot/internal/signal"
	"daily-losers-bot/internal/store"
	"daily-losers-bot/internal/types"
)

// New builds the engine from a validated config.
func New(cfg *store.Config, deps Deps) (*Engine, error) {
	if deps.Broker == nil || deps.MarketData == nil || deps.Screener == nil ||
		deps.News == nil || deps.Recommendations == nil {
		return nil, fmt.Errorf("%w: %w", types.ErrConfig, errNoDeps)
	}
	order, err := sentiment.ParseGateOrder(cfg.Strategy.GateOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrConfig, err)
	}

	classifier := signal.New()
	classifier.Windows = cfg.Indicators.Windows
	classifier.Oversold = cfg.Indicators.Oversold
	classifier.Overbought = cfg.Indicators.Overbought

	return &Engine{
		deps: deps,
		set: settings{
			windows:     cfg.Indicators.Windows,
			bandWidth:   cfg.Indicators.BBStdDev,
			timeframe:   cfg.Strategy.Timeframe,
			historyDays: cfg.Strategy.HistoryDays,
			loc:         cfg.Location(),
			losersTop:   cfg.Strategy.LosersTop,
			buyLimit:    cfg.Strategy.BuyLimit,
			cashReserve: cfg.Strategy.CashReserve,
			liquidation: rebalance.Options{
				TargetCashFraction: cfg.Strategy.TargetCashFraction,
				SkipLosing:         !cfg.Strategy.LiquidateLosers,
			},
			gateOrder:    order,
			startupDelay: time.Duration(cfg.Strategy.StartupDelaySeconds) * time.Second,
		},
		classifier: classifier,
		orders:     newOrderExecutor(deps.Broker, deps.TradeLog),
		now:        time.Now,
		sleep:      sleepCtx,
	}, nil
}
