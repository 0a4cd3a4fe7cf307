package brokerobs

import (
	"context"
	"time"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/trace"
	"daily-losers-bot/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{broker: broker}
}

func (ob *observableBroker) Account(ctx context.Context) (types.Account, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Account")
	defer span.End()

	acct, err := ob.broker.Account(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account", err)
		return types.Account{}, err
	}

	logger.DebugSkip(ctx, 1, "Account fetched", "cash", acct.Cash, "equity", acct.Equity)
	return acct, nil
}

func (ob *observableBroker) Positions(ctx context.Context) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Positions")
	defer span.End()

	positions, err := ob.broker.Positions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch positions", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Positions fetched", "count", len(positions))
	return positions, nil
}

func (ob *observableBroker) Asset(ctx context.Context, symbol string) (types.Asset, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Asset")
	defer span.End()

	asset, err := ob.broker.Asset(ctx, symbol)
	if err != nil {
		// unknown symbols are routine when screening
		logger.DebugSkip(ctx, 1, "Asset lookup failed", "symbol", symbol, "error", err)
		return types.Asset{}, err
	}
	return asset, nil
}

func (ob *observableBroker) Clock(ctx context.Context) (types.Clock, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Clock")
	defer span.End()

	clock, err := ob.broker.Clock(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch market clock", err)
		return types.Clock{}, err
	}

	logger.DebugSkip(ctx, 1, "Market clock fetched", "is_open", clock.IsOpen, "next_open", clock.NextOpen.Format(time.RFC3339))
	return clock, nil
}

// PlaceOrder places an order with observability
func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"notional", req.Notional,
		"tag", req.Tag,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
		)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 1, "Order placed successfully",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}

type observableMarketData struct {
	md interfaces.MarketData
}

var _ interfaces.MarketData = (*observableMarketData)(nil)

func WrapMarketData(md interfaces.MarketData) interfaces.MarketData {
	return &observableMarketData{md: md}
}

func (om *observableMarketData) PriceHistory(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]types.PriceBar, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.PriceHistory")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching price history", "symbol", symbol, "timeframe", timeframe,
		"start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))

	bars, err := om.md.PriceHistory(ctx, symbol, start, end, timeframe)
	if err != nil {
		logger.WarnSkip(ctx, 1, "Price history unavailable", "symbol", symbol, "error", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Price history fetched", "symbol", symbol, "bars", len(bars))
	return bars, nil
}
