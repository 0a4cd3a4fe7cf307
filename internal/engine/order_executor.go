package engine

import (
	"context"

	"github.com/google/uuid"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/tradelog"
	"daily-losers-bot/internal/types"
)

const statusPretend = "PRETEND"

// orderExecutor sends market orders and journals every one of them.
type orderExecutor struct {
	broker  interfaces.Broker
	journal *tradelog.Log
}

func newOrderExecutor(broker interfaces.Broker, journal *tradelog.Log) *orderExecutor {
	return &orderExecutor{broker: broker, journal: journal}
}

// submit places req, or only records it when pretend is set.
func (oe *orderExecutor) submit(ctx context.Context, phase string, req types.OrderReq, pretend bool) (types.OrderOutcome, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}
	out := types.OrderOutcome{
		Symbol:   req.Symbol,
		Side:     req.Side,
		Qty:      req.Qty,
		Notional: req.Notional,
		Pretend:  pretend,
	}

	if pretend {
		out.Status = statusPretend
	} else {
		resp, err := oe.broker.PlaceOrder(ctx, req)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to place order", err,
				"phase", phase,
				"symbol", req.Symbol,
				"side", req.Side,
				"qty", req.Qty,
				"notional", req.Notional,
			)
			return types.OrderOutcome{}, err
		}
		out.OrderID = resp.OrderID
		out.Status = resp.Status
	}

	logger.Trade(ctx, req.Symbol, req.Side, req.Qty, req.Notional, out.OrderID, pretend, "phase", phase, "status", out.Status)

	if oe.journal != nil {
		if err := oe.journal.Append(tradelog.Entry{
			RunID:    runIDFrom(ctx),
			Phase:    phase,
			Symbol:   req.Symbol,
			Side:     req.Side,
			Qty:      req.Qty,
			Notional: req.Notional,
			OrderID:  out.OrderID,
			Status:   out.Status,
			Pretend:  pretend,
			Reason:   req.Tag,
		}); err != nil {
			logger.ErrorWithErr(ctx, "Failed to journal order", err, "symbol", req.Symbol)
		}
	}
	return out, nil
}
