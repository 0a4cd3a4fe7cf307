package alpaca

import (
	"context"
	"fmt"

	alpacasdk "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/types"
)

const (
	PaperURL = "https://paper-api.alpaca.markets"
	LiveURL  = "https://api.alpaca.markets"
)

type Params struct {
	Mode      string
	APIKey    string
	APISecret string
	Paper     bool
	BaseURL   string
	DataURL   string
	Feed      string
}

// tradingAPI is the subset of *alpacasdk.Client the broker uses.
type tradingAPI interface {
	GetAccount() (*alpacasdk.Account, error)
	GetPositions() ([]alpacasdk.Position, error)
	GetAsset(symbol string) (*alpacasdk.Asset, error)
	GetClock() (*alpacasdk.Clock, error)
	PlaceOrder(req alpacasdk.PlaceOrderRequest) (*alpacasdk.Order, error)
}

// dataAPI is the subset of *marketdata.Client used for bars and news.
type dataAPI interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

type Alpaca struct {
	p       Params
	trading tradingAPI
	data    dataAPI
}

var (
	_ interfaces.Broker     = (*Alpaca)(nil)
	_ interfaces.MarketData = (*Alpaca)(nil)
	_ interfaces.NewsSource = (*Alpaca)(nil)
)

func New(p Params) *Alpaca {
	if p.BaseURL == "" {
		p.BaseURL = LiveURL
		if p.Paper {
			p.BaseURL = PaperURL
		}
	}
	if p.Feed == "" {
		p.Feed = "iex"
	}

	trading := alpacasdk.NewClient(alpacasdk.ClientOpts{
		APIKey:    p.APIKey,
		APISecret: p.APISecret,
		BaseURL:   p.BaseURL,
	})
	data := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    p.APIKey,
		APISecret: p.APISecret,
		BaseURL:   p.DataURL,
	})
	return newWithClients(p, trading, data)
}

func newWithClients(p Params, trading tradingAPI, data dataAPI) *Alpaca {
	if p.Feed == "" {
		p.Feed = "iex"
	}
	return &Alpaca{p: p, trading: trading, data: data}
}

func (a *Alpaca) Account(ctx context.Context) (types.Account, error) {
	acct, err := a.trading.GetAccount()
	if err != nil {
		return types.Account{}, classify("", "account", err)
	}
	return types.Account{
		Cash:        acct.Cash.InexactFloat64(),
		Equity:      acct.Equity.InexactFloat64(),
		BuyingPower: acct.BuyingPower.InexactFloat64(),
	}, nil
}

// Positions returns open positions followed by a Cash row.
func (a *Alpaca) Positions(ctx context.Context) ([]types.Position, error) {
	acct, err := a.Account(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := a.trading.GetPositions()
	if err != nil {
		return nil, classify("", "positions", err)
	}

	out := make([]types.Position, 0, len(raw)+1)
	for _, p := range raw {
		qty := p.Qty
		if !p.QtyAvailable.IsZero() {
			qty = p.QtyAvailable
		}
		out = append(out, types.Position{
			Symbol:          p.Symbol,
			Qty:             qty.InexactFloat64(),
			MarketValue:     decimalOrZero(p.MarketValue),
			UnrealizedPL:    decimalOrZero(p.UnrealizedPL),
			UnrealizedPLPct: decimalOrZero(p.UnrealizedPLPC),
			CurrentPrice:    decimalOrZero(p.CurrentPrice),
		})
	}
	out = append(out, types.Position{
		Symbol:       types.CashSymbol,
		Qty:          acct.Cash,
		MarketValue:  acct.Cash,
		CurrentPrice: 1,
	})

	logger.Debug(ctx, "Fetched positions", "count", len(raw), "cash", acct.Cash)
	return types.WithPortfolioPct(out), nil
}

func (a *Alpaca) Asset(ctx context.Context, symbol string) (types.Asset, error) {
	asset, err := a.trading.GetAsset(symbol)
	if err != nil {
		return types.Asset{}, classify(symbol, "asset", err)
	}
	return types.Asset{
		Symbol:       asset.Symbol,
		Exchange:     asset.Exchange,
		Status:       string(asset.Status),
		Tradable:     asset.Tradable,
		Fractionable: asset.Fractionable,
	}, nil
}

func (a *Alpaca) Clock(ctx context.Context) (types.Clock, error) {
	clock, err := a.trading.GetClock()
	if err != nil {
		return types.Clock{}, classify("", "clock", err)
	}
	return types.Clock{IsOpen: clock.IsOpen, NextOpen: clock.NextOpen, NextClose: clock.NextClose}, nil
}

// PlaceOrder submits a market day order. In DRY_RUN mode nothing is sent and
// a SIMULATED response is returned.
func (a *Alpaca) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if err := validateOrder(req); err != nil {
		return types.OrderResp{}, types.NewSymbolError(req.Symbol, "place_order", err)
	}

	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	if a.p.Mode == "DRY_RUN" {
		resp := types.OrderResp{
			OrderID:   fmt.Sprintf("SIM-%s", clientID),
			Status:    "SIMULATED",
			Message:   "dry-run",
			Simulated: true,
		}
		logger.Info(ctx, "Simulated order placed", "symbol", req.Symbol, "side", req.Side,
			"qty", req.Qty, "notional", req.Notional, "order_id", resp.OrderID)
		return resp, nil
	}

	side := alpacasdk.Buy
	if req.Side == types.SideSell {
		side = alpacasdk.Sell
	}
	orderReq := alpacasdk.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Side:          side,
		Type:          alpacasdk.Market,
		TimeInForce:   alpacasdk.Day,
		ClientOrderID: clientID,
	}
	if req.Notional > 0 {
		notional := decimal.NewFromFloat(req.Notional).Round(2)
		orderReq.Notional = &notional
	} else {
		qty := decimal.NewFromFloat(req.Qty)
		orderReq.Qty = &qty
	}

	order, err := a.trading.PlaceOrder(orderReq)
	if err != nil {
		return types.OrderResp{}, classifyOrder(req.Symbol, err)
	}
	return types.OrderResp{OrderID: order.ID, Status: order.Status, Message: "ok"}, nil
}

func validateOrder(req types.OrderReq) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", types.ErrInvalidParameter)
	}
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return fmt.Errorf("%w: side %q", types.ErrInvalidParameter, req.Side)
	}
	if (req.Qty > 0) == (req.Notional > 0) {
		return fmt.Errorf("%w: exactly one of qty and notional must be positive", types.ErrInvalidParameter)
	}
	return nil
}

func decimalOrZero(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return d.InexactFloat64()
}
