package types

import (
	"math"
	"strings"
	"time"
)

// CashSymbol names the synthetic position that carries uninvested cash.
const CashSymbol = "Cash"

type PriceBar struct {
	Date                           time.Time
	Open, High, Low, Close, Volume float64
}

// WindowIndicators holds the RSI and Bollinger readings for one lookback window.
// NaN values mean the window was not populated yet.
type WindowIndicators struct {
	Window   int     `json:"window"`
	RSI      float64 `json:"rsi"`
	BBUpper  float64 `json:"bb_upper"`
	BBMiddle float64 `json:"bb_middle"`
	BBLower  float64 `json:"bb_lower"`
	BBHigh   bool    `json:"bb_high"`
	BBLow    bool    `json:"bb_low"`
}

// Valid reports whether both indicators for the window are defined.
func (w WindowIndicators) Valid() bool {
	return !math.IsNaN(w.RSI) && !math.IsNaN(w.BBUpper) && !math.IsNaN(w.BBLower)
}

type IndicatorRow struct {
	Symbol  string             `json:"symbol"`
	Date    time.Time          `json:"date"`
	Close   float64            `json:"close"`
	Windows []WindowIndicators `json:"windows"`
}

// Window returns the readings for window n.
func (r IndicatorRow) Window(n int) (WindowIndicators, bool) {
	for _, w := range r.Windows {
		if w.Window == n {
			return w, true
		}
	}
	return WindowIndicators{}, false
}

// AllUndefined is true when no window has a usable reading.
func (r IndicatorRow) AllUndefined() bool {
	for _, w := range r.Windows {
		if !math.IsNaN(w.RSI) || w.BBHigh || w.BBLow {
			return false
		}
	}
	return true
}

type SentimentLabel string

const (
	Bullish SentimentLabel = "BULLISH"
	Bearish SentimentLabel = "BEARISH"
	Neutral SentimentLabel = "NEUTRAL"
)

// ParseSentimentLabel maps free-form model output onto a label.
// Anything unrecognised is NEUTRAL.
func ParseSentimentLabel(s string) SentimentLabel {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, string(Bullish)):
		return Bullish
	case strings.HasPrefix(s, string(Bearish)):
		return Bearish
	default:
		return Neutral
	}
}

// SentimentVerdict is the aggregated label for a symbol and how many
// article votes produced it.
type SentimentVerdict struct {
	Symbol   string         `json:"symbol"`
	Label    SentimentLabel `json:"label"`
	Articles int            `json:"articles"`
}

// Recommendation is one period of analyst rating counts.
type Recommendation struct {
	Symbol     string `json:"symbol"`
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

type Position struct {
	Symbol          string  `json:"symbol"`
	Qty             float64 `json:"qty"`
	MarketValue     float64 `json:"market_value"`
	UnrealizedPL    float64 `json:"unrealized_pl"`
	UnrealizedPLPct float64 `json:"unrealized_plpc"`
	CurrentPrice    float64 `json:"current_price"`
	PortfolioPct    float64 `json:"portfolio_pct"`
}

func (p Position) IsCash() bool { return p.Symbol == CashSymbol }

// WithPortfolioPct returns a copy of positions with PortfolioPct filled in.
func WithPortfolioPct(positions []Position) []Position {
	total := 0.0
	for _, p := range positions {
		total += p.MarketValue
	}
	out := make([]Position, len(positions))
	copy(out, positions)
	if total <= 0 {
		return out
	}
	for i := range out {
		out[i].PortfolioPct = out[i].MarketValue / total
	}
	return out
}

type PlanEntry struct {
	Symbol   string  `json:"symbol"`
	Notional float64 `json:"notional"`
}

// Plan is an ordered list of notional amounts per symbol.
type Plan struct {
	Entries []PlanEntry `json:"entries"`
}

func (p Plan) IsEmpty() bool { return len(p.Entries) == 0 }

func (p Plan) Total() float64 {
	sum := 0.0
	for _, e := range p.Entries {
		sum += e.Notional
	}
	return sum
}

func (p Plan) Symbols() []string {
	out := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		out = append(out, e.Symbol)
	}
	return out
}

type Asset struct {
	Symbol       string
	Exchange     string
	Status       string
	Tradable     bool
	Fractionable bool
}

// Tradeable is the screener filter: tradable, fractionable, active and not OTC.
func (a Asset) Tradeable() bool {
	return a.Tradable && a.Fractionable && a.Status == "active" && a.Exchange != "OTC"
}

type Article struct {
	Symbol      string
	Title       string
	Body        string
	URL         string
	Source      string
	PublishedAt time.Time
}

type Account struct {
	Cash        float64
	Equity      float64
	BuyingPower float64
}

type Clock struct {
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// OrderReq is a market order. Exactly one of Qty and Notional is non-zero.
type OrderReq struct {
	Symbol        string
	Side          string
	Qty           float64
	Notional      float64
	Tag           string
	ClientOrderID string
}

type OrderResp struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Simulated bool   `json:"simulated,omitempty"`
}

type OrderOutcome struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Notional float64 `json:"notional,omitempty"`
	Qty      float64 `json:"qty,omitempty"`
	OrderID  string  `json:"order_id,omitempty"`
	Status   string  `json:"status"`
	Pretend  bool    `json:"pretend"`
}

type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Stage  string `json:"stage"`
	Err    error  `json:"-"`
}

func (f SymbolFailure) Error() string {
	if f.Err == nil {
		return f.Symbol + " (" + f.Stage + ")"
	}
	return f.Symbol + " (" + f.Stage + "): " + f.Err.Error()
}

const (
	PhaseSell      = "sell_from_criteria"
	PhaseLiquidate = "liquidate_for_capital"
	PhaseBuy       = "buy_orders"
)

type PhaseReport struct {
	Phase    string          `json:"phase"`
	Message  string          `json:"message"`
	Pretend  bool            `json:"pretend"`
	Outcomes []OrderOutcome  `json:"outcomes"`
	Failures []SymbolFailure `json:"failures"`
}

type RunReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Phases     []PhaseReport `json:"phases"`
}
