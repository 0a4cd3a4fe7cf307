package eod

// aggRow totals one symbol's journaled orders for the day. Pretend orders
// are counted but carry no value.
type aggRow struct {
	Symbol       string
	BuyOrders    int
	BuyNotional  float64
	SellOrders   int
	SellQty      float64
	SellNotional float64
	Pretend      int
	Failed       int
}

func (r *aggRow) net() float64 { return r.SellNotional - r.BuyNotional }
