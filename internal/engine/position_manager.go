package engine

import "daily-losers-bot/internal/types"

// positionBook indexes one positions snapshot, keeping the Cash row apart.
type positionBook struct {
	held    []types.Position
	bySym   map[string]types.Position
	cashAmt float64
}

func newPositionBook(positions []types.Position) *positionBook {
	pb := &positionBook{bySym: make(map[string]types.Position, len(positions))}
	for _, p := range positions {
		if p.IsCash() {
			pb.cashAmt += p.MarketValue
			continue
		}
		if p.Qty <= 0 {
			continue
		}
		if _, dup := pb.bySym[p.Symbol]; dup {
			continue
		}
		pb.held = append(pb.held, p)
		pb.bySym[p.Symbol] = p
	}
	return pb
}

// empty reports whether nothing besides cash is held.
func (pb *positionBook) empty() bool { return len(pb.held) == 0 }

func (pb *positionBook) get(symbol string) (types.Position, bool) {
	p, ok := pb.bySym[symbol]
	return p, ok
}

func (pb *positionBook) symbols() []string {
	out := make([]string, 0, len(pb.held))
	for _, p := range pb.held {
		out = append(out, p.Symbol)
	}
	return out
}

func (pb *positionBook) cash() float64 { return pb.cashAmt }

func (pb *positionBook) total() float64 {
	sum := pb.cashAmt
	for _, p := range pb.held {
		sum += p.MarketValue
	}
	return sum
}
