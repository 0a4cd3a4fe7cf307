package interfaces

import "context"

// Screener lists the previous session's biggest decliners, worst first.
type Screener interface {
	Losers(ctx context.Context, top int) ([]string, error)
}
