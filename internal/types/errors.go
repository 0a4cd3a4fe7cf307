package types

import (
	"errors"
	"fmt"
)

var (
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrMarketClosed     = errors.New("market closed")
	ErrOrderRejected    = errors.New("order rejected")
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrConfig           = errors.New("configuration error")
)

// SymbolError ties a failure to the symbol and operation it happened in.
type SymbolError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *SymbolError) Unwrap() error { return e.Err }

func NewSymbolError(symbol, op string, err error) error {
	return &SymbolError{Symbol: symbol, Op: op, Err: err}
}

// Skippable reports whether a per-symbol error should be collected and
// the batch continued rather than aborted.
func Skippable(err error) bool {
	return errors.Is(err, ErrDataUnavailable) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrOrderRejected) ||
		errors.Is(err, ErrInvalidParameter)
}
