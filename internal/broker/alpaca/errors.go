package alpaca

import (
	"errors"
	"fmt"
	"net/http"

	alpacasdk "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"daily-losers-bot/internal/types"
)

// classify maps SDK failures onto the error taxonomy so callers can decide
// whether to skip the symbol.
func classify(symbol, op string, err error) error {
	var apiErr *alpacasdk.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			err = fmt.Errorf("%w: %s", types.ErrNotFound, apiErr.Message)
		case http.StatusTooManyRequests:
			err = fmt.Errorf("%w: %s", types.ErrRateLimited, apiErr.Message)
		}
	}
	if symbol == "" {
		return fmt.Errorf("alpaca %s: %w", op, err)
	}
	return types.NewSymbolError(symbol, op, err)
}

// classifyOrder treats 403 and 422 as broker rejections.
func classifyOrder(symbol string, err error) error {
	var apiErr *alpacasdk.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusForbidden, http.StatusUnprocessableEntity:
			return types.NewSymbolError(symbol, "place_order",
				fmt.Errorf("%w: %s", types.ErrOrderRejected, apiErr.Message))
		}
	}
	return classify(symbol, "place_order", err)
}
