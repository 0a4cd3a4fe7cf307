package sentiment

import (
	"errors"
	"testing"

	"daily-losers-bot/internal/types"
)

func TestAggregateArticles(t *testing.T) {
	B, Be, N := types.Bullish, types.Bearish, types.Neutral
	tests := []struct {
		name   string
		labels []types.SentimentLabel
		want   types.SentimentLabel
	}{
		{"majority bullish", []types.SentimentLabel{B, B, Be}, types.Bullish},
		{"mixed is not bullish", []types.SentimentLabel{B, N, Be}, types.Bearish},
		{"tie is not bullish", []types.SentimentLabel{B, N}, types.Bearish},
		{"single bullish", []types.SentimentLabel{B}, types.Bullish},
		{"neutral counts against", []types.SentimentLabel{B, B, N, N}, types.Bearish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AggregateArticles(tt.labels)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("AggregateArticles(%v) = %s, want %s", tt.labels, got, tt.want)
			}
		})
	}
}

func TestAggregateArticlesEmpty(t *testing.T) {
	got, err := AggregateArticles(nil)
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
	if got == types.Bullish {
		t.Error("empty labels must never be bullish")
	}
}

func TestAggregateRecommendations(t *testing.T) {
	tests := []struct {
		name string
		rec  types.Recommendation
		want bool
	}{
		{"bullish", types.Recommendation{StrongBuy: 5, Buy: 10, Hold: 6, Sell: 1}, true},
		{"holds tip bearish", types.Recommendation{StrongBuy: 2, Buy: 3, Hold: 5}, false},
		{"equal is bearish", types.Recommendation{Buy: 2, Sell: 1, StrongSell: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AggregateRecommendations(tt.rec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := AggregateRecommendations(types.Recommendation{Symbol: "AAA"}); !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for empty ratings, got %v", err)
	}
}

func TestParseGateOrder(t *testing.T) {
	if g, err := ParseGateOrder(""); err != nil || g != TechnicalFirst {
		t.Errorf("default: got %q, %v", g, err)
	}
	if g, err := ParseGateOrder("Sentiment_First"); err != nil || g != SentimentFirst {
		t.Errorf("got %q, %v", g, err)
	}
	if _, err := ParseGateOrder("random"); !errors.Is(err, types.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}
