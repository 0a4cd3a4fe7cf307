package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"daily-losers-bot/internal/api"
	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/llm"
	"daily-losers-bot/internal/trace"
	"daily-losers-bot/internal/types"
)

const (
	DefaultEndpoint = "https://api.anthropic.com"
	apiVersion      = "2023-06-01"
)

type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
	System      string
	Endpoint    string
}

// Labeler implements SentimentLabeler on the Anthropic messages API
type Labeler struct {
	client *api.Client
	opts   Options
}

var _ interfaces.SentimentLabeler = (*Labeler)(nil)

func New(apiKey string, opts Options) *Labeler {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 5
	}
	client := api.NewClient(
		api.WithBaseURL(strings.TrimRight(opts.Endpoint, "/")),
		api.WithTimeout(30*time.Second),
		api.WithHeader("x-api-key", apiKey),
		api.WithHeader("anthropic-version", apiVersion),
		api.WithLogging(true),
	)
	return &Labeler{client: client, opts: opts}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (l *Labeler) Label(ctx context.Context, title, body string) (types.SentimentLabel, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	req := api.NewRequest("POST", "/v1/messages").WithContext(ctx).WithBody(messagesRequest{
		Model:       l.opts.Model,
		MaxTokens:   l.opts.MaxTokens,
		Temperature: l.opts.Temperature,
		System:      llm.SystemPrompt(l.opts.System),
		Messages:    []message{{Role: "user", Content: llm.UserPrompt(title, body)}},
	})

	resp, err := l.client.DoWithRetry(req, &api.RetryConfig{MaxAttempts: 2, InitialWait: time.Second, MaxWait: 2 * time.Second})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var out messagesResponse
	if err := resp.ParseJSON(&out); err != nil {
		return "", err
	}
	for _, c := range out.Content {
		if c.Type == "" || c.Type == "text" {
			return types.ParseSentimentLabel(c.Text), nil
		}
	}
	return "", errors.New("claude returned no text content")
}
