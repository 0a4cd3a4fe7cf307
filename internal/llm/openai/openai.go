package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/llm"
	"daily-losers-bot/internal/trace"
	"daily-losers-bot/internal/types"
)

type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
	System      string
	BaseURL     string
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Labeler asks a chat model for BULLISH, BEARISH or NEUTRAL per article
type Labeler struct {
	client chatClient
	opts   Options
}

var _ interfaces.SentimentLabeler = (*Labeler)(nil)

func New(apiKey string, opts Options) *Labeler {
	cfg := goopenai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return newWithClient(goopenai.NewClientWithConfig(cfg), opts)
}

func newWithClient(client chatClient, opts Options) *Labeler {
	if opts.Model == "" {
		opts.Model = goopenai.GPT3Dot5Turbo
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 5
	}
	return &Labeler{client: client, opts: opts}
}

func (l *Labeler) Label(ctx context.Context, title, body string) (types.SentimentLabel, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	resp, err := l.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: l.opts.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.SystemPrompt(l.opts.System)},
			{Role: goopenai.ChatMessageRoleUser, Content: llm.UserPrompt(title, body)},
		},
		MaxTokens:   l.opts.MaxTokens,
		Temperature: l.opts.Temperature,
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %w", types.ErrRateLimited, err)
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return types.ParseSentimentLabel(resp.Choices[0].Message.Content), nil
}
