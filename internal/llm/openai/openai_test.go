package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"daily-losers-bot/internal/llm"
	"daily-losers-bot/internal/types"
)

type fakeChat struct {
	reply string
	err   error
	last  goopenai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return goopenai.ChatCompletionResponse{}, f.err
	}
	if f.reply == "" {
		return goopenai.ChatCompletionResponse{}, nil
	}
	return goopenai.ChatCompletionResponse{
		Choices: []goopenai.ChatCompletionChoice{{Message: goopenai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

func TestLabel(t *testing.T) {
	tests := []struct {
		reply string
		want  types.SentimentLabel
	}{
		{"BULLISH", types.Bullish},
		{" bearish.", types.Bearish},
		{"NEUTRAL", types.Neutral},
		{"I cannot tell", types.Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			chat := &fakeChat{reply: tt.reply}
			l := newWithClient(chat, Options{})

			got, err := l.Label(context.Background(), "AAA beats estimates", "Revenue rose 20%.")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if chat.last.Model != goopenai.GPT3Dot5Turbo || len(chat.last.Messages) != 2 {
				t.Errorf("unexpected request %+v", chat.last)
			}
			if chat.last.Messages[0].Content != llm.DefaultSystemPrompt {
				t.Errorf("expected default system prompt, got %q", chat.last.Messages[0].Content)
			}
			if !strings.Contains(chat.last.Messages[1].Content, "AAA beats estimates") {
				t.Errorf("expected headline in user prompt, got %q", chat.last.Messages[1].Content)
			}
		})
	}
}

func TestLabelErrors(t *testing.T) {
	l := newWithClient(&fakeChat{}, Options{})
	if _, err := l.Label(context.Background(), "t", "b"); err == nil {
		t.Error("expected error when no choices are returned")
	}

	limited := newWithClient(&fakeChat{err: &goopenai.APIError{HTTPStatusCode: 429, Message: "slow down"}}, Options{})
	if _, err := limited.Label(context.Background(), "t", "b"); !errors.Is(err, types.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}
