// Package notify delivers phase summaries.
package notify

import (
	"context"
	"errors"
	"time"

	"daily-losers-bot/internal/api"
	"daily-losers-bot/internal/interfaces"
	"daily-losers-bot/internal/logger"
)

// Log writes every message to the structured log.
type Log struct{}

var _ interfaces.Notifier = Log{}

func (Log) Notify(ctx context.Context, message string) error {
	logger.Info(ctx, "Phase summary", "message", message)
	return nil
}

// Slack posts messages to an incoming webhook.
type Slack struct {
	client  *api.Client
	url     string
	retries *api.RetryConfig
}

var _ interfaces.Notifier = (*Slack)(nil)

func NewSlack(webhookURL string, opts ...api.ClientOption) *Slack {
	opts = append([]api.ClientOption{api.WithTimeout(10 * time.Second)}, opts...)
	return &Slack{
		client:  api.NewClient(opts...),
		url:     webhookURL,
		retries: &api.RetryConfig{MaxAttempts: 3, InitialWait: time.Second, MaxWait: 4 * time.Second},
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Notify(ctx context.Context, message string) error {
	req := api.NewRequest("POST", s.url).WithContext(ctx).WithBody(slackPayload{Text: message})
	if _, err := s.client.DoWithRetry(req, s.retries); err != nil {
		return err
	}
	return nil
}

// Multi sends to every notifier and joins their errors.
type Multi []interfaces.Notifier

var _ interfaces.Notifier = Multi(nil)

func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
