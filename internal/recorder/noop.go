package recorder

import (
	"context"

	"daily-losers-bot/internal/types"
)

// NoopRecorder is used when recorder.driver is none.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ context.Context, _ *types.RunReport) error { return nil }
func (n *NoopRecorder) Close() error                                          { return nil }
