package alert

import (
	"context"
	"log/slog"

	"github.com/cgast/docverify/pkg/verify"
)

// LogSink writes alerts to a logger at error level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Name() string { return "log" }

func (s LogSink) Send(ctx context.Context, a Alert) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.ErrorContext(ctx, a.Title,
		"run", a.Run,
		"format_type", string(a.Result.FormatType),
		"loss_rate", a.Result.Details.String(verify.KeyLossRate),
		"message", a.Result.Message,
	)
	return nil
}
