// Package alert delivers catastrophic-loss alerts to external sinks. It is a
// presentation layer over results the verify package already failed; it
// never decides on its own that a format was lost.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cgast/docverify/pkg/events"
	"github.com/cgast/docverify/pkg/report"
	"github.com/cgast/docverify/pkg/verify"
)

// Alert is one rendered catastrophic-loss notification.
type Alert struct {
	Run    string
	Result verify.VerificationResult
	Title  string
	Body   string
}

// Sink delivers alerts somewhere a human will see them.
type Sink interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSink adds a delivery target.
func WithSink(s Sink) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithEventBus publishes an alert.sent event per successful delivery.
func WithEventBus(bus events.EventBus) Option {
	return func(d *Dispatcher) {
		d.bus = bus
	}
}

// Dispatcher fans catastrophic results out to every sink.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
	bus    events.EventBus
}

// NewDispatcher creates a dispatcher. With no sinks Notify is a no-op.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Build renders the alert for r, or reports false when r is not a total loss.
func Build(run string, r verify.VerificationResult) (Alert, bool) {
	body := report.CatastrophicAlert(r)
	if body == "" {
		return Alert{}, false
	}
	title := fmt.Sprintf("Catastrophic %s loss", r.FormatType)
	if cp := r.Details.String(verify.KeyCheckpoint); cp != "" {
		title += fmt.Sprintf(" after checkpoint '%s'", cp)
	}
	return Alert{Run: run, Result: r, Title: title, Body: body}, true
}

// Notify sends an alert for each catastrophic result to every sink. It
// returns the number of deliveries that succeeded and the joined errors of
// those that did not; one failing sink does not stop the others.
func (d *Dispatcher) Notify(ctx context.Context, run string, results []verify.VerificationResult) (int, error) {
	var (
		sent int
		errs []error
	)
	for _, r := range results {
		a, ok := Build(run, r)
		if !ok {
			continue
		}
		for _, s := range d.sinks {
			if err := ctx.Err(); err != nil {
				return sent, errors.Join(append(errs, err)...)
			}
			if err := s.Send(ctx, a); err != nil {
				d.logger.Warn("alert delivery failed", "sink", s.Name(), "format_type", string(r.FormatType), "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				continue
			}
			sent++
			d.logger.Info("alert sent", "sink", s.Name(), "format_type", string(r.FormatType))
			if d.bus != nil {
				d.bus.Publish(events.NewEvent(events.EventAlertSent, map[string]any{
					"sink":        s.Name(),
					"format_type": string(r.FormatType),
				}).ForRun(run))
			}
		}
	}
	return sent, errors.Join(errs...)
}
