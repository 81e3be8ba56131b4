// Package verify decides whether document metadata survived a processing
// stage. It compares inspected format states before and after the stage,
// records per-stage checkpoints for multi-stage pipelines, and aggregates
// the results into a pass/fail verdict.
package verify

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/cgast/docverify/pkg/events"
	"github.com/cgast/docverify/pkg/format"
)

// Option configures an Engine.
type Option func(*Engine)

// WithPartialLossPolicy sets how partial count decreases are judged.
func WithPartialLossPolicy(p PartialLossPolicy) Option {
	return func(e *Engine) {
		e.comparator.PartialLoss = p
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEventBus publishes checkpoint and result events to bus.
func WithEventBus(bus events.EventBus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithClock overrides the clock used to timestamp checkpoints.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine inspects documents through an injected registry and compares the
// resulting states. It is synchronous: each call opens, reads and closes
// the documents it needs before returning.
type Engine struct {
	registry   *format.Registry
	comparator Comparator
	logger     *slog.Logger
	bus        events.EventBus
	now        func() time.Time
	run        string
}

// NewEngine creates an engine over registry.
func NewEngine(registry *format.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Comparator returns the comparator the engine applies.
func (e *Engine) Comparator() Comparator { return e.comparator }

// Registry returns the inspector registry.
func (e *Engine) Registry() *format.Registry { return e.registry }

// Inspect captures the state of ft in the document at path. Failures come
// back as error states, never as Go errors.
func (e *Engine) Inspect(path string, ft format.FormatType) format.FormatState {
	st := e.registry.Inspect(path, ft)
	if code := st.Err(); code != "" {
		e.logger.Warn("inspection failed",
			"document", path,
			"format_type", string(ft),
			"error", code,
			"error_message", st.Details.String(format.KeyErrorMessage),
		)
		e.publish(events.NewEvent(events.EventInspectFailed, map[string]any{
			"document":    path,
			"format_type": string(ft),
			"error":       code,
		}))
	}
	return st
}

// VerifyPreserved checks that ft survived the transformation of before into
// after.
func (e *Engine) VerifyPreserved(before, after string, ft format.FormatType) VerificationResult {
	if !fileExists(before) {
		return e.record(VerificationResult{
			FormatType: ft,
			Message:    fmt.Sprintf("Before file not found: %s", before),
			Details:    format.Details{format.KeyError: CodeMissingBeforeFile},
		})
	}
	if !fileExists(after) {
		return e.record(VerificationResult{
			FormatType: ft,
			Message:    fmt.Sprintf("After file not found: %s", after),
			Details:    format.Details{format.KeyError: CodeMissingAfterFile},
		})
	}
	if _, ok := e.registry.Lookup(ft); !ok {
		return e.record(missingInspector(ft))
	}

	return e.record(e.comparator.Compare(Transition{
		FormatType: ft,
		Before:     e.Inspect(before, ft),
		After:      e.Inspect(after, ft),
	}))
}

// VerifyMultiple runs VerifyPreserved for each format type, in order. A type
// with no registered inspector yields a FAIL rather than being skipped.
func (e *Engine) VerifyMultiple(before, after string, fts []format.FormatType) []VerificationResult {
	results := make([]VerificationResult, 0, len(fts))
	for _, ft := range fts {
		results = append(results, e.VerifyPreserved(before, after, ft))
	}
	return results
}

// VerifyRoundTrip verifies fts, or format.DefaultTypes when none are given.
func (e *Engine) VerifyRoundTrip(original, processed string, fts ...format.FormatType) []VerificationResult {
	if len(fts) == 0 {
		fts = format.DefaultTypes
	}
	return e.VerifyMultiple(original, processed, fts)
}

// CreateCheckpoint captures the states of fts (format.DefaultTypes when
// empty) in the document at path.
func (e *Engine) CreateCheckpoint(path, name string, fts ...format.FormatType) (Checkpoint, error) {
	if name == "" {
		return Checkpoint{}, fmt.Errorf("create checkpoint: empty name")
	}
	if len(fts) == 0 {
		fts = format.DefaultTypes
	}

	cp := Checkpoint{
		Name:      name,
		Document:  path,
		Timestamp: e.now().UTC(),
		States:    make(map[format.FormatType]format.FormatState, len(fts)),
	}
	for _, ft := range fts {
		st := e.Inspect(path, ft)
		cp.States[ft] = st
		e.logger.Debug("checkpoint state captured",
			"checkpoint", name,
			"format_type", string(ft),
			"present", st.Present,
			"count", st.Count,
		)
	}
	return cp, nil
}

// CompareCheckpoint inspects the document at path and compares it with the
// states recorded in prev. With no fts, every type recorded in prev is
// compared. A requested type prev never recorded fails explicitly.
func (e *Engine) CompareCheckpoint(path string, prev Checkpoint, fts ...format.FormatType) []VerificationResult {
	if len(fts) == 0 {
		fts = prev.Types()
	}

	results := make([]VerificationResult, 0, len(fts))
	for _, ft := range fts {
		before, ok := prev.States[ft]
		if !ok {
			results = append(results, e.record(VerificationResult{
				FormatType: ft,
				Message:    fmt.Sprintf("%s not in checkpoint '%s'", ft, prev.Name),
				Details: format.Details{
					format.KeyError: CodeMissingFromCheckpoint,
					KeyCheckpoint:   prev.Name,
				},
			}))
			continue
		}
		if _, ok := e.registry.Lookup(ft); !ok {
			r := missingInspector(ft)
			r.Details[KeyCheckpoint] = prev.Name
			results = append(results, e.record(r))
			continue
		}
		results = append(results, e.record(e.comparator.Compare(Transition{
			FormatType: ft,
			Before:     before,
			After:      e.Inspect(path, ft),
			Checkpoint: prev.Name,
		})))
	}
	return results
}

// record logs and publishes a finished result.
func (e *Engine) record(r VerificationResult) VerificationResult {
	e.publish(events.NewEvent(events.EventVerifyResult, r))
	switch {
	case IsCatastrophic(r):
		e.logger.Error("format lost",
			"format_type", string(r.FormatType),
			"loss_rate", LossTotal,
			"message", r.Message,
		)
		e.publish(events.NewEvent(events.EventCatastrophicLoss, r))
	case !r.Passed:
		e.logger.Warn("verification failed", "format_type", string(r.FormatType), "message", r.Message)
	case r.Warning() != "":
		e.logger.Warn("partial format loss", "format_type", string(r.FormatType), "message", r.Message)
	default:
		e.logger.Debug("verification passed", "format_type", string(r.FormatType), "message", r.Message)
	}
	return r
}

// forRun returns a copy of e that tags published events with run.
func (e *Engine) forRun(run string) *Engine {
	c := *e
	c.run = run
	return &c
}

func (e *Engine) publish(ev events.Event) {
	if e.bus == nil {
		return
	}
	if ev.Run == "" {
		ev.Run = e.run
	}
	e.bus.Publish(ev)
}

func missingInspector(ft format.FormatType) VerificationResult {
	return VerificationResult{
		FormatType: ft,
		Message:    fmt.Sprintf("No inspector registered for %s", ft),
		Details:    format.Details{format.KeyError: format.CodeMissingInspector},
	}
}

// fileExists is false only for paths that are definitely absent; other stat
// failures are left for the inspector to report.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
