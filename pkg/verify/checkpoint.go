package verify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cgast/docverify/pkg/events"
	"github.com/cgast/docverify/pkg/format"
)

// TransitionSep joins checkpoint names in transition keys ("pre→post").
const TransitionSep = "→"

// Checkpoint is the recorded format state of one document at one pipeline
// stage. Later stages are compared against these recorded states, so the
// original document may be moved or deleted once the checkpoint exists.
type Checkpoint struct {
	Name      string                                   `json:"name"`
	Document  string                                   `json:"document_path"`
	Timestamp time.Time                                `json:"timestamp"`
	States    map[format.FormatType]format.FormatState `json:"format_states"`
}

// Types returns the recorded format types in canonical order.
func (c Checkpoint) Types() []format.FormatType {
	out := make([]format.FormatType, 0, len(c.States))
	for ft := range c.States {
		out = append(out, ft)
	}
	format.SortTypes(out)
	return out
}

// clone copies the state map so callers cannot reach the manager's copy.
func (c Checkpoint) clone() Checkpoint {
	states := make(map[format.FormatType]format.FormatState, len(c.States))
	for ft, st := range c.States {
		st.Details = st.Details.Clone()
		states[ft] = st
	}
	c.States = states
	return c
}

// TransitionKey names the transition between two checkpoints.
func TransitionKey(before, after string) string {
	return before + TransitionSep + after
}

// PipelineResult holds the results of every adjacent checkpoint transition.
// Transitions lists the keys of Results in pipeline order.
type PipelineResult struct {
	Transitions []string                        `json:"transitions"`
	Results     map[string][]VerificationResult `json:"results"`
}

// All flattens the results in pipeline order.
func (p PipelineResult) All() []VerificationResult {
	var out []VerificationResult
	for _, key := range p.Transitions {
		out = append(out, p.Results[key]...)
	}
	return out
}

// Manager keeps the ordered checkpoints of one document's processing run.
//
// A Manager is not safe for concurrent use. Use one Manager per document
// being processed, or guard it with a mutex.
type Manager struct {
	engine      *Engine
	runID       string
	order       []string
	checkpoints map[string]Checkpoint
}

// NewManager creates an empty manager with a fresh run ID.
func NewManager(engine *Engine) *Manager {
	return &Manager{
		engine:      engine,
		runID:       uuid.NewString(),
		checkpoints: make(map[string]Checkpoint),
	}
}

// RunID identifies this run in persisted snapshots and the audit store.
func (m *Manager) RunID() string { return m.runID }

// Len returns the number of checkpoints.
func (m *Manager) Len() int { return len(m.order) }

// Order returns checkpoint names in the order they were first added.
func (m *Manager) Order() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// AddCheckpoint inspects the document at path and stores the result under
// name. Re-adding a name replaces its checkpoint but keeps its position.
func (m *Manager) AddCheckpoint(path, name string, fts ...format.FormatType) (Checkpoint, error) {
	cp, err := m.engine.forRun(m.runID).CreateCheckpoint(path, name, fts...)
	if err != nil {
		return Checkpoint{}, err
	}

	if _, exists := m.checkpoints[name]; !exists {
		m.order = append(m.order, name)
	}
	m.checkpoints[name] = cp

	m.engine.logger.Info("checkpoint created",
		"run", m.runID,
		"checkpoint", name,
		"document", path,
		"formats", len(cp.States),
	)
	m.engine.publish(events.NewEvent(events.EventCheckpointCreated, cp.clone()).ForRun(m.runID))
	return cp.clone(), nil
}

// Checkpoint returns the checkpoint recorded under name.
func (m *Manager) Checkpoint(name string) (Checkpoint, error) {
	cp, ok := m.checkpoints[name]
	if !ok {
		return Checkpoint{}, fmt.Errorf("%w: %q", ErrCheckpointNotFound, name)
	}
	return cp.clone(), nil
}

// Checkpoints returns all checkpoints in order.
func (m *Manager) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.checkpoints[name].clone())
	}
	return out
}

// VerifyBetween re-inspects the document recorded at the after checkpoint
// and compares it with the states recorded at the before checkpoint. The
// before document is never reopened.
func (m *Manager) VerifyBetween(before, after string) ([]VerificationResult, error) {
	b, ok := m.checkpoints[before]
	if !ok {
		return nil, fmt.Errorf("verify %s: %w: %q", TransitionKey(before, after), ErrCheckpointNotFound, before)
	}
	a, ok := m.checkpoints[after]
	if !ok {
		return nil, fmt.Errorf("verify %s: %w: %q", TransitionKey(before, after), ErrCheckpointNotFound, after)
	}

	results := m.engine.forRun(m.runID).CompareCheckpoint(a.Document, b)
	m.engine.publish(events.NewEvent(events.EventTransitionVerified, map[string]any{
		"transition": TransitionKey(before, after),
		"summary":    Aggregate(results),
	}).ForRun(m.runID))
	return results, nil
}

// VerifyAll verifies each adjacent pair of checkpoints: N checkpoints give
// N-1 transitions.
func (m *Manager) VerifyAll() (PipelineResult, error) {
	out := PipelineResult{Results: make(map[string][]VerificationResult)}
	for i := 0; i+1 < len(m.order); i++ {
		before, after := m.order[i], m.order[i+1]
		results, err := m.VerifyBetween(before, after)
		if err != nil {
			return PipelineResult{}, err
		}
		key := TransitionKey(before, after)
		out.Transitions = append(out.Transitions, key)
		out.Results[key] = results
		m.engine.logger.Info("transition verified", "run", m.runID, "transition", key)
	}
	return out, nil
}
