package events

import "time"

// EventType identifies the kind of event emitted during verification.
type EventType string

const (
	EventCheckpointCreated  EventType = "checkpoint.created"
	EventTransitionVerified EventType = "checkpoint.transition_verified"
	EventVerifyResult       EventType = "verify.result"
	EventCatastrophicLoss   EventType = "verify.catastrophic_loss"
	EventInspectFailed      EventType = "inspect.failed"
	EventRunSaved           EventType = "run.saved"
	EventRunLoaded          EventType = "run.loaded"
	EventAlertSent          EventType = "alert.sent"
)

// Event is a single verification event. Run is the checkpoint run it
// belongs to, empty for standalone comparisons.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Run       string    `json:"run,omitempty"`
	Data      any       `json:"data"`
}

// NewEvent creates a new Event with the current timestamp.
func NewEvent(typ EventType, data any) Event {
	return Event{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// ForRun tags the event with a run ID.
func (e Event) ForRun(run string) Event {
	e.Run = run
	return e
}
