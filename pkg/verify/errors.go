package verify

import "errors"

// ErrCheckpointNotFound is returned when a caller names a checkpoint the
// manager never recorded. It is a contract violation, not a data failure,
// so it propagates instead of becoming a FAIL result.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Error codes stored in result details for failures detected here rather
// than by an inspector.
const (
	CodeMissingBeforeFile     = "missing_before_file"
	CodeMissingAfterFile      = "missing_after_file"
	CodeMissingFromCheckpoint = "missing_from_checkpoint"
)
