package verify

import (
	"fmt"

	"github.com/cgast/docverify/pkg/format"
)

// Detail keys written by the comparator.
const (
	KeyBeforeCount = "before_count"
	KeyAfterCount  = "after_count"
	KeyLossCount   = "loss_count"
	KeyLossRate    = "loss_rate"
	KeyWarning     = "warning"
	KeyCheckpoint  = "checkpoint"
	KeySide        = "side"
	KeyTolerance   = "tolerance"
)

// LossTotal is the loss rate recorded when a feature disappears entirely.
const LossTotal = "100%"

// VerificationResult is the outcome of checking one format type across one
// transition. Results are values; nothing in this package modifies a result
// after returning it.
type VerificationResult struct {
	Passed     bool              `json:"passed"`
	FormatType format.FormatType `json:"format_type"`
	Message    string            `json:"message"`
	Details    format.Details    `json:"details,omitempty"`
	Evidence   format.Details    `json:"evidence,omitempty"`
}

// Status returns "PASS" or "FAIL".
func (r VerificationResult) Status() string {
	if r.Passed {
		return StatusPass
	}
	return StatusFail
}

func (r VerificationResult) String() string {
	return fmt.Sprintf("%s: %s - %s", r.Status(), r.FormatType, r.Message)
}

// Warning returns the partial-loss warning recorded on the result, if any.
func (r VerificationResult) Warning() string {
	return r.Details.String(KeyWarning)
}

// IsCatastrophic reports whether r records the total-loss failure mode: a
// feature that was present before the transition and is gone after it.
func IsCatastrophic(r VerificationResult) bool {
	return r.Details.String(KeyLossRate) == LossTotal
}
