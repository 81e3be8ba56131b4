package verify

import (
	"fmt"

	"github.com/cgast/docverify/pkg/format"
)

// PartialLossPolicy decides whether a partial count decrease fails. The
// zero value lets every partial loss pass with a warning.
type PartialLossPolicy struct {
	// Fail turns partial losses whose rate exceeds Tolerance into failures.
	Fail bool
	// Tolerance is the largest loss rate, in percent, that still passes.
	Tolerance float64
}

// Comparator classifies before/after format states. It holds no mutable
// state and is safe to share.
type Comparator struct {
	PartialLoss PartialLossPolicy
}

// Transition is one format type observed on both sides of a pipeline stage.
// Checkpoint names the baseline when Before was read from a checkpoint.
type Transition struct {
	FormatType format.FormatType
	Before     format.FormatState
	After      format.FormatState
	Checkpoint string
}

// Compare applies the preservation decision table to t:
//
//	absent  → absent   PASS  not applicable
//	absent  → present  PASS  added
//	present → absent   FAIL  lost, loss_rate 100%
//	present → fewer    PASS  partially preserved (policy may fail it)
//	present → same/more PASS preserved
//
// An error recorded on either state fails the transition regardless.
func (c Comparator) Compare(t Transition) VerificationResult {
	if t.Before.Err() != "" {
		return errorResult(t, "before", t.Before)
	}
	if t.After.Err() != "" {
		return errorResult(t, "after", t.After)
	}

	b, a := t.Before, t.After
	ft := t.FormatType
	details := format.Details{
		KeyBeforeCount: b.Count,
		KeyAfterCount:  a.Count,
	}
	if t.Checkpoint != "" {
		details[KeyCheckpoint] = t.Checkpoint
	}

	switch {
	case !b.Present && !a.Present:
		details[format.KeyNote] = "no_format_to_preserve"
		msg := fmt.Sprintf("%s not present (verification not applicable)", ft)
		if t.Checkpoint != "" {
			msg = fmt.Sprintf("%s not applicable (not present at checkpoint '%s')", ft, t.Checkpoint)
		}
		return VerificationResult{Passed: true, FormatType: ft, Message: msg, Details: details}

	case !b.Present:
		details[format.KeyNote] = "format_added"
		return VerificationResult{
			Passed:     true,
			FormatType: ft,
			Message:    fmt.Sprintf("%s added%s (%d items)", ft, during(t, "since"), a.Count),
			Details:    details,
			Evidence:   format.Details{"after": a.Details.Clone()},
		}

	case !a.Present:
		details[KeyLossCount] = b.Count
		details[KeyLossRate] = LossTotal
		return VerificationResult{
			Passed:     false,
			FormatType: ft,
			Message:    fmt.Sprintf("%s lost%s (catastrophic loss: %d items to 0)", ft, during(t, "after"), b.Count),
			Details:    details,
			Evidence:   evidence(b, a),
		}

	case a.Count < b.Count:
		loss := b.Count - a.Count
		pct := float64(loss) * 100 / float64(b.Count)
		rate := fmt.Sprintf("%.1f%%", pct)
		details[KeyLossCount] = loss
		details[KeyLossRate] = rate

		if c.PartialLoss.Fail && pct > c.PartialLoss.Tolerance {
			details[KeyWarning] = "partial_loss_exceeds_tolerance"
			details[KeyTolerance] = fmt.Sprintf("%.1f%%", c.PartialLoss.Tolerance)
			return VerificationResult{
				Passed:     false,
				FormatType: ft,
				Message: fmt.Sprintf("%s partially lost (%s loss%s exceeds %.1f%% tolerance)",
					ft, rate, since(t), c.PartialLoss.Tolerance),
				Details:  details,
				Evidence: evidence(b, a),
			}
		}

		details[KeyWarning] = "partial_loss"
		return VerificationResult{
			Passed:     true,
			FormatType: ft,
			Message:    fmt.Sprintf("%s partially preserved (%s loss%s)", ft, rate, since(t)),
			Details:    details,
			Evidence:   evidence(b, a),
		}

	default:
		return VerificationResult{
			Passed:     true,
			FormatType: ft,
			Message:    fmt.Sprintf("%s preserved%s (%d items)", ft, since(t), a.Count),
			Details:    details,
			Evidence:   evidence(b, a),
		}
	}
}

// during phrases the transition for messages: "during processing" for a
// direct comparison, "<prep> checkpoint 'name'" against a checkpoint.
func during(t Transition, prep string) string {
	if t.Checkpoint == "" {
		return " during processing"
	}
	return fmt.Sprintf(" %s checkpoint '%s'", prep, t.Checkpoint)
}

func since(t Transition) string {
	if t.Checkpoint == "" {
		return ""
	}
	return fmt.Sprintf(" since checkpoint '%s'", t.Checkpoint)
}

func evidence(b, a format.FormatState) format.Details {
	return format.Details{
		"before": b.Details.Clone(),
		"after":  a.Details.Clone(),
	}
}

func errorResult(t Transition, side string, st format.FormatState) VerificationResult {
	details := format.Details{
		format.KeyError:        st.Err(),
		format.KeyErrorMessage: st.Details.String(format.KeyErrorMessage),
		KeySide:                side,
	}
	if t.Checkpoint != "" {
		details[KeyCheckpoint] = t.Checkpoint
	}
	return VerificationResult{
		Passed:     false,
		FormatType: t.FormatType,
		Message: fmt.Sprintf("Verification error (%s document): %s",
			side, st.Details.String(format.KeyErrorMessage)),
		Details: details,
	}
}
