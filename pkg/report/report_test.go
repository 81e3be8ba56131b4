package report

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cgast/docverify/pkg/format"
	"github.com/cgast/docverify/pkg/verify"
)

func lostTrackChanges() verify.VerificationResult {
	return verify.Comparator{}.Compare(verify.Transition{
		FormatType: format.TrackChanges,
		Before: format.Found(5, format.Details{
			"insertion_samples": []any{"one", "two", "three", "four"},
			"insertion_count":   3,
		}),
		After:      format.Absent(nil),
		Checkpoint: "pre",
	})
}

func preservedComments() verify.VerificationResult {
	return verify.Comparator{}.Compare(verify.Transition{
		FormatType: format.Comments,
		Before:     format.Found(10, format.Details{"author_count": 2}),
		After:      format.Found(10, format.Details{"author_count": 2}),
	})
}

func TestVerification(t *testing.T) {
	results := []verify.VerificationResult{lostTrackChanges(), preservedComments()}
	out := Verification(results)

	for _, want := range []string{
		"FORMAT VERIFICATION REPORT",
		"Summary: 1/2 checks passed (50.0%)",
		"1 check(s) FAILED",
		"FAIL TRACK_CHANGES",
		"PASS COMMENTS",
		"loss_rate: 100%",
		"insertion_samples: 4 items [one, two, three, ...]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	// Evidence is shown for failures only.
	if strings.Count(out, "Evidence:") != 1 {
		t.Errorf("expected evidence for the failing result only:\n%s", out)
	}
}

func TestVerificationEmpty(t *testing.T) {
	out := Verification(nil)
	if !strings.Contains(out, "Summary: 0/0 checks passed (N/A)") {
		t.Errorf("unexpected report:\n%s", out)
	}
}

func TestRenderersArePure(t *testing.T) {
	results := []verify.VerificationResult{lostTrackChanges(), preservedComments()}
	snapshot := []verify.VerificationResult{lostTrackChanges(), preservedComments()}

	first := Verification(results)
	if second := Verification(results); first != second {
		t.Error("Verification is not deterministic")
	}
	_ = Pipeline(verify.PipelineResult{
		Transitions: []string{"pre→post"},
		Results:     map[string][]verify.VerificationResult{"pre→post": results},
	})
	_ = CatastrophicAlert(results[0])

	if !reflect.DeepEqual(results, snapshot) {
		t.Error("renderers modified their input")
	}
}

func TestDetailsSorted(t *testing.T) {
	out := Result(verify.VerificationResult{
		Passed:     true,
		FormatType: format.Tables,
		Message:    "tables preserved (2 items)",
		Details:    format.Details{"zeta": 1, "alpha": 2, "mid": "x"},
	})
	a, m, z := strings.Index(out, "alpha"), strings.Index(out, "mid"), strings.Index(out, "zeta")
	if a < 0 || !(a < m && m < z) {
		t.Errorf("details not sorted:\n%s", out)
	}
}

func TestCheckpoint(t *testing.T) {
	cp := verify.Checkpoint{
		Name:      "pre",
		Document:  "/work/input.docx",
		Timestamp: time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC),
		States: map[format.FormatType]format.FormatState{
			format.Comments:     format.Found(3, format.Details{"unique_authors": []any{"Ada", "Lin"}}),
			format.TrackChanges: format.Absent(nil),
			format.Tables:       format.ErrorState(format.ErrDocumentUnreadable),
		},
	}

	out := Checkpoint(cp, true)
	for _, want := range []string{
		"CHECKPOINT: pre",
		"Document: /work/input.docx",
		"Timestamp: 2025-11-02 10:00:00 UTC",
		"Formats Captured: 3",
		"error: document_unreadable",
		"unique_authors: [Ada, Lin]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if tc, cm := strings.Index(out, "track_changes"), strings.Index(out, "comments"); tc > cm {
		t.Error("format types should be listed in canonical order")
	}

	short := Checkpoint(cp, false)
	if strings.Contains(short, "unique_authors") {
		t.Errorf("header-only report included details:\n%s", short)
	}
}

func TestCheckpointComparison(t *testing.T) {
	before := verify.Checkpoint{Name: "pre", Document: "in.docx"}
	after := verify.Checkpoint{Name: "post", Document: "out.docx"}
	out := CheckpointComparison(before, after, []verify.VerificationResult{lostTrackChanges()})

	for _, want := range []string{
		"Before: pre",
		"After: post",
		"Timestamp: unknown",
		"0/1 checks passed",
		"format loss detected",
		"5 (100%)",
		"lost after checkpoint 'pre'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPipeline(t *testing.T) {
	p := verify.PipelineResult{
		Transitions: []string{"pre→mid", "mid→post"},
		Results: map[string][]verify.VerificationResult{
			"pre→mid":  {preservedComments()},
			"mid→post": {lostTrackChanges()},
		},
	}
	out := Pipeline(p)
	for _, want := range []string{
		"Total Stages: 2",
		"Total Checks: 2",
		"FAILED: 1/2",
		"FAILED CHECKS DETAIL",
		"mid→post:",
		"loss_rate: 100%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "pre→mid") > strings.Index(out, "mid→post") {
		t.Error("transitions out of pipeline order")
	}

	clean := Pipeline(verify.PipelineResult{
		Transitions: []string{"pre→mid"},
		Results:     map[string][]verify.VerificationResult{"pre→mid": {preservedComments()}},
	})
	if strings.Contains(clean, "FAILED CHECKS DETAIL") || !strings.Contains(clean, "All format checks PASSED") {
		t.Errorf("unexpected clean report:\n%s", clean)
	}
}

func TestCatastrophicAlert(t *testing.T) {
	out := CatastrophicAlert(lostTrackChanges())
	for _, want := range []string{
		"CATASTROPHIC FORMAT LOSS DETECTED",
		"Format Type: TRACK_CHANGES",
		"Loss Rate: 100%",
		"Baseline Checkpoint: pre",
		"STOP all processing",
		"text-only extraction versus structure-preserving editing",
		"every intermediate artifact",
		"remediation protocol",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("alert missing %q:\n%s", want, out)
		}
	}

	if got := CatastrophicAlert(preservedComments()); got != "" {
		t.Errorf("alert for passing result: %q", got)
	}
}
