package verify

import (
	"errors"
	"strings"
	"testing"

	"github.com/cgast/docverify/pkg/format"
)

func TestCompareDecisionTable(t *testing.T) {
	tests := []struct {
		name        string
		before      format.FormatState
		after       format.FormatState
		wantPass    bool
		wantNote    string
		wantWarning string
		wantRate    string
		wantMsg     string
	}{
		{
			name:     "absent to absent",
			before:   format.Absent(nil),
			after:    format.Absent(nil),
			wantPass: true,
			wantNote: "no_format_to_preserve",
			wantMsg:  "not applicable",
		},
		{
			name:     "added",
			before:   format.Absent(nil),
			after:    format.Found(3, nil),
			wantPass: true,
			wantNote: "format_added",
			wantMsg:  "added during processing (3 items)",
		},
		{
			name:     "single item lost",
			before:   format.Found(1, nil),
			after:    format.Absent(nil),
			wantRate: LossTotal,
			wantMsg:  "catastrophic loss: 1 items to 0",
		},
		{
			name:     "many items lost",
			before:   format.Found(1000, nil),
			after:    format.Absent(nil),
			wantRate: LossTotal,
			wantMsg:  "catastrophic loss: 1000 items to 0",
		},
		{
			name:        "partial loss",
			before:      format.Found(4, nil),
			after:       format.Found(3, nil),
			wantPass:    true,
			wantWarning: "partial_loss",
			wantRate:    "25.0%",
			wantMsg:     "partially preserved (25.0% loss)",
		},
		{
			name:     "preserved",
			before:   format.Found(5, nil),
			after:    format.Found(5, nil),
			wantPass: true,
			wantMsg:  "preserved (5 items)",
		},
		{
			name:     "grew",
			before:   format.Found(5, nil),
			after:    format.Found(8, nil),
			wantPass: true,
			wantMsg:  "preserved (8 items)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Comparator{}.Compare(Transition{
				FormatType: format.TrackChanges,
				Before:     tt.before,
				After:      tt.after,
			})
			if r.Passed != tt.wantPass {
				t.Errorf("Passed = %v, want %v (%s)", r.Passed, tt.wantPass, r.Message)
			}
			if r.FormatType != format.TrackChanges {
				t.Errorf("FormatType = %q", r.FormatType)
			}
			if got := r.Details.String(format.KeyNote); got != tt.wantNote {
				t.Errorf("note = %q, want %q", got, tt.wantNote)
			}
			if got := r.Warning(); got != tt.wantWarning {
				t.Errorf("warning = %q, want %q", got, tt.wantWarning)
			}
			if got := r.Details.String(KeyLossRate); got != tt.wantRate {
				t.Errorf("loss_rate = %q, want %q", got, tt.wantRate)
			}
			if !strings.Contains(r.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", r.Message, tt.wantMsg)
			}
			if IsCatastrophic(r) != (tt.wantRate == LossTotal) {
				t.Errorf("IsCatastrophic = %v", IsCatastrophic(r))
			}
		})
	}
}

func TestCompareLossCounts(t *testing.T) {
	r := Comparator{}.Compare(Transition{
		FormatType: format.Comments,
		Before:     format.Found(1000, nil),
		After:      format.Absent(nil),
	})
	if n, _ := r.Details.Int(KeyBeforeCount); n != 1000 {
		t.Errorf("before_count = %d", n)
	}
	if n, _ := r.Details.Int(KeyAfterCount); n != 0 {
		t.Errorf("after_count = %d", n)
	}
	if n, _ := r.Details.Int(KeyLossCount); n != 1000 {
		t.Errorf("loss_count = %d", n)
	}
}

func TestComparePartialLossPolicy(t *testing.T) {
	tr := Transition{
		FormatType: format.Comments,
		Before:     format.Found(10, nil),
		After:      format.Found(7, nil),
	}

	tests := []struct {
		name     string
		policy   PartialLossPolicy
		wantPass bool
		warning  string
	}{
		{"zero policy passes", PartialLossPolicy{}, true, "partial_loss"},
		{"tolerance not enforced", PartialLossPolicy{Tolerance: 10}, true, "partial_loss"},
		{"within tolerance", PartialLossPolicy{Fail: true, Tolerance: 50}, true, "partial_loss"},
		{"at tolerance", PartialLossPolicy{Fail: true, Tolerance: 30}, true, "partial_loss"},
		{"exceeds tolerance", PartialLossPolicy{Fail: true, Tolerance: 20}, false, "partial_loss_exceeds_tolerance"},
		{"strict", PartialLossPolicy{Fail: true}, false, "partial_loss_exceeds_tolerance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Comparator{PartialLoss: tt.policy}.Compare(tr)
			if r.Passed != tt.wantPass {
				t.Errorf("Passed = %v, want %v (%s)", r.Passed, tt.wantPass, r.Message)
			}
			if r.Warning() != tt.warning {
				t.Errorf("warning = %q, want %q", r.Warning(), tt.warning)
			}
			if IsCatastrophic(r) {
				t.Error("partial loss must not count as catastrophic")
			}
		})
	}
}

func TestCompareErrorStates(t *testing.T) {
	broken := format.ErrorState(errors.Join(format.ErrDocumentUnreadable, errors.New("zip: not a valid zip file")))

	tests := []struct {
		name   string
		before format.FormatState
		after  format.FormatState
		side   string
	}{
		{"before unreadable", broken, format.Found(2, nil), "before"},
		{"before unreadable after absent", broken, format.Absent(nil), "before"},
		{"after unreadable", format.Found(2, nil), broken, "after"},
		{"both unreadable", broken, broken, "before"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Comparator{}.Compare(Transition{
				FormatType: format.TrackChanges,
				Before:     tt.before,
				After:      tt.after,
				Checkpoint: "pre",
			})
			if r.Passed {
				t.Fatalf("expected FAIL, got %s", r)
			}
			if r.Details.String(format.KeyError) != format.CodeDocumentUnreadable {
				t.Errorf("error = %q", r.Details.String(format.KeyError))
			}
			if r.Details.String(KeySide) != tt.side {
				t.Errorf("side = %q, want %q", r.Details.String(KeySide), tt.side)
			}
			if r.Details.String(KeyCheckpoint) != "pre" {
				t.Errorf("checkpoint = %q", r.Details.String(KeyCheckpoint))
			}
			if !strings.HasPrefix(r.Message, "Verification error ("+tt.side+" document)") {
				t.Errorf("Message = %q", r.Message)
			}
		})
	}
}

func TestCompareCheckpointMessages(t *testing.T) {
	c := Comparator{}
	cases := []struct {
		before, after format.FormatState
		want          string
	}{
		{format.Absent(nil), format.Absent(nil), "not present at checkpoint 'pre'"},
		{format.Absent(nil), format.Found(1, nil), "added since checkpoint 'pre'"},
		{format.Found(2, nil), format.Absent(nil), "lost after checkpoint 'pre'"},
		{format.Found(4, nil), format.Found(2, nil), "loss since checkpoint 'pre'"},
		{format.Found(2, nil), format.Found(2, nil), "preserved since checkpoint 'pre'"},
	}
	for _, tc := range cases {
		r := c.Compare(Transition{
			FormatType: format.Comments,
			Before:     tc.before,
			After:      tc.after,
			Checkpoint: "pre",
		})
		if !strings.Contains(r.Message, tc.want) {
			t.Errorf("Message = %q, want it to contain %q", r.Message, tc.want)
		}
		if r.Details.String(KeyCheckpoint) != "pre" {
			t.Errorf("%q: checkpoint detail = %q", r.Message, r.Details.String(KeyCheckpoint))
		}
	}
}

func TestCompareEvidence(t *testing.T) {
	r := Comparator{}.Compare(Transition{
		FormatType: format.Comments,
		Before:     format.Found(2, format.Details{"author_count": 2}),
		After:      format.Found(2, format.Details{"author_count": 1}),
	})
	before, _ := r.Evidence["before"].(format.Details)
	after, _ := r.Evidence["after"].(format.Details)
	if n, _ := before.Int("author_count"); n != 2 {
		t.Errorf("evidence before = %v", r.Evidence["before"])
	}
	if n, _ := after.Int("author_count"); n != 1 {
		t.Errorf("evidence after = %v", r.Evidence["after"])
	}
}
