package verify

import (
	"fmt"

	"github.com/cgast/docverify/pkg/format"
)

// Overall statuses and the pass rate reported for an empty result list.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	PassRateNA = "N/A"
)

// Summary rolls a result list up into the verdict a pipeline gates on.
type Summary struct {
	Total         int                  `json:"total_count"`
	Passed        int                  `json:"passed_count"`
	Failed        int                  `json:"failed_count"`
	PassRate      string               `json:"pass_rate"`
	OverallStatus string               `json:"overall_status"`
	FailedFormats []format.FormatType  `json:"failed_formats"`
	Results       []VerificationResult `json:"results"`
}

// Aggregate summarizes results. The overall status is PASS only when no
// result failed; an empty list passes with pass rate "N/A".
func Aggregate(results []VerificationResult) Summary {
	s := Summary{
		Total:         len(results),
		FailedFormats: []format.FormatType{},
		Results:       append([]VerificationResult(nil), results...),
	}
	for _, r := range results {
		if r.Passed {
			s.Passed++
			continue
		}
		s.Failed++
		s.FailedFormats = append(s.FailedFormats, r.FormatType)
	}

	s.PassRate = PassRateNA
	if s.Total > 0 {
		s.PassRate = fmt.Sprintf("%.1f%%", float64(s.Passed)/float64(s.Total)*100)
	}
	s.OverallStatus = StatusPass
	if s.Failed > 0 {
		s.OverallStatus = StatusFail
	}
	return s
}

// OK reports whether the overall status is PASS.
func (s Summary) OK() bool { return s.OverallStatus == StatusPass }

// Catastrophic returns the results recording total loss of a format.
func (s Summary) Catastrophic() []VerificationResult {
	var out []VerificationResult
	for _, r := range s.Results {
		if IsCatastrophic(r) {
			out = append(out, r)
		}
	}
	return out
}

// Warnings returns passing results that carry a partial-loss warning.
func (s Summary) Warnings() []VerificationResult {
	var out []VerificationResult
	for _, r := range s.Results {
		if r.Passed && r.Warning() != "" {
			out = append(out, r)
		}
	}
	return out
}

// AggregatePipeline summarizes every transition of a pipeline run.
func AggregatePipeline(p PipelineResult) Summary {
	return Aggregate(p.All())
}
