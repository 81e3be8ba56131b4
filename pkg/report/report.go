// Package report renders verification results as human-readable text.
// Every renderer is a pure function of its arguments: detail keys are
// printed in sorted order and nothing passed in is modified.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cgast/docverify/pkg/format"
	"github.com/cgast/docverify/pkg/verify"
)

const (
	width       = 70
	listPreview = 3
	timeLayout  = "2006-01-02 15:04:05 MST"
)

var (
	heavyRule = strings.Repeat("=", width)
	lightRule = strings.Repeat("-", width)
)

// Result renders a single result.
func Result(r verify.VerificationResult) string {
	var b strings.Builder
	writeResult(&b, r, true)
	return strings.TrimRight(b.String(), "\n")
}

// Verification renders a list of results from one before/after comparison.
func Verification(results []verify.VerificationResult) string {
	sum := verify.Aggregate(results)

	var b strings.Builder
	banner(&b, "FORMAT VERIFICATION REPORT")
	fmt.Fprintf(&b, "\nSummary: %d/%d checks passed (%s)\n", sum.Passed, sum.Total, sum.PassRate)
	if sum.Failed > 0 {
		fmt.Fprintf(&b, "%d check(s) FAILED\n", sum.Failed)
	} else {
		b.WriteString("All checks PASSED\n")
	}

	if len(results) > 0 {
		b.WriteString("\n")
		b.WriteString(resultTable(results))
		b.WriteString("\n")
	}

	b.WriteString("\n" + lightRule + "\nIndividual Results:\n" + lightRule + "\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. ", i+1)
		writeResult(&b, r, !r.Passed)
	}
	b.WriteString("\n" + heavyRule)
	return b.String()
}

// Checkpoint renders the states recorded in cp. With includeDetails false
// only the header is printed.
func Checkpoint(cp verify.Checkpoint, includeDetails bool) string {
	var b strings.Builder
	banner(&b, "CHECKPOINT: "+cp.Name)
	fmt.Fprintf(&b, "Document: %s\n", cp.Document)
	fmt.Fprintf(&b, "Timestamp: %s\n", stamp(cp.Timestamp))
	fmt.Fprintf(&b, "Formats Captured: %d\n", len(cp.States))

	if includeDetails {
		rows := make([][]string, 0, len(cp.States))
		for _, ft := range cp.Types() {
			st := cp.States[ft]
			state := "present"
			switch {
			case st.Err() != "":
				state = "error: " + st.Err()
			case !st.Present:
				state = "absent"
			}
			rows = append(rows, []string{string(ft), state, fmt.Sprint(st.Count)})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"Format", "State", "Count"}, rows, []text.Align{text.AlignLeft, text.AlignLeft, text.AlignRight}))
		b.WriteString("\n")

		for _, ft := range cp.Types() {
			st := cp.States[ft]
			if len(st.Details) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n%s:\n", ft)
			writeDetails(&b, "  ", st.Details)
		}
	}
	b.WriteString("\n" + heavyRule)
	return b.String()
}

// CheckpointComparison renders results produced by comparing the document
// recorded at after against the states recorded at before.
func CheckpointComparison(before, after verify.Checkpoint, results []verify.VerificationResult) string {
	sum := verify.Aggregate(results)

	var b strings.Builder
	banner(&b, "CHECKPOINT COMPARISON REPORT")
	fmt.Fprintf(&b, "\nBefore: %s\n  Document: %s\n  Timestamp: %s\n", before.Name, before.Document, stamp(before.Timestamp))
	fmt.Fprintf(&b, "\nAfter: %s\n  Document: %s\n  Timestamp: %s\n", after.Name, after.Document, stamp(after.Timestamp))

	fmt.Fprintf(&b, "\nVerification Results: %d/%d checks passed\n", sum.Passed, sum.Total)
	if sum.Failed > 0 {
		fmt.Fprintf(&b, "%d check(s) FAILED - format loss detected\n", sum.Failed)
	} else {
		b.WriteString("All formats preserved\n")
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		loss := "-"
		if n, ok := r.Details.Int(verify.KeyLossCount); ok {
			loss = fmt.Sprintf("%d (%s)", n, r.Details.String(verify.KeyLossRate))
		}
		rows = append(rows, []string{
			string(r.FormatType),
			r.Status(),
			count(r.Details, verify.KeyBeforeCount),
			count(r.Details, verify.KeyAfterCount),
			loss,
		})
	}
	b.WriteString("\n")
	b.WriteString(renderTable(
		[]string{"Format", "Status", "Before", "After", "Loss"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight},
	))
	b.WriteString("\n")

	for _, r := range results {
		fmt.Fprintf(&b, "\n%s %s: %s\n", r.Status(), r.FormatType, r.Message)
		if w := r.Warning(); w != "" {
			fmt.Fprintf(&b, "  Warning: %s\n", w)
		}
	}
	b.WriteString("\n" + heavyRule)
	return b.String()
}

// Pipeline renders every transition of a checkpoint run, then the failures
// in detail.
func Pipeline(p verify.PipelineResult) string {
	sum := verify.AggregatePipeline(p)

	var b strings.Builder
	banner(&b, "PIPELINE VERIFICATION REPORT")
	fmt.Fprintf(&b, "\nTotal Stages: %d\n", len(p.Transitions))
	fmt.Fprintf(&b, "Total Checks: %d\n", sum.Total)
	fmt.Fprintf(&b, "Passed: %d/%d\n", sum.Passed, sum.Total)
	if sum.Failed > 0 {
		fmt.Fprintf(&b, "FAILED: %d/%d - format loss detected in pipeline\n", sum.Failed, sum.Total)
	} else {
		b.WriteString("All format checks PASSED\n")
	}

	rows := make([][]string, 0, len(p.Transitions))
	for _, key := range p.Transitions {
		stage := verify.Aggregate(p.Results[key])
		rows = append(rows, []string{key, stage.OverallStatus, fmt.Sprintf("%d/%d", stage.Passed, stage.Total), stage.PassRate})
	}
	b.WriteString("\n")
	b.WriteString(renderTable(
		[]string{"Transition", "Status", "Passed", "Rate"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignRight},
	))
	b.WriteString("\n")

	if sum.Failed > 0 {
		b.WriteString("\n" + heavyRule + "\nFAILED CHECKS DETAIL:\n" + heavyRule + "\n")
		for _, key := range p.Transitions {
			var failed []verify.VerificationResult
			for _, r := range p.Results[key] {
				if !r.Passed {
					failed = append(failed, r)
				}
			}
			if len(failed) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n%s:\n", key)
			for _, r := range failed {
				fmt.Fprintf(&b, "  FAIL %s\n     %s\n", r.FormatType, r.Message)
				for _, k := range []string{verify.KeyBeforeCount, verify.KeyAfterCount, verify.KeyLossCount, verify.KeyLossRate, format.KeyError} {
					if v, ok := r.Details[k]; ok {
						fmt.Fprintf(&b, "     %s: %s\n", k, value(v))
					}
				}
			}
		}
	}
	b.WriteString("\n" + heavyRule)
	return b.String()
}

// CatastrophicAlert renders the response checklist for a total-loss result.
// It returns "" for results that are not catastrophic.
func CatastrophicAlert(r verify.VerificationResult) string {
	if !verify.IsCatastrophic(r) {
		return ""
	}
	bar := strings.Repeat("!", width)
	lines := []string{
		bar,
		"CATASTROPHIC FORMAT LOSS DETECTED",
		bar,
		"",
		"Format Type: " + strings.ToUpper(string(r.FormatType)),
		"Loss Rate: " + r.Details.String(verify.KeyLossRate),
	}
	if cp := r.Details.String(verify.KeyCheckpoint); cp != "" {
		lines = append(lines, "Baseline Checkpoint: "+cp)
	}
	lines = append(lines,
		"",
		"Every instance present before the stage is gone after it. The",
		"pipeline may still report success at the text level.",
		"",
		"IMMEDIATE ACTIONS REQUIRED:",
		"1. STOP all processing of this document set",
		"2. Re-examine the processing approach: text-only extraction versus structure-preserving editing of the package",
		"3. Check every intermediate artifact, not just the final output",
		"4. Consult the format-preservation remediation protocol before resuming",
		"",
		"Details: "+r.Message,
		"",
		bar,
	)
	return strings.Join(lines, "\n")
}

func banner(b *strings.Builder, title string) {
	b.WriteString(heavyRule + "\n" + title + "\n" + heavyRule + "\n")
}

func writeResult(b *strings.Builder, r verify.VerificationResult, withEvidence bool) {
	fmt.Fprintf(b, "%s %s\n", r.Status(), strings.ToUpper(string(r.FormatType)))
	fmt.Fprintf(b, "   Message: %s\n", r.Message)
	if len(r.Details) > 0 {
		b.WriteString("   Details:\n")
		writeDetails(b, "     ", r.Details)
	}
	if withEvidence && len(r.Evidence) > 0 {
		b.WriteString("   Evidence:\n")
		writeDetails(b, "     ", r.Evidence)
	}
}

// writeDetails prints d with sorted keys; nested records are indented one
// level further.
func writeDetails(b *strings.Builder, indent string, d format.Details) {
	for _, k := range d.Keys() {
		if nested, ok := asDetails(d[k]); ok {
			fmt.Fprintf(b, "%s%s:\n", indent, k)
			writeDetails(b, indent+"  ", nested)
			continue
		}
		fmt.Fprintf(b, "%s%s: %s\n", indent, k, value(d[k]))
	}
}

func asDetails(v any) (format.Details, bool) {
	switch t := v.(type) {
	case format.Details:
		return t, true
	case map[string]any:
		return format.Details(t), true
	}
	return nil, false
}

// value formats a detail value. Long lists collapse to a count followed by
// the first few items.
func value(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			items = append(items, value(item))
		}
		return list(items)
	case []string:
		return list(t)
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	}
	return fmt.Sprint(v)
}

func list(items []string) string {
	if len(items) > listPreview {
		return fmt.Sprintf("%d items [%s, ...]", len(items), strings.Join(items[:listPreview], ", "))
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func count(d format.Details, key string) string {
	if n, ok := d.Int(key); ok {
		return fmt.Sprint(n)
	}
	return "N/A"
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(timeLayout)
}

func resultTable(results []verify.VerificationResult) string {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		rows = append(rows, []string{fmt.Sprint(i + 1), string(r.FormatType), r.Status(), r.Message})
	}
	return renderTable([]string{"#", "Format", "Status", "Message"}, rows,
		[]text.Align{text.AlignRight, text.AlignLeft, text.AlignLeft, text.AlignLeft})
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
