// Package format defines the structural markup categories that can be
// inspected inside a document package, the state an inspector reports for
// one category, and the registry that maps each category to its inspector.
package format

import (
	"fmt"
	"sort"
	"strings"
)

// FormatType identifies one inspectable markup category.
type FormatType string

const (
	TrackChanges FormatType = "track_changes"
	Comments     FormatType = "comments"
	Tables       FormatType = "tables"
	Headings     FormatType = "headings"
	Hyperlinks   FormatType = "hyperlinks"
	Images       FormatType = "images"
	Styles       FormatType = "styles"
)

var known = []FormatType{
	TrackChanges,
	Comments,
	Tables,
	Headings,
	Hyperlinks,
	Images,
	Styles,
}

// DefaultTypes are the editorial categories checked when a caller does not
// name any.
var DefaultTypes = []FormatType{TrackChanges, Comments}

// Known returns every format type this package defines, in declaration order.
func Known() []FormatType {
	out := make([]FormatType, len(known))
	copy(out, known)
	return out
}

// ParseFormatType resolves a name such as "track_changes" to its FormatType.
func ParseFormatType(s string) (FormatType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, ft := range known {
		if string(ft) == name {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown format type %q", s)
}

// ParseFormatTypes resolves a list of names, failing on the first unknown one.
func ParseFormatTypes(names []string) ([]FormatType, error) {
	out := make([]FormatType, 0, len(names))
	for _, n := range names {
		ft, err := ParseFormatType(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	return out, nil
}

func (f FormatType) String() string { return string(f) }

// FormatState is what an inspector reports for one format type in one
// document. Present must equal Count > 0.
type FormatState struct {
	Present bool    `json:"present"`
	Count   int     `json:"count"`
	Details Details `json:"details"`
}

// Absent returns a state for a feature that is simply not in the document.
func Absent(details Details) FormatState {
	if details == nil {
		details = Details{}
	}
	return FormatState{Details: details}
}

// Found returns a state for count instances of a feature.
func Found(count int, details Details) FormatState {
	if details == nil {
		details = Details{}
	}
	return FormatState{Present: count > 0, Count: count, Details: details}
}

// ErrorState records an inspection failure. The state is never present, and
// details carry the error code and message.
func ErrorState(err error) FormatState {
	return FormatState{
		Details: Details{
			KeyError:        Code(err),
			KeyErrorMessage: err.Error(),
		},
	}
}

// Err returns the error code recorded by ErrorState, or "" when the
// inspection succeeded.
func (s FormatState) Err() string {
	return s.Details.String(KeyError)
}

// Consistent reports whether Present agrees with Count.
func (s FormatState) Consistent() bool {
	return s.Count >= 0 && s.Present == (s.Count > 0)
}

// SortTypes orders fts in place: known types in declaration order first,
// then any others alphabetically.
func SortTypes(fts []FormatType) {
	rank := func(ft FormatType) int {
		for i, k := range known {
			if k == ft {
				return i
			}
		}
		return len(known)
	}
	sort.SliceStable(fts, func(i, j int) bool {
		ri, rj := rank(fts[i]), rank(fts[j])
		if ri != rj {
			return ri < rj
		}
		return fts[i] < fts[j]
	})
}
