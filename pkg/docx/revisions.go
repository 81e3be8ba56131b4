package docx

import (
	"encoding/xml"
	"strings"

	"github.com/cgast/docverify/pkg/format"
)

// Changes lists the text carried by each insertion and deletion span.
type Changes struct {
	Insertions []string `json:"insertions"`
	Deletions  []string `json:"deletions"`
}

// revisionScan counts w:ins / w:del spans in document.xml and collects the
// text of up to limit spans of each kind (all of them when limit < 0).
type revisionScan struct {
	limit      int
	insertions int
	deletions  int
	insOpen    int
	delOpen    int
	inText     bool
	insText    strings.Builder
	delText    strings.Builder
	changes    Changes
}

func (s *revisionScan) visit(tok xml.Token) {
	switch t := tok.(type) {
	case xml.StartElement:
		switch {
		case isW(t.Name, "ins"):
			s.insertions++
			if s.insOpen == 0 {
				s.insText.Reset()
			}
			s.insOpen++
		case isW(t.Name, "del"):
			s.deletions++
			if s.delOpen == 0 {
				s.delText.Reset()
			}
			s.delOpen++
		case isW(t.Name, "t"), isW(t.Name, "delText"):
			s.inText = true
		}
	case xml.CharData:
		if !s.inText {
			return
		}
		if s.insOpen > 0 {
			s.insText.Write(t)
		}
		if s.delOpen > 0 {
			s.delText.Write(t)
		}
	case xml.EndElement:
		switch {
		case isW(t.Name, "ins") && s.insOpen > 0:
			s.insOpen--
			if s.insOpen == 0 {
				s.changes.Insertions = s.keep(s.changes.Insertions, s.insText.String())
			}
		case isW(t.Name, "del") && s.delOpen > 0:
			s.delOpen--
			if s.delOpen == 0 {
				s.changes.Deletions = s.keep(s.changes.Deletions, s.delText.String())
			}
		case isW(t.Name, "t"), isW(t.Name, "delText"):
			s.inText = false
		}
	}
}

func (s *revisionScan) keep(list []string, text string) []string {
	if strings.TrimSpace(text) == "" {
		return list
	}
	if s.limit >= 0 && len(list) >= s.limit {
		return list
	}
	if s.limit >= 0 {
		text = sample(text)
	}
	return append(list, text)
}

func scanRevisions(path string, limit int) (*revisionScan, error) {
	s := &revisionScan{limit: limit}
	if err := withPart(path, partDocument, s.visit); err != nil {
		// A package without its main document part cannot be a valid
		// word-processing document.
		return nil, unreadable(err)
	}
	return s, nil
}

// InspectTrackChanges counts revision markup (insertions plus deletions).
func InspectTrackChanges(path string) (format.FormatState, error) {
	s, err := scanRevisions(path, maxSamples)
	if err != nil {
		return format.FormatState{}, err
	}

	total := s.insertions + s.deletions
	return format.Found(total, format.Details{
		"insertion_count":   s.insertions,
		"deletion_count":    s.deletions,
		"total_count":       total,
		"insertion_samples": nonNil(s.changes.Insertions),
		"deletion_samples":  nonNil(s.changes.Deletions),
	}), nil
}

// ExtractTrackChangesText returns the full text of every insertion and
// deletion span, for inspecting what a pipeline stage dropped.
func ExtractTrackChangesText(path string) (Changes, error) {
	s, err := scanRevisions(path, -1)
	if err != nil {
		return Changes{}, err
	}
	return Changes{
		Insertions: nonNil(s.changes.Insertions),
		Deletions:  nonNil(s.changes.Deletions),
	}, nil
}

// HasTrackChanges is a quick presence check; unreadable packages report false.
func HasTrackChanges(path string) bool {
	st, err := InspectTrackChanges(path)
	return err == nil && st.Present
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
