package docx

import (
	"encoding/xml"
	"errors"
	"sort"
	"strings"

	"github.com/cgast/docverify/pkg/format"
)

// InspectComments counts review comments in word/comments.xml. A package
// without that part simply has no comments.
func InspectComments(path string) (format.FormatState, error) {
	var (
		count     int
		authors   = make(map[string]bool)
		samples   []string
		inComment bool
		inText    bool
		para      strings.Builder
		paras     []string
	)

	err := withPart(path, partComments, func(tok xml.Token) {
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isW(t.Name, "comment"):
				count++
				inComment = true
				paras = paras[:0]
				para.Reset()
				if a := attr(t, "author"); a != "" {
					authors[a] = true
				}
			case isW(t.Name, "t") && inComment:
				inText = true
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch {
			case isW(t.Name, "t"):
				inText = false
			case isW(t.Name, "p") && inComment:
				if s := strings.TrimSpace(para.String()); s != "" {
					paras = append(paras, s)
				}
				para.Reset()
			case isW(t.Name, "comment") && inComment:
				inComment = false
				if s := strings.TrimSpace(para.String()); s != "" {
					paras = append(paras, s)
				}
				if text := strings.Join(paras, " "); text != "" && len(samples) < maxSamples {
					samples = append(samples, sample(text))
				}
			}
		}
	})
	if errors.Is(err, errPartMissing) {
		return format.Absent(format.Details{format.KeyNote: "no_comments_file"}), nil
	}
	if err != nil {
		return format.FormatState{}, err
	}

	names := make([]string, 0, len(authors))
	for a := range authors {
		names = append(names, a)
	}
	sort.Strings(names)

	return format.Found(count, format.Details{
		"comment_count":   count,
		"unique_authors":  names,
		"author_count":    len(names),
		"comment_samples": nonNil(samples),
	}), nil
}

// HasComments is a quick presence check; unreadable packages report false.
func HasComments(path string) bool {
	st, err := InspectComments(path)
	return err == nil && st.Present
}
