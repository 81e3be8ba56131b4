package docx

import (
	"encoding/xml"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/cgast/docverify/pkg/format"
)

// InspectTables counts w:tbl elements, nested tables included.
func InspectTables(path string) (format.FormatState, error) {
	var tables, rows int
	err := withPart(path, partDocument, func(tok xml.Token) {
		if t, ok := tok.(xml.StartElement); ok {
			switch {
			case isW(t.Name, "tbl"):
				tables++
			case isW(t.Name, "tr"):
				rows++
			}
		}
	})
	if err != nil {
		return format.FormatState{}, unreadable(err)
	}
	return format.Found(tables, format.Details{
		"table_count": tables,
		"row_count":   rows,
	}), nil
}

// InspectHeadings counts paragraphs styled as a title or heading.
func InspectHeadings(path string) (format.FormatState, error) {
	var (
		count   int
		levels  = make(map[string]int)
		samples []string
		inPara  bool
		inText  bool
		style   string
		text    strings.Builder
	)
	err := withPart(path, partDocument, func(tok xml.Token) {
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isW(t.Name, "p"):
				inPara = true
				style = ""
				text.Reset()
			case isW(t.Name, "pStyle") && inPara:
				style = attr(t, "val")
			case isW(t.Name, "t") && inPara:
				inText = true
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case isW(t.Name, "t"):
				inText = false
			case isW(t.Name, "p") && inPara:
				inPara = false
				level := headingLevel(style)
				if level == 0 {
					return
				}
				count++
				levels[strconv.Itoa(level)]++
				if s := sample(text.String()); s != "" && len(samples) < maxSamples {
					samples = append(samples, s)
				}
			}
		}
	})
	if err != nil {
		return format.FormatState{}, unreadable(err)
	}
	return format.Found(count, format.Details{
		"heading_count":   count,
		"levels":          levels,
		"heading_samples": nonNil(samples),
	}), nil
}

// headingLevel maps a paragraph style id to a heading level, 0 for body text.
// "Heading1" → 1, "Title" → 1, "Subtitle" → 2, localized "Titre2" → 2.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			rest = strings.TrimSpace(rest)
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

// InspectHyperlinks counts w:hyperlink elements, split by target kind.
func InspectHyperlinks(path string) (format.FormatState, error) {
	var external, internal int
	err := withPart(path, partDocument, func(tok xml.Token) {
		if t, ok := tok.(xml.StartElement); ok && isW(t.Name, "hyperlink") {
			if attr(t, "anchor") != "" && attr(t, "id") == "" {
				internal++
			} else {
				external++
			}
		}
	})
	if err != nil {
		return format.FormatState{}, unreadable(err)
	}
	total := external + internal
	return format.Found(total, format.Details{
		"hyperlink_count": total,
		"external_count":  external,
		"internal_count":  internal,
	}), nil
}

// InspectImages counts drawings placed in the body. Media parts with no
// drawing referencing them do not make images present.
func InspectImages(path string) (format.FormatState, error) {
	p, err := openPackage(path)
	if err != nil {
		return format.FormatState{}, err
	}
	defer p.Close()

	var drawings, pictures int
	err = p.walk(partDocument, func(tok xml.Token) {
		if t, ok := tok.(xml.StartElement); ok {
			switch {
			case isW(t.Name, "drawing"):
				drawings++
			case isW(t.Name, "pict"):
				pictures++
			}
		}
	})
	if err != nil {
		return format.FormatState{}, unreadable(err)
	}
	total := drawings + pictures
	return format.Found(total, format.Details{
		"drawing_count": drawings,
		"picture_count": pictures,
		"media_parts":   p.countPrefix(mediaPrefix),
	}), nil
}

// InspectStyles counts style definitions in word/styles.xml.
func InspectStyles(path string) (format.FormatState, error) {
	var (
		count  int
		custom int
		types  = make(map[string]int)
	)
	err := withPart(path, partStyles, func(tok xml.Token) {
		t, ok := tok.(xml.StartElement)
		if !ok || !isW(t.Name, "style") {
			return
		}
		count++
		if v := attr(t, "customStyle"); v == "1" || v == "true" {
			custom++
		}
		if typ := attr(t, "type"); typ != "" {
			types[typ]++
		}
	})
	if errors.Is(err, errPartMissing) {
		return format.Absent(format.Details{format.KeyNote: "no_styles_file"}), nil
	}
	if err != nil {
		return format.FormatState{}, err
	}
	return format.Found(count, format.Details{
		"style_count":  count,
		"custom_count": custom,
		"types":        sortedCounts(types),
	}), nil
}

// sortedCounts renders a count map as "key=n" pairs in key order, which
// keeps rendered details stable.
func sortedCounts(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+strconv.Itoa(m[k]))
	}
	return out
}
