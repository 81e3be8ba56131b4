// Package docx inspects WordprocessingML packages (.docx) for the structural
// markup the verification engine tracks: revisions, comments, tables,
// headings, hyperlinks, images and styles.
//
// Every inspector opens the package, streams the relevant XML part and
// closes the package again before returning. Nothing is written.
package docx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cgast/docverify/pkg/format"
)

const (
	partDocument = "word/document.xml"
	partComments = "word/comments.xml"
	partStyles   = "word/styles.xml"
	mediaPrefix  = "word/media/"

	nsW       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsWStrict = "http://purl.oclc.org/ooxml/wordprocessingml/main"

	// Nesting deeper than this is treated as a malformed (or hostile) part.
	maxDepth = 256

	maxSamples    = 3
	maxSampleRune = 120
)

// errPartMissing marks a part that is absent from an otherwise valid package.
var errPartMissing = errors.New("part not found")

// pkg is an open document package.
type pkg struct {
	zr *zip.ReadCloser
}

func openPackage(path string) (*pkg, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open package %s: %v", format.ErrDocumentUnreadable, path, err)
	}
	return &pkg{zr: zr}, nil
}

func (p *pkg) Close() error { return p.zr.Close() }

func (p *pkg) part(name string) *zip.File {
	for _, f := range p.zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// countPrefix returns how many parts live under prefix.
func (p *pkg) countPrefix(prefix string) int {
	n := 0
	for _, f := range p.zr.File {
		if strings.HasPrefix(f.Name, prefix) && !strings.HasSuffix(f.Name, "/") {
			n++
		}
	}
	return n
}

// walk streams every token of the named part into visit. A missing part
// yields errPartMissing; malformed XML yields ErrDocumentUnreadable.
func (p *pkg) walk(name string, visit func(xml.Token)) error {
	f := p.part(name)
	if f == nil {
		return fmt.Errorf("%s: %w", name, errPartMissing)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", format.ErrDocumentUnreadable, name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: parse %s: %v", format.ErrDocumentUnreadable, name, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxDepth {
				return fmt.Errorf("%w: %s exceeds maximum nesting depth %d", format.ErrDocumentUnreadable, name, maxDepth)
			}
		case xml.EndElement:
			depth--
		}
		visit(tok)
	}
}

// withPart opens path, walks one part and closes the package.
func withPart(path, name string, visit func(xml.Token)) error {
	p, err := openPackage(path)
	if err != nil {
		return err
	}
	defer p.Close()
	return p.walk(name, visit)
}

// isW reports whether n is the WordprocessingML element local. Parts written
// without a namespace declaration keep the raw "w" prefix as their space.
func isW(n xml.Name, local string) bool {
	if n.Local != local {
		return false
	}
	switch n.Space {
	case nsW, nsWStrict, "w":
		return true
	}
	return false
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func sample(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > maxSampleRune {
		return string(r[:maxSampleRune]) + "…"
	}
	return s
}

// unreadable promotes a missing required part to an unreadable document.
func unreadable(err error) error {
	if errors.Is(err, errPartMissing) {
		return fmt.Errorf("%w: %v", format.ErrDocumentUnreadable, err)
	}
	return err
}
