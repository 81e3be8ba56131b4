// Package testsupport builds minimal .docx packages for tests.
package testsupport

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

// WriteDocx zips parts (part name → XML) into dir/name and returns the path.
func WriteDocx(t testing.TB, dir, name string, parts map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	w := zip.NewWriter(f)
	for part, content := range parts {
		fw, err := w.Create(part)
		if err != nil {
			t.Fatalf("create part %s: %v", part, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write part %s: %v", part, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	return path
}

// DocumentXML wraps body paragraphs in a w:document element.
func DocumentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`
}

// RevisionsBody returns paragraphs holding ins insertions and del deletions.
func RevisionsBody(ins, del int) string {
	var b strings.Builder
	b.WriteString(`<w:p><w:r><w:t>This is normal text without any changes.</w:t></w:r></w:p>`)
	for i := 0; i < ins; i++ {
		fmt.Fprintf(&b, `<w:p><w:r><w:t xml:space="preserve">Sentence has </w:t></w:r>`+
			`<w:ins w:id="%d" w:author="Test User" w:date="2025-11-02T10:00:00Z">`+
			`<w:r><w:t>inserted text %d</w:t></w:r></w:ins></w:p>`, i, i+1)
	}
	for i := 0; i < del; i++ {
		fmt.Fprintf(&b, `<w:p><w:r><w:t xml:space="preserve">Sentence has </w:t></w:r>`+
			`<w:del w:id="%d" w:author="Test User" w:date="2025-11-02T10:00:00Z">`+
			`<w:r><w:delText>deleted text %d</w:delText></w:r></w:del></w:p>`, ins+i, i+1)
	}
	return b.String()
}

// CommentsXML returns a comments part with n comments, assigned to authors
// round-robin.
func CommentsXML(n int, authors ...string) string {
	if len(authors) == 0 {
		authors = []string{"Reviewer"}
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:comments ` + wordNS + `>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<w:comment w:id="%d" w:author="%s" w:date="2025-11-02T10:00:00Z">`+
			`<w:p><w:r><w:t>Comment number %d</w:t></w:r></w:p></w:comment>`, i, authors[i%len(authors)], i+1)
	}
	b.WriteString(`</w:comments>`)
	return b.String()
}

// TrackChangesDocx writes a document with ins insertions and del deletions.
func TrackChangesDocx(t testing.TB, dir, name string, ins, del int) string {
	t.Helper()
	return WriteDocx(t, dir, name, map[string]string{
		"word/document.xml": DocumentXML(RevisionsBody(ins, del)),
	})
}

// CommentedDocx writes a document with n comments by the given authors.
func CommentedDocx(t testing.TB, dir, name string, n int, authors ...string) string {
	t.Helper()
	return WriteDocx(t, dir, name, map[string]string{
		"word/document.xml": DocumentXML(RevisionsBody(0, 0)),
		"word/comments.xml": CommentsXML(n, authors...),
	})
}
