package verify

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cgast/docverify/internal/testsupport"
	"github.com/cgast/docverify/pkg/events"
	"github.com/cgast/docverify/pkg/format"
)

// Three-stage pipeline where the final stage strips tracked changes.
func TestManagerPipelineLocalizesLoss(t *testing.T) {
	dir := t.TempDir()
	pre := testsupport.TrackChangesDocx(t, dir, "pre.docx", 3, 2)
	mid := testsupport.TrackChangesDocx(t, dir, "mid.docx", 3, 2)
	post := testsupport.TrackChangesDocx(t, dir, "post.docx", 0, 0)

	engine, bus := newTestEngine(t)
	m := NewManager(engine)
	for _, step := range []struct{ path, name string }{
		{pre, "pre"}, {mid, "mid"}, {post, "post"},
	} {
		if _, err := m.AddCheckpoint(step.path, step.name, format.TrackChanges); err != nil {
			t.Fatalf("AddCheckpoint(%s): %v", step.name, err)
		}
	}

	res, err := m.VerifyAll()
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	want := []string{"pre→mid", "mid→post"}
	if !reflect.DeepEqual(res.Transitions, want) {
		t.Fatalf("Transitions = %v, want %v", res.Transitions, want)
	}

	first := res.Results["pre→mid"]
	if len(first) != 1 || !first[0].Passed {
		t.Errorf("pre→mid: %v", first)
	}
	second := res.Results["mid→post"]
	if len(second) != 1 || second[0].Passed {
		t.Fatalf("mid→post: %v", second)
	}
	if !IsCatastrophic(second[0]) {
		t.Errorf("mid→post should be a total loss: %v", second[0].Details)
	}
	if !strings.Contains(second[0].Message, "lost after checkpoint 'mid'") {
		t.Errorf("Message = %q", second[0].Message)
	}

	sum := AggregatePipeline(res)
	if sum.OK() || sum.Total != 2 || sum.Failed != 1 || sum.PassRate != "50.0%" {
		t.Errorf("pipeline summary = %+v", sum)
	}

	if got := bus.Count(events.EventCheckpointCreated); got != 3 {
		t.Errorf("checkpoint.created events = %d, want 3", got)
	}
	if got := bus.Count(events.EventTransitionVerified); got != 2 {
		t.Errorf("transition events = %d, want 2", got)
	}
	for _, e := range bus.History(time.Time{}) {
		if e.Run != m.RunID() {
			t.Errorf("%s event run = %q, want %q", e.Type, e.Run, m.RunID())
		}
	}
}

func TestManagerTransitionCount(t *testing.T) {
	dir := t.TempDir()
	doc := testsupport.CommentedDocx(t, dir, "doc.docx", 2)
	engine, _ := newTestEngine(t)

	for n := 0; n <= 4; n++ {
		m := NewManager(engine)
		for i := 0; i < n; i++ {
			if _, err := m.AddCheckpoint(doc, string(rune('a'+i))); err != nil {
				t.Fatal(err)
			}
		}
		res, err := m.VerifyAll()
		if err != nil {
			t.Fatal(err)
		}
		want := n - 1
		if n == 0 {
			want = 0
		}
		if len(res.Transitions) != want || len(res.Results) != want {
			t.Errorf("%d checkpoints: %d transitions, want %d", n, len(res.Transitions), want)
		}
	}
}

func TestManagerOverwriteKeepsPosition(t *testing.T) {
	dir := t.TempDir()
	a := testsupport.CommentedDocx(t, dir, "a.docx", 2)
	b := testsupport.CommentedDocx(t, dir, "b.docx", 5)

	m := NewManager(NewEngine(mustRegistry(t)))
	for _, name := range []string{"pre", "mid", "post"} {
		if _, err := m.AddCheckpoint(a, name); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.AddCheckpoint(b, "pre"); err != nil {
		t.Fatal(err)
	}

	if got := m.Order(); !reflect.DeepEqual(got, []string{"pre", "mid", "post"}) {
		t.Errorf("Order = %v", got)
	}
	cp, err := m.Checkpoint("pre")
	if err != nil {
		t.Fatal(err)
	}
	if cp.Document != b || cp.States[format.Comments].Count != 5 {
		t.Errorf("overwritten checkpoint = %+v", cp)
	}
}

func TestManagerUnknownCheckpoint(t *testing.T) {
	dir := t.TempDir()
	doc := testsupport.CommentedDocx(t, dir, "doc.docx", 1)
	m := NewManager(NewEngine(mustRegistry(t)))
	if _, err := m.AddCheckpoint(doc, "pre"); err != nil {
		t.Fatal(err)
	}

	if _, err := m.VerifyBetween("pre", "post"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("VerifyBetween err = %v, want ErrCheckpointNotFound", err)
	}
	if _, err := m.VerifyBetween("nope", "pre"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("VerifyBetween err = %v, want ErrCheckpointNotFound", err)
	}
	if _, err := m.Checkpoint("nope"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("Checkpoint err = %v, want ErrCheckpointNotFound", err)
	}
}

// The baseline document is never reopened once its checkpoint exists.
func TestManagerBaselineMayBeRemoved(t *testing.T) {
	dir := t.TempDir()
	pre := testsupport.CommentedDocx(t, dir, "pre.docx", 3, "Ada")
	post := testsupport.CommentedDocx(t, dir, "post.docx", 3, "Ada")

	m := NewManager(NewEngine(mustRegistry(t)))
	if _, err := m.AddCheckpoint(pre, "pre"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddCheckpoint(post, "post"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(pre); err != nil {
		t.Fatal(err)
	}

	results, err := m.VerifyBetween("pre", "post")
	if err != nil {
		t.Fatal(err)
	}
	if !Aggregate(results).OK() {
		t.Errorf("results = %v", results)
	}
}

func TestManagerCheckpointsAreCopies(t *testing.T) {
	dir := t.TempDir()
	doc := testsupport.CommentedDocx(t, dir, "doc.docx", 2)
	m := NewManager(NewEngine(mustRegistry(t)))
	cp, err := m.AddCheckpoint(doc, "pre")
	if err != nil {
		t.Fatal(err)
	}
	cp.States[format.Comments] = format.Absent(nil)

	again, _ := m.Checkpoint("pre")
	if !again.States[format.Comments].Present {
		t.Error("mutating a returned checkpoint changed the manager's copy")
	}
}

func TestManagerSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pre := testsupport.WriteDocx(t, dir, "pre.docx", map[string]string{
		"word/document.xml": testsupport.DocumentXML(testsupport.RevisionsBody(2, 1)),
		"word/comments.xml": testsupport.CommentsXML(3, "Ada", "Lin"),
	})
	post := testsupport.TrackChangesDocx(t, dir, "post.docx", 0, 0)
	corrupt := filepath.Join(dir, "corrupt.docx")
	if err := os.WriteFile(corrupt, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine, bus := newTestEngine(t)
	m := NewManager(engine)
	if _, err := m.AddCheckpoint(pre, "pre", format.Known()...); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddCheckpoint(post, "post"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddCheckpoint(corrupt, "broken"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "run.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadManager(engine, path)
	if err != nil {
		t.Fatalf("LoadManager: %v", err)
	}

	if loaded.RunID() != m.RunID() {
		t.Errorf("RunID = %q, want %q", loaded.RunID(), m.RunID())
	}
	if !reflect.DeepEqual(loaded.Order(), m.Order()) {
		t.Errorf("Order = %v, want %v", loaded.Order(), m.Order())
	}
	got, want := loaded.Checkpoints(), m.Checkpoints()
	for i := range want {
		if !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("%s: timestamp %v, want %v", want[i].Name, got[i].Timestamp, want[i].Timestamp)
		}
		if !reflect.DeepEqual(got[i].States, want[i].States) {
			t.Errorf("%s: states differ after round trip\n got %#v\nwant %#v", want[i].Name, got[i].States, want[i].States)
		}
	}

	broken, _ := loaded.Checkpoint("broken")
	if broken.States[format.TrackChanges].Err() != format.CodeDocumentUnreadable {
		t.Errorf("error state lost in round trip: %+v", broken.States[format.TrackChanges])
	}

	res, err := loaded.VerifyAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transitions) != 2 {
		t.Errorf("Transitions = %v", res.Transitions)
	}
	if bus.Count(events.EventRunSaved) != 1 || bus.Count(events.EventRunLoaded) != 1 {
		t.Errorf("run events saved=%d loaded=%d", bus.Count(events.EventRunSaved), bus.Count(events.EventRunLoaded))
	}
}

func TestRestoreManagerRejectsInconsistentSnapshot(t *testing.T) {
	cp := Checkpoint{Name: "a", States: map[format.FormatType]format.FormatState{}}
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"duplicate order", Snapshot{Order: []string{"a", "a"}, Checkpoints: map[string]Checkpoint{"a": cp}}},
		{"order names unknown checkpoint", Snapshot{Order: []string{"a", "b"}, Checkpoints: map[string]Checkpoint{"a": cp}}},
		{"orphan checkpoint", Snapshot{Order: nil, Checkpoints: map[string]Checkpoint{"a": cp}}},
		{"future version", Snapshot{Version: SnapshotVersion + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RestoreManager(NewEngine(mustRegistry(t)), tt.snap); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadManagerMissingFile(t *testing.T) {
	_, err := LoadManager(NewEngine(mustRegistry(t)), filepath.Join(t.TempDir(), "none.json"))
	if err == nil {
		t.Error("expected error for missing run file")
	}
}

func mustRegistry(t *testing.T) *format.Registry {
	t.Helper()
	engine, _ := newTestEngine(t)
	return engine.Registry()
}
