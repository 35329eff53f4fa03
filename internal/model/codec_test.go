package model

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleMap = `version: 1
hierarchy:
  requires_human:
    - docs/IDENTITY.md
  technical:
    - docs/ARCHITECTURE.md
settings:
  line_tolerance: 5
  fuzzy_match: true
mappings:
  - file: src/a.py
    blocks:
      - name: Foo
        id: foo
        lines: 10-20
        last_updated: 2024-01-15T10:30:00
        last_update_comment: Initial mapping
        aligned_with:
          - docs/ARCHITECTURE.md#foo
  - file: docs/ARCHITECTURE.md
    blocks:
      - name: Foo section
        lines: "1-40"
        last_reviewed: 2024-01-20 09:00:00
        aligned_with:
          - docs/IDENTITY.md
          - src/a.py#foo
`

func TestDecode_Sample(t *testing.T) {
	m, err := Decode([]byte(sampleMap))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if m.Version != 1 {
		t.Errorf("expected version 1, got %d", m.Version)
	}
	if m.Settings.LineTolerance != 5 {
		t.Errorf("expected tolerance 5, got %d", m.Settings.LineTolerance)
	}
	if !m.Settings.RespectGitignore {
		t.Error("absent respect_gitignore should default to true")
	}

	fm, ok := m.Mapping("src/a.py")
	if !ok {
		t.Fatal("mapping for src/a.py missing")
	}
	foo, _ := fm.Block("Foo")
	if foo.Lines != MustLineRange(10, 20) {
		t.Errorf("unexpected lines %s", foo.Lines)
	}
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if foo.LastUpdated == nil || !foo.LastUpdated.Equal(want) {
		t.Errorf("expected last_updated %v, got %v", want, foo.LastUpdated)
	}

	doc, _ := m.Mapping("docs/ARCHITECTURE.md")
	sec, _ := doc.Block("Foo section")
	if len(sec.AlignedWith) != 2 || sec.AlignedWith[0].IsCode() || !sec.AlignedWith[1].IsCode() {
		t.Errorf("references not classified: %+v", sec.AlignedWith)
	}
	if sec.AlignedWith[1].BlockID() != "foo" {
		t.Errorf("expected code ref to block foo, got %q", sec.AlignedWith[1].BlockID())
	}
}

func TestEncode_RoundTripIsIdempotent(t *testing.T) {
	m, err := Decode([]byte(sampleMap))
	if err != nil {
		t.Fatal(err)
	}

	first, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	reloaded, err := Decode(first)
	if err != nil {
		t.Fatalf("re-decode failed: %v\n%s", err, first)
	}
	second, err := Encode(reloaded)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Errorf("round trip not idempotent:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(string(first), "lines: 10-20") {
		t.Errorf("line range not rendered as start-end:\n%s", first)
	}
}

func TestDecode_CollectsAllProblems(t *testing.T) {
	doc := `version: 1
mappings:
  - file: src/a.py
    blocks:
      - name: A
        lines: 20-10
      - lines: 1-5
      - name: C
        lines: 30-40
        last_updated: yesterday
`
	_, err := Decode([]byte(doc))
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", len(schemaErr.Problems), schemaErr)
	}

	fields := make(map[string]bool)
	for _, p := range schemaErr.Problems {
		fields[p.Field] = true
	}
	for _, f := range []string{
		"mappings[0].blocks[0].lines",
		"mappings[0].blocks[1].name",
		"mappings[0].blocks[2].last_updated",
	} {
		if !fields[f] {
			t.Errorf("missing problem for %s in %v", f, schemaErr)
		}
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing version", doc: "mappings: []\n"},
		{name: "unknown field", doc: "version: 1\nsurprise: true\n"},
		{name: "negative tolerance", doc: "version: 1\nsettings:\n  line_tolerance: -1\n"},
		{name: "duplicate file", doc: "version: 1\nmappings:\n  - file: a.go\n  - file: a.go\n"},
		{name: "same glob in both tiers", doc: "version: 1\nhierarchy:\n  requires_human: [docs/A.md]\n  technical: [docs/A.md]\n"},
		{name: "empty document", doc: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var schemaErr *SchemaError
			if _, err := Decode([]byte(tt.doc)); !errors.As(err, &schemaErr) {
				t.Errorf("expected SchemaError, got %v", err)
			}
		})
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultMapFile)
	if err := os.WriteFile(path, []byte(sampleMap), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	root, err := m.ProjectRoot()
	if err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(dir)
	if root != abs {
		t.Errorf("expected root %s, got %s", abs, root)
	}

	if err := Save(m, path); err != nil {
		t.Fatal(err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload after save failed: %v", err)
	}
	if len(again.Mappings) != 2 {
		t.Errorf("expected 2 mappings after reload, got %d", len(again.Mappings))
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{input: "2024-01-01", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{input: "2024-01-01T10:00:00", want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{input: "2024-01-01 10:00:00", want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{input: "2024-01-01T10:00:00.123456", want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{input: "2024-01-01T12:00:00+02:00", want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{input: "2024-01-01T10:00:00Z", want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, err := ParseTimestamp("not a date"); err == nil {
		t.Error("expected error for garbage input")
	}
}
