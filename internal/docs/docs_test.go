package docs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLastReviewed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *time.Time
	}{
		{
			name:    "frontmatter date",
			content: "---\ntitle: X\nlast_reviewed: 2024-01-20\n---\n# X\n",
			want:    timePtr(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:    "frontmatter timestamp",
			content: "---\nlast_reviewed: \"2024-01-20T09:30:00Z\"\n---\nbody\n",
			want:    timePtr(time.Date(2024, 1, 20, 9, 30, 0, 0, time.UTC)),
		},
		{
			name:    "html comment",
			content: "# Title\n\n<!-- last_reviewed: 2024-02-01 -->\n",
			want:    timePtr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:    "html comment with time",
			content: "<!-- last_reviewed: 2024-02-01 10:00:00 -->\n",
			want:    timePtr(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:    "no marker",
			content: "# Title\n\nNothing here.\n",
		},
		{
			name:    "frontmatter without key",
			content: "---\ntitle: X\n---\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LastReviewed(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected no timestamp, got %v", got)
				}
				return
			}
			if got == nil || !got.Equal(*tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

const sectionDoc = `# Architecture

Intro.

## 3. Rich Problem Objects

Problems carry context.

### Details

More.

## Next Topic

Other.
`

func TestFindSection(t *testing.T) {
	tests := []struct {
		anchor    string
		wantTitle string
		wantStart int
		wantEnd   int
		found     bool
	}{
		{anchor: "3-rich-problem-objects", wantTitle: "3. Rich Problem Objects", wantStart: 5, wantEnd: 11, found: true},
		{anchor: "details", wantTitle: "Details", wantStart: 9, wantEnd: 11, found: true},
		{anchor: "next-topic", wantTitle: "Next Topic", wantStart: 13, wantEnd: 15, found: true},
		{anchor: "missing-section", found: false},
		{anchor: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.anchor, func(t *testing.T) {
			sec, ok := FindSection(sectionDoc, tt.anchor)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if !ok {
				return
			}
			if sec.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, sec.Title)
			}
			if sec.Lines.Start != tt.wantStart || sec.Lines.End != tt.wantEnd {
				t.Errorf("expected lines %d-%d, got %s", tt.wantStart, tt.wantEnd, sec.Lines)
			}
		})
	}
}

func TestFindSection_StopsAtSameLevel(t *testing.T) {
	sec, ok := FindSection(sectionDoc, "3-rich-problem-objects")
	if !ok {
		t.Fatal("section not found")
	}
	if want := "## 3. Rich Problem Objects\n\nProblems carry context.\n\n### Details\n\nMore."; sec.Content != want {
		t.Errorf("unexpected content:\n%q", sec.Content)
	}
}

func TestHeadings_SkipFencedCode(t *testing.T) {
	content := "# Real\n\n```\n# not a heading\n```\n\n## Also real\n"
	hs := Headings(content)
	if len(hs) != 2 {
		t.Fatalf("expected 2 headings, got %d: %+v", len(hs), hs)
	}
	if hs[1].Title != "Also real" || hs[1].Level != 2 {
		t.Errorf("unexpected second heading: %+v", hs[1])
	}
}

func TestFSReader(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "---\nlast_reviewed: 2024-03-01\n---\n# X\n"
	if err := os.WriteFile(filepath.Join(dir, "docs", "X.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewFSReader(dir)
	doc, err := Load(r, "docs/X.md")
	if err != nil {
		t.Fatal(err)
	}
	if doc.LastReviewed == nil || doc.LastReviewed.Day() != 1 {
		t.Errorf("unexpected last_reviewed: %v", doc.LastReviewed)
	}

	if _, err := r.Read("docs/missing.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
