package trace

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/model"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fixture(t *testing.T) (*model.AlignmentMap, docs.Reader) {
	t.Helper()
	m := model.New()
	m.Hierarchy = model.Hierarchy{RequiresHuman: []string{"docs/IDENTITY.md", "docs/DESIGN.md"}}
	add := func(file string, b model.Block) {
		if err := m.AddBlock(file, b); err != nil {
			t.Fatal(err)
		}
	}
	add("src/api.py", model.Block{
		Name:        "Handler",
		Lines:       model.MustLineRange(1, 20),
		LastUpdated: date(2024, 3, 1),
		AlignedWith: model.ParseRefs([]string{"docs/API.md#handlers", "src/store.py#store"}),
	})
	add("src/api.py", model.Block{
		Name:        "Router",
		Lines:       model.MustLineRange(30, 40),
		LastUpdated: date(2024, 1, 1),
		AlignedWith: model.ParseRefs([]string{"docs/API.md#handlers", "docs/Missing.md"}),
	})
	add("docs/API.md", model.Block{
		Name:        "Handlers section",
		Lines:       model.MustLineRange(1, 10),
		AlignedWith: model.ParseRefs([]string{"docs/DESIGN.md"}),
	})
	add("docs/DESIGN.md", model.Block{
		Name:        "Principles",
		Lines:       model.MustLineRange(1, 10),
		AlignedWith: model.ParseRefs([]string{"docs/IDENTITY.md"}),
	})

	reader := docs.MapReader{
		"docs/API.md":      "---\nlast_reviewed: 2024-02-01\n---\n# API\n\n## Handlers\n\nHandlers explained.\n\n## Other\n\nNot this.\n",
		"docs/DESIGN.md":   "# Design\n",
		"docs/IDENTITY.md": "# Identity\n",
	}
	return m, reader
}

func TestLocate_Line(t *testing.T) {
	m, reader := fixture(t)
	tr, err := Locate(m, reader, "src/api.py", 5)
	if err != nil {
		t.Fatal(err)
	}

	if len(tr.Blocks) != 1 || tr.Blocks[0].Name != "Handler" {
		t.Fatalf("expected only Handler, got %+v", tr.Blocks)
	}
	if len(tr.Documents) != 1 {
		t.Fatalf("code refs are not documents, got %+v", tr.Documents)
	}
	doc := tr.Documents[0]
	if !strings.Contains(doc.Section, "Handlers explained.") || strings.Contains(doc.Section, "Not this.") {
		t.Errorf("unexpected section %q", doc.Section)
	}
	if len(tr.Staleness) != 1 || !tr.Staleness[0].Stale || !tr.AnyStale() {
		t.Errorf("expected stale API.md, got %+v", tr.Staleness)
	}

	var got []string
	for _, h := range tr.Hierarchy {
		got = append(got, string(h.Level)+":"+h.Document)
	}
	want := "identity:docs/IDENTITY.md design:docs/DESIGN.md technical:docs/API.md"
	if strings.Join(got, " ") != want {
		t.Errorf("hierarchy = %v, want %s", got, want)
	}
	if !tr.Hierarchy[0].RequiresHuman || tr.Hierarchy[2].RequiresHuman {
		t.Errorf("unexpected tiers %+v", tr.Hierarchy)
	}
}

func TestLocate_WholeFile(t *testing.T) {
	m, reader := fixture(t)
	tr, err := Locate(m, reader, "src/api.py", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Blocks) != 2 {
		t.Fatalf("expected both blocks, got %d", len(tr.Blocks))
	}
	if len(tr.Documents) != 2 {
		t.Errorf("expected API.md once plus Missing.md, got %+v", tr.Documents)
	}
	if tr.Documents[1].Exists {
		t.Error("Missing.md should not exist")
	}
	// Router was updated before the review, Handler after it
	if len(tr.Staleness) != 2 || !tr.Staleness[0].Stale || tr.Staleness[1].Stale {
		t.Errorf("unexpected staleness %+v", tr.Staleness)
	}
}

func TestLocate_Errors(t *testing.T) {
	m, reader := fixture(t)
	if _, err := Locate(m, reader, "src/none.py", 0); !errors.Is(err, ErrUnmappedFile) {
		t.Errorf("expected ErrUnmappedFile, got %v", err)
	}
	if _, err := Locate(m, reader, "src/api.py", 25); !errors.Is(err, ErrUnmappedLine) {
		t.Errorf("expected ErrUnmappedLine, got %v", err)
	}
}

func TestReviewFile(t *testing.T) {
	m, reader := fixture(t)
	r, err := ReviewFile(m, reader, "src/api.py")
	if err != nil {
		t.Fatal(err)
	}

	want := Requirements{TotalDocs: 2, RequiresHuman: 0, RequiresUpdate: 2, AlreadyCurrent: 0}
	if r.Requirements != want {
		t.Errorf("requirements = %+v, want %+v", r.Requirements, want)
	}
	if r.Impact.Level != ImpactLow {
		t.Errorf("impact = %s, want low", r.Impact.Level)
	}
	if got := r.Blocks[1].Docs[0].Status; got != StatusCurrent {
		t.Errorf("Router against API.md = %s, want current", got)
	}
	if got := r.Documents[1].Status; got != StatusMissing {
		t.Errorf("Missing.md = %s, want missing", got)
	}
	if r.Documents[0].Preview == "" {
		t.Error("expected a section preview")
	}

	r, err = ReviewFile(m, reader, "docs/API.md")
	if err != nil {
		t.Fatal(err)
	}
	if r.Impact.Level != ImpactHigh {
		t.Errorf("aligning to a requires_human doc should be high impact, got %s", r.Impact.Level)
	}
}

func TestEstimateImpact(t *testing.T) {
	tests := []struct {
		req  Requirements
		want ImpactLevel
	}{
		{Requirements{}, ImpactMinimal},
		{Requirements{TotalDocs: 1, RequiresHuman: 1}, ImpactHigh},
		{Requirements{TotalDocs: 3, RequiresUpdate: 3}, ImpactMedium},
		{Requirements{TotalDocs: 2, RequiresUpdate: 1}, ImpactLow},
		{Requirements{TotalDocs: 2, AlreadyCurrent: 2}, ImpactMinimal},
	}
	for _, tt := range tests {
		if got := EstimateImpact(tt.req).Level; got != tt.want {
			t.Errorf("EstimateImpact(%+v) = %s, want %s", tt.req, got, tt.want)
		}
	}
}

func TestLevelOf(t *testing.T) {
	tests := map[string]Level{
		"docs/IDENTITY.md":   LevelIdentity,
		"docs/design.md":     LevelDesign,
		"PRINCIPLES.md":      LevelDesign,
		"docs/api/routes.md": LevelTechnical,
	}
	for in, want := range tests {
		if got := LevelOf(in); got != want {
			t.Errorf("LevelOf(%q) = %s, want %s", in, got, want)
		}
	}
}
