package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/alignmap/internal/check"
	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/edit"
	"github.com/ppiankov/alignmap/internal/lint"
	"github.com/ppiankov/alignmap/internal/locate"
	"github.com/ppiankov/alignmap/internal/model"
	"github.com/ppiankov/alignmap/internal/suggest"
	"github.com/ppiankov/alignmap/internal/trace"
)

func plain() (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, "never"), &buf
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, ColorEnabled(&buf, "always"))
	assert.False(t, ColorEnabled(&buf, "never"))
	assert.False(t, ColorEnabled(&buf, "auto"), "non-terminal writers are never coloured")
}

func TestOutcomes(t *testing.T) {
	p, buf := plain()
	outcomes := []check.Outcome{
		{Result: check.ResultOK, File: "a.py", Block: "Foo"},
		{
			Result:     check.ResultStaleDoc,
			File:       "a.py",
			Block:      "Foo",
			Ref:        "docs/X.md#foo",
			Message:    "document not reviewed since the code changed",
			Suggestion: "review docs/X.md",
			Section:    &docs.Section{Title: "Foo", Content: "Foo explained."},
		},
		{Result: check.ResultHumanEscalation, File: "core.py", Block: "Core", Ref: "docs/IDENTITY.md", Acknowledged: true, AcknowledgedBy: "maintainer"},
	}

	p.Outcomes(outcomes, false)
	out := buf.String()
	assert.Contains(t, out, "STALE_DOC a.py [Foo] → docs/X.md#foo")
	assert.Contains(t, out, "Foo explained.")
	assert.Contains(t, out, "→ review docs/X.md")
	assert.Contains(t, out, "acknowledged by maintainer")
	assert.NotContains(t, out, "✓ a.py", "ok outcomes hidden unless verbose")
	assert.Contains(t, out, "1 failed  1 acknowledged  1 ok")

	buf.Reset()
	p.Outcomes(outcomes[:1], true)
	assert.Contains(t, buf.String(), "✓ a.py [Foo]")
}

func TestOutcomes_HumanEscalationBanner(t *testing.T) {
	p, buf := plain()
	p.Outcomes([]check.Outcome{{Result: check.ResultHumanEscalation, File: "core.py", Lines: []int{3, 4}, Ref: "docs/IDENTITY.md"}}, false)
	assert.Contains(t, buf.String(), "⛔ HUMAN_ESCALATION core.py:3,4")
	assert.Contains(t, buf.String(), "human review required")
}

func TestOutcomes_SectionTruncated(t *testing.T) {
	p, buf := plain()
	long := strings.Repeat("x", 3000)
	p.Outcomes([]check.Outcome{{Result: check.ResultStaleDoc, File: "a.py", Section: &docs.Section{Title: "T", Content: long}}}, false)
	assert.Less(t, strings.Count(buf.String(), "x"), 1100)
}

func TestOutcomes_CodeTargetContent(t *testing.T) {
	p, buf := plain()
	p.Outcomes([]check.Outcome{{
		Result: check.ResultStaleDoc,
		File:   "src/api.py",
		Block:  "Handler",
		Ref:    "src/store.py#store",
		Code: &check.CodeTarget{
			File:    "src/store.py",
			Block:   "Store",
			Lines:   model.MustLineRange(1, 2),
			Content: "class Store:\n    pass\n",
		},
	}}, false)
	out := buf.String()
	assert.Contains(t, out, "src/store.py [Store] lines 1-2")
	assert.Contains(t, out, "class Store:")
}

func TestProposal(t *testing.T) {
	p, buf := plain()
	p.Proposal(&lint.Proposal{}, "")
	assert.Contains(t, buf.String(), "alignment map is consistent")

	buf.Reset()
	prop := &lint.Proposal{Findings: []lint.Finding{
		{File: "a.py", Block: "Foo", Issue: lint.IssueLineDrift, Fixable: true, Description: "moved"},
		{File: "b.py", Issue: lint.IssueOverlap, Description: "overlaps"},
	}}
	p.Proposal(prop, ".alignment-map.fixes.yaml")
	out := buf.String()
	assert.Contains(t, out, "line_drift a.py [Foo] auto-fixable")
	assert.Contains(t, out, "overlap b.py manual")
	assert.Contains(t, out, "2 finding(s), 1 auto-fixable")
	assert.Contains(t, out, "proposal written to .alignment-map.fixes.yaml")
}

func TestUpdatedAndStrategy(t *testing.T) {
	p, buf := plain()
	p.Updated("a.py", &edit.UpdateResult{Action: "added", Block: "Foo", Lines: model.MustLineRange(1, 5)})
	assert.Contains(t, buf.String(), `added block "Foo" (lines 1-5) in a.py`)

	buf.Reset()
	p.StrategyRequired(&edit.StrategyRequiredError{
		OverlapError: &model.OverlapError{
			File:      "a.py",
			Requested: model.MustLineRange(4, 12),
			Conflicts: []model.Block{{Name: "Foo", Lines: model.MustLineRange(1, 10)}},
		},
		Suggested:   edit.StrategyExtend,
		Explanation: "new lines extend Foo",
	})
	out := buf.String()
	assert.Contains(t, out, "Foo (lines 1-10)")
	assert.Contains(t, out, "suggested strategy: --extend")
	for _, flag := range []string{"--extend", "--split", "--replace"} {
		assert.Contains(t, out, flag)
	}
}

func TestSuggestions(t *testing.T) {
	p, buf := plain()
	p.Suggestions(nil)
	assert.Contains(t, buf.String(), "no unmapped code found")

	buf.Reset()
	p.Suggestions([]suggest.FileSuggestions{{
		File:   "src/app.py",
		Source: suggest.SourceHeuristic,
		Suggestions: []locate.Span{{
			Name:       "helper function",
			Kind:       locate.KindFunction,
			Lines:      model.MustLineRange(6, 7),
			Confidence: locate.ConfidenceMedium,
		}},
	}})
	out := buf.String()
	assert.Contains(t, out, "found by heuristic fallback")
	assert.Contains(t, out, `alignment-map update src/app.py --block "helper function" --lines 6-7 --aligned-with <DOC>`)
}

func TestTraceAndReview(t *testing.T) {
	p, buf := plain()
	p.Trace(&trace.Trace{
		File:      "a.py",
		Line:      12,
		Blocks:    []trace.BlockInfo{{Name: "Foo", Lines: "10-20"}},
		Documents: []trace.DocInfo{{Path: "docs/X.md", Anchor: "foo"}},
		Hierarchy: []trace.HierarchyEntry{{Document: "docs/IDENTITY.md", Level: trace.LevelIdentity, RequiresHuman: true}},
		Staleness: []trace.Staleness{{Block: "Foo", Document: "docs/X.md#foo", Stale: true}},
	})
	out := buf.String()
	assert.Contains(t, out, "trace a.py:12")
	assert.Contains(t, out, "docs/X.md#foo")
	assert.Contains(t, out, "document not found")
	assert.Contains(t, out, "STALE")
	assert.Contains(t, out, "next: review the stale documents")

	buf.Reset()
	p.Review(&trace.Review{
		File: "a.py",
		Blocks: []trace.ReviewBlock{{Name: "Foo", Lines: "10-20", Docs: []trace.ReviewDoc{
			{Path: "docs/X.md", Status: trace.StatusNeedsReview},
		}}},
		Requirements: trace.Requirements{TotalDocs: 1, RequiresUpdate: 1},
		Impact:       trace.EstimateImpact(trace.Requirements{TotalDocs: 1, RequiresUpdate: 1}),
	})
	out = buf.String()
	assert.Contains(t, out, "⚠ needs_review docs/X.md")
	assert.Contains(t, out, "1 document(s): 1 need review")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
