package report

import (
	"fmt"
	"strings"

	"github.com/ppiankov/alignmap/internal/check"
	"github.com/ppiankov/alignmap/internal/drift"
	"github.com/ppiankov/alignmap/internal/edit"
	"github.com/ppiankov/alignmap/internal/lint"
	"github.com/ppiankov/alignmap/internal/suggest"
	"github.com/ppiankov/alignmap/internal/trace"
)

const sectionLimit = 1000

func (p *Printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

// Outcomes prints check outcomes. OK outcomes are listed only when verbose.
func (p *Printer) Outcomes(outcomes []check.Outcome, verbose bool) {
	failed := 0
	acked := 0
	for _, o := range outcomes {
		switch {
		case o.Result == check.ResultOK:
			if verbose {
				p.printf("%s %s\n", p.icon(IconOK), p.s.muted.Render(location(o)))
			}
			continue
		case o.Acknowledged:
			acked++
			p.printf("%s %s %s\n", p.icon(IconWarning), p.s.warning.Render(string(o.Result)), location(o))
			p.printf("    acknowledged by %s\n", o.AcknowledgedBy)
			continue
		}

		failed++
		icon, label := p.icon(IconError), p.s.err.Render(string(o.Result))
		if o.Result == check.ResultHumanEscalation {
			icon, label = p.icon(IconHuman), p.s.human.Render(string(o.Result))
		}
		p.printf("%s %s %s\n", icon, label, location(o))
		p.printf("    %s\n", o.Message)
		if o.Section != nil && o.Section.Content != "" {
			title := p.s.title.Render(o.Section.Title)
			p.printf("%s\n", indent(p.s.box.Render(title+"\n"+truncate(strings.TrimSpace(o.Section.Content), sectionLimit)), "    "))
		}
		if o.Code != nil && o.Code.Content != "" {
			title := p.s.title.Render(fmt.Sprintf("%s [%s] lines %s", o.Code.File, o.Code.Block, o.Code.Lines))
			p.printf("%s\n", indent(p.s.box.Render(title+"\n"+truncate(strings.TrimRight(o.Code.Content, "\n"), sectionLimit)), "    "))
		}
		if o.Suggestion != "" {
			p.printf("    %s %s\n", IconArrow, p.s.muted.Render(o.Suggestion))
		}
	}

	counts := check.Summary(outcomes)
	p.printf("\n%s %s  %s %s  %s %s\n",
		p.s.err.Render(fmt.Sprint(failed)), p.s.muted.Render("failed"),
		p.s.warning.Render(fmt.Sprint(acked)), p.s.muted.Render("acknowledged"),
		p.s.ok.Render(fmt.Sprint(counts[check.ResultOK])), p.s.muted.Render("ok"),
	)
	if counts[check.ResultHumanEscalation]-acked > 0 {
		p.printf("%s\n", p.s.human.Render("human review required: automated tooling must not mark these documents reviewed"))
	}
}

func location(o check.Outcome) string {
	s := o.File
	if len(o.Lines) > 0 {
		s += ":" + joinInts(o.Lines)
	}
	if o.Block != "" {
		s += " [" + o.Block + "]"
	}
	if o.Ref != "" {
		s += " " + string(IconArrow) + " " + o.Ref
	}
	return s
}

func joinInts(ns []int) string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, fmt.Sprint(n))
	}
	return strings.Join(parts, ",")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

// Proposal prints lint findings and where the proposal was written
func (p *Printer) Proposal(prop *lint.Proposal, path string) {
	if len(prop.Findings) == 0 {
		p.printf("%s %s\n", p.icon(IconOK), p.s.ok.Render("alignment map is consistent"))
		return
	}
	for _, f := range prop.Findings {
		icon := p.icon(IconWarning)
		tag := p.s.muted.Render("manual")
		if f.Fixable {
			icon = p.icon(IconOK)
			tag = p.s.ok.Render("auto-fixable")
		}
		where := f.File
		if f.Block != "" {
			where += " [" + f.Block + "]"
		}
		p.printf("%s %s %s %s\n", icon, p.s.bold.Render(string(f.Issue)), where, tag)
		p.printf("    %s\n", f.Description)
	}
	fixable := len(lint.Fixable(prop.Findings))
	p.printf("\n%d finding(s), %d auto-fixable\n", len(prop.Findings), fixable)
	if path != "" && fixable > 0 {
		p.printf("proposal written to %s; review it, then run %s\n", path, p.s.accent.Render("alignment-map fix"))
	}
}

// Actions prints what an apply step did
func (p *Printer) Actions(actions []string) {
	for _, a := range actions {
		p.printf("%s %s\n", p.icon(IconOK), a)
	}
}

// Updated prints the result of an update
func (p *Printer) Updated(file string, res *edit.UpdateResult) {
	p.printf("%s %s block %q (lines %s) in %s\n", p.icon(IconOK), res.Action, res.Block, res.Lines, file)
	if len(res.Affected) > 1 {
		p.printf("    blocks now: %s\n", strings.Join(res.Affected, ", "))
	}
}

// StrategyRequired explains an overlapping update and the available strategies
func (p *Printer) StrategyRequired(err *edit.StrategyRequiredError) {
	p.printf("%s %s\n", p.icon(IconWarning), p.s.warning.Render(fmt.Sprintf("lines %s overlap existing block(s):", err.Requested)))
	for _, b := range err.Conflicts {
		p.printf("    %s %s (lines %s)\n", IconBullet, p.s.accent.Render(b.Name), b.Lines)
	}
	p.printf("\nsuggested strategy: %s\n", p.s.bold.Render("--"+string(err.Suggested)))
	p.printf("    %s\n\n", err.Explanation)
	p.printf("  --extend    extend the existing block to include the new lines\n")
	p.printf("  --split     split the existing block at the boundary\n")
	p.printf("  --replace   replace the existing block entirely\n")
}

// Touched prints the result of a touch
func (p *Printer) Touched(file string, res *edit.TouchResult) {
	if res.Moved() {
		p.printf("%s updated block %q in %s, lines %s %s %s\n", p.icon(IconOK), res.Block, file, res.Old, IconArrow, res.New)
	} else {
		p.printf("%s updated block %q in %s (lines %s)\n", p.icon(IconOK), res.Block, file, res.New)
	}
	switch res.Drift.Status {
	case drift.StatusAmbiguous, drift.StatusOutOfTolerance, drift.StatusNotFound, drift.StatusUndetectable:
		p.printf("    %s could not relocate the block (%s); lines kept\n", p.icon(IconWarning), res.Drift.Status)
	}
}

// Suggestions prints proposed blocks with the commands that would add them
func (p *Printer) Suggestions(all []suggest.FileSuggestions) {
	shown := 0
	for _, fs := range all {
		if fs.Err != nil {
			p.printf("%s %s: %v\n", p.icon(IconWarning), fs.File, fs.Err)
			continue
		}
		if len(fs.Suggestions) == 0 {
			continue
		}
		shown++
		p.printf("\n%s %s\n", p.s.title.Render("unmapped code in"), fs.File)
		if fs.Source != suggest.SourceStructural {
			p.printf("    %s\n", p.s.muted.Render("found by "+strings.ReplaceAll(string(fs.Source), "_", " ")+" fallback"))
		}
		for _, s := range fs.Suggestions {
			p.printf("  %-9s %-15s %-40s %s\n", s.Lines, s.Kind, s.Name, p.s.muted.Render(string(s.Confidence)))
		}
		for _, s := range fs.Suggestions {
			p.printf("  %s\n", p.s.muted.Render(fmt.Sprintf("alignment-map update %s --block %q --lines %s --aligned-with <DOC>", fs.File, s.Name, s.Lines)))
		}
	}
	if shown == 0 {
		p.printf("%s %s\n", p.icon(IconOK), p.s.ok.Render("no unmapped code found"))
		return
	}
	p.printf("\n%s\n", p.s.warning.Render("never guess document alignments; always pass --aligned-with explicitly"))
}

// Trace prints the review context of a file or line
func (p *Printer) Trace(t *trace.Trace) {
	header := t.File
	if t.Line > 0 {
		header += fmt.Sprintf(":%d", t.Line)
	}
	p.printf("%s %s\n\n", p.s.title.Render("trace"), header)

	for _, b := range t.Blocks {
		p.printf("%s %s (lines %s)\n", IconBullet, p.s.bold.Render(b.Name), b.Lines)
		if b.LastUpdated != nil {
			p.printf("    last updated %s\n", b.LastUpdated.Format("2006-01-02 15:04:05"))
		}
		if b.Comment != "" {
			p.printf("    %s\n", p.s.muted.Render(b.Comment))
		}
	}

	if len(t.Documents) > 0 {
		p.printf("\n%s\n", p.s.title.Render("aligned documents"))
	}
	for _, d := range t.Documents {
		name := d.Path
		if d.Anchor != "" {
			name += "#" + d.Anchor
		}
		if d.RequiresHuman {
			name = p.s.human.Render(name) + " " + p.s.human.Render("(requires human review)")
		} else {
			name = p.s.warning.Render(name)
		}
		p.printf("%s %s\n", IconBullet, name)
		switch {
		case !d.Exists:
			p.printf("    %s\n", p.s.err.Render("document not found"))
		case d.LastReviewed != nil:
			p.printf("    last reviewed %s\n", d.LastReviewed.Format("2006-01-02"))
		default:
			p.printf("    %s\n", p.s.warning.Render("no last_reviewed marker"))
		}
		if d.Section != "" {
			p.printf("%s\n", indent(p.s.box.Render(truncate(strings.TrimSpace(d.Section), sectionLimit)), "    "))
		}
	}

	if len(t.Hierarchy) > 0 {
		p.printf("\n%s\n", p.s.title.Render("document hierarchy"))
	}
	depth := map[trace.Level]int{trace.LevelIdentity: 0, trace.LevelDesign: 1, trace.LevelTechnical: 2}
	for _, h := range t.Hierarchy {
		marker := ""
		if h.RequiresHuman {
			marker = " " + p.icon(IconHuman)
		}
		p.printf("%s%s %s (%s)%s\n", strings.Repeat("  ", depth[h.Level]), IconBullet, h.Document, h.Level, marker)
	}

	if len(t.Staleness) > 0 {
		p.printf("\n%s\n", p.s.title.Render("staleness"))
	}
	for _, s := range t.Staleness {
		status, action := p.s.ok.Render("current"), "none"
		if s.Stale {
			status, action = p.s.err.Render("STALE"), "review and update the document"
			if s.RequiresHuman {
				action = "human review required"
			}
		}
		p.printf("  %-30s %-30s %s  %s\n", s.Block, s.Document, status, p.s.muted.Render(action))
	}
	if t.AnyStale() {
		p.printf("\nnext: review the stale documents, update their last_reviewed, then touch the blocks with a comment\n")
	}
}

// Review prints a pre-flight review of a file
func (p *Printer) Review(r *trace.Review) {
	p.printf("%s %s\n\n", p.s.title.Render("review"), r.File)
	for _, b := range r.Blocks {
		p.printf("%s %s (lines %s)\n", IconBullet, p.s.bold.Render(b.Name), b.Lines)
		for _, d := range b.Docs {
			p.printf("    %s %s\n", p.statusIcon(d.Status), d.Path+anchorSuffix(d.Anchor))
		}
	}

	req := r.Requirements
	p.printf("\n%d document(s): %d need review, %d current, %d require a human\n",
		req.TotalDocs, req.RequiresUpdate, req.AlreadyCurrent, req.RequiresHuman)

	style := p.s.ok
	switch r.Impact.Level {
	case trace.ImpactHigh:
		style = p.s.human
	case trace.ImpactMedium:
		style = p.s.warning
	}
	p.printf("impact: %s, %s (%s)\n", style.Render(string(r.Impact.Level)), r.Impact.Description, r.Impact.TimeEstimate)
}

func (p *Printer) statusIcon(s trace.ReviewStatus) string {
	switch s {
	case trace.StatusCurrent:
		return p.icon(IconOK) + " " + string(s)
	case trace.StatusMissing:
		return p.icon(IconError) + " " + string(s)
	}
	return p.icon(IconWarning) + " " + string(s)
}

func anchorSuffix(anchor string) string {
	if anchor == "" {
		return ""
	}
	return "#" + anchor
}
