// Package lint validates the alignment map against the working tree and plans
// reviewable fixes. Planning never mutates the map; Apply consumes exactly the
// proposal that was reviewed.
package lint

import "fmt"

// Issue identifies what is wrong with the map
type Issue string

const (
	IssueMissingFile       Issue = "missing_file"
	IssueReadError         Issue = "read_error"
	IssueInvalidLines      Issue = "invalid_lines"
	IssueLineDrift         Issue = "line_drift"
	IssueOverlap           Issue = "overlap"
	IssueMissingDoc        Issue = "missing_doc"
	IssueMissingAnchor     Issue = "missing_anchor"
	IssueUnresolvedCodeRef Issue = "unresolved_code_ref"
	IssueTierConflict      Issue = "tier_conflict"
)

// Action is the remedy a finding proposes
type Action string

const (
	ActionUpdateLines     Action = "update_lines"
	ActionRemoveFile      Action = "remove_file"
	ActionRemoveAlignment Action = "remove_alignment"
	ActionManual          Action = "manual"
)

// Confidence grades how sure the planner is about a proposed remedy
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Finding is one lint result
type Finding struct {
	File        string     `yaml:"file" json:"file"`
	Block       string     `yaml:"block,omitempty" json:"block,omitempty"`
	Issue       Issue      `yaml:"issue" json:"issue"`
	Action      Action     `yaml:"action" json:"action"`
	Fixable     bool       `yaml:"fixable" json:"fixable"`
	Confidence  Confidence `yaml:"confidence" json:"confidence"`
	OldLines    string     `yaml:"old_lines,omitempty" json:"old_lines,omitempty"`
	NewLines    string     `yaml:"new_lines,omitempty" json:"new_lines,omitempty"`
	Ref         string     `yaml:"aligned_ref,omitempty" json:"aligned_ref,omitempty"`
	Description string     `yaml:"description" json:"description"`
}

func (f Finding) String() string {
	where := f.File
	if f.Block != "" {
		where += " [" + f.Block + "]"
	}
	return fmt.Sprintf("%s: %s: %s", where, f.Issue, f.Description)
}

// Fixable returns the findings Apply would act on
func Fixable(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Fixable {
			out = append(out, f)
		}
	}
	return out
}
