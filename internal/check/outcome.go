package check

import (
	"time"

	"github.com/ppiankov/alignmap/internal/docs"
	"github.com/ppiankov/alignmap/internal/model"
)

// Result classifies one check outcome
type Result string

const (
	ResultOK              Result = "OK"
	ResultUnmappedFile    Result = "UNMAPPED_FILE"
	ResultUnmappedLines   Result = "UNMAPPED_LINES"
	ResultMapNotUpdated   Result = "MAP_NOT_UPDATED"
	ResultStaleDoc        Result = "STALE_DOC"
	ResultHumanEscalation Result = "HUMAN_ESCALATION"
)

// IsFailure reports whether the result blocks a commit
func (r Result) IsFailure() bool {
	return r != ResultOK
}

// CodeTarget is the block a code reference resolved to
type CodeTarget struct {
	File        string          `json:"file"`
	Block       string          `json:"block"`
	Lines       model.LineRange `json:"-"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
	// Content is the target block's source; empty when the file cannot be read
	Content string `json:"content,omitempty"`
}

// Outcome is one classified finding of a check run
type Outcome struct {
	Result  Result `json:"result"`
	File    string `json:"file"`
	Block   string `json:"block,omitempty"`
	Lines   []int  `json:"lines,omitempty"`
	Ref     string `json:"ref,omitempty"`
	Tier    string `json:"tier,omitempty"`
	Message string `json:"message"`

	// Suggestion is a remediation hint for the reader
	Suggestion string `json:"suggestion,omitempty"`

	// Nearest is the closest block to unmapped lines
	Nearest *model.Block `json:"-"`

	Section      *docs.Section `json:"section,omitempty"`
	Code         *CodeTarget   `json:"code,omitempty"`
	LastUpdated  *time.Time    `json:"last_updated,omitempty"`
	LastReviewed *time.Time    `json:"last_reviewed,omitempty"`

	Acknowledged   bool   `json:"acknowledged,omitempty"`
	AcknowledgedBy string `json:"acknowledged_by,omitempty"`
}

// Failing reports whether the outcome should fail the run
func (o Outcome) Failing() bool {
	return o.Result.IsFailure() && !o.Acknowledged
}

// Failed returns the outcomes that fail the run, in order
func Failed(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Failing() {
			out = append(out, o)
		}
	}
	return out
}

// Summary counts outcomes by result
func Summary(outcomes []Outcome) map[Result]int {
	counts := make(map[Result]int)
	for _, o := range outcomes {
		counts[o.Result]++
	}
	return counts
}

// Acknowledgment is an explicit human sign-off on a requires_human document
type Acknowledgment struct {
	Doc string `yaml:"doc" json:"doc"`
	By  string `yaml:"by" json:"by"`
}
