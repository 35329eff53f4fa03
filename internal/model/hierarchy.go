package model

import (
	"fmt"

	"github.com/ppiankov/alignmap/internal/match"
)

// Tier is the review tier a document falls into
type Tier int

const (
	TierUnknown   Tier = 0 // Not yet classified
	TierHuman     Tier = 1 // Identity/design documents, only a human may confirm
	TierTechnical Tier = 2 // Technical documents, reviewable by automation
)

func (t Tier) String() string {
	switch t {
	case TierHuman:
		return "requires_human"
	case TierTechnical:
		return "technical"
	default:
		return "unknown"
	}
}

// Hierarchy assigns documents to review tiers by glob
type Hierarchy struct {
	RequiresHuman []string `yaml:"requires_human"`
	Technical     []string `yaml:"technical"`
}

// Classifier is a compiled Hierarchy
type Classifier struct {
	human     *match.Patterns
	technical *match.Patterns
}

// NewClassifier compiles the hierarchy globs
func (h Hierarchy) NewClassifier() (*Classifier, error) {
	human, err := match.Compile(h.RequiresHuman)
	if err != nil {
		return nil, fmt.Errorf("hierarchy.requires_human: %w", err)
	}
	technical, err := match.Compile(h.Technical)
	if err != nil {
		return nil, fmt.Errorf("hierarchy.technical: %w", err)
	}
	return &Classifier{human: human, technical: technical}, nil
}

// Classify returns the tier of a document path; unmatched documents are technical
func (c *Classifier) Classify(docPath string) Tier {
	if c != nil && c.human.Match(docPath) {
		return TierHuman
	}
	return TierTechnical
}

// MatchesBoth reports whether docPath is claimed by both tiers. A document
// belongs to at most one tier; such paths are classified as requires_human.
func (c *Classifier) MatchesBoth(docPath string) bool {
	return c != nil && c.human.Match(docPath) && c.technical.Match(docPath)
}

// Settings tune checking, drift detection and coverage
type Settings struct {
	LineTolerance           int      `yaml:"line_tolerance"`
	FuzzyMatch              bool     `yaml:"fuzzy_match"`
	Ignore                  []string `yaml:"ignore"`
	RespectGitignore        bool     `yaml:"respect_gitignore"`
	RequireCompleteCoverage bool     `yaml:"require_complete_coverage"`
}

// DefaultLineTolerance is the drift search radius when none is configured
const DefaultLineTolerance = 10

// DefaultSettings returns the settings applied to absent fields
func DefaultSettings() Settings {
	return Settings{
		LineTolerance:           DefaultLineTolerance,
		FuzzyMatch:              true,
		Ignore:                  []string{},
		RespectGitignore:        true,
		RequireCompleteCoverage: false,
	}
}
