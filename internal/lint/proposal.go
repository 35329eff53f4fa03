package lint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/alignmap/internal/model"
)

var (
	// ErrStaleProposal is returned when the map changed after the proposal was made
	ErrStaleProposal = errors.New("alignment map changed since the proposal was generated")

	// ErrNothingToApply is returned when a proposal holds no auto-fixable findings
	ErrNothingToApply = errors.New("no auto-fixable findings in proposal")
)

// Proposal is a reviewable fix list tied to the exact map it was planned against
type Proposal struct {
	ID        string    `yaml:"id" json:"id"`
	Generated time.Time `yaml:"generated" json:"generated"`
	MapDigest string    `yaml:"map_digest" json:"map_digest"`
	Findings  []Finding `yaml:"fixes" json:"fixes"`
}

func newProposal(digest string, findings []Finding) *Proposal {
	if findings == nil {
		findings = []Finding{}
	}
	return &Proposal{
		ID:        uuid.NewString(),
		Generated: time.Now().UTC().Truncate(time.Second),
		MapDigest: digest,
		Findings:  findings,
	}
}

// Digest fingerprints the canonical encoding of m
func Digest(m *model.AlignmentMap) (string, error) {
	data, err := model.Encode(m)
	if err != nil {
		return "", fmt.Errorf("encode map: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WriteProposal saves p as YAML
func WriteProposal(path string, p *Proposal) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}
	return model.WriteFileAtomic(path, data, 0o644)
}

// ReadProposal loads a proposal written by WriteProposal
func ReadProposal(path string) (*Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proposal: %w", err)
	}
	var p Proposal
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse proposal %s: %w", path, err)
	}
	return &p, nil
}

// Apply performs the auto-fixable findings of p, exactly as written, and
// returns what was done. The map must be the one p was planned against.
// Either every fix applies or m is left unchanged.
func Apply(m *model.AlignmentMap, p *Proposal) ([]string, error) {
	digest, err := Digest(m)
	if err != nil {
		return nil, err
	}
	if digest != p.MapDigest {
		return nil, ErrStaleProposal
	}
	fixes := Fixable(p.Findings)
	if len(fixes) == 0 {
		return nil, ErrNothingToApply
	}

	next := m.Clone()
	touched := make(map[string]bool)
	var actions []string
	for _, f := range fixes {
		switch f.Action {
		case ActionUpdateLines:
			r, err := model.ParseLineRange(f.NewLines)
			if err != nil {
				return nil, fmt.Errorf("%s [%s]: %w", f.File, f.Block, err)
			}
			fm, ok := next.Mapping(f.File)
			if !ok {
				return nil, fmt.Errorf("%s: %w", f.File, model.ErrMappingNotFound)
			}
			b, ok := fm.Block(f.Block)
			if !ok {
				return nil, fmt.Errorf("%s: %q: %w", f.File, f.Block, model.ErrBlockNotFound)
			}
			b.Lines = r
			touched[fm.File] = true
			actions = append(actions, fmt.Sprintf("updated %s [%s] lines %s -> %s", f.File, f.Block, f.OldLines, f.NewLines))

		case ActionRemoveFile:
			_, orphans, err := next.RemoveMapping(f.File)
			if err != nil {
				return nil, err
			}
			if len(orphans) > 0 {
				return nil, fmt.Errorf("%s: still referenced by %d block(s)", f.File, len(orphans))
			}
			actions = append(actions, "removed file mapping: "+f.File)

		default:
			return nil, fmt.Errorf("%s: action %q is not auto-fixable", f.File, f.Action)
		}
	}

	for file := range touched {
		fm, ok := next.Mapping(file)
		if !ok {
			continue
		}
		if pairs := fm.Overlaps(); len(pairs) > 0 {
			return nil, &model.OverlapError{File: file, Requested: pairs[0].Second.Lines, Conflicts: []model.Block{pairs[0].First}}
		}
	}

	*m = *next
	return actions, nil
}
