package model

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ppiankov/alignmap/internal/match"
)

// CurrentVersion is the map schema version written by this tool
const CurrentVersion = 1

// AlignmentMap is the aggregate root of all file mappings
type AlignmentMap struct {
	Version   int
	Hierarchy Hierarchy
	Settings  Settings
	Mappings  []FileMapping

	projectRoot string
	clock       Clock
}

// New creates an empty map with default settings
func New() *AlignmentMap {
	return &AlignmentMap{
		Version:  CurrentVersion,
		Settings: DefaultSettings(),
	}
}

// Reference locates a block holding an aligned_with entry
type Reference struct {
	File  string
	Block Block
}

// SetClock replaces the clock used by mutations
func (m *AlignmentMap) SetClock(c Clock) {
	m.clock = c
}

// Now reads the map's clock
func (m *AlignmentMap) Now() time.Time {
	if m.clock == nil {
		return SystemClock{}.Now()
	}
	return m.clock.Now()
}

// SetProjectRoot sets the directory map paths are relative to
func (m *AlignmentMap) SetProjectRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	m.projectRoot = abs
	return nil
}

// ProjectRoot returns the resolved root or ErrNoProjectRoot
func (m *AlignmentMap) ProjectRoot() (string, error) {
	if m.projectRoot == "" {
		return "", ErrNoProjectRoot
	}
	return m.projectRoot, nil
}

// Abs resolves a map-relative path against the project root
func (m *AlignmentMap) Abs(rel string) (string, error) {
	root, err := m.ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// Mapping returns the mapping for file
func (m *AlignmentMap) Mapping(file string) (*FileMapping, bool) {
	file = match.Normalize(file)
	for i := range m.Mappings {
		if m.Mappings[i].File == file {
			return &m.Mappings[i], true
		}
	}
	return nil, false
}

// BlockByID finds a block by its map-wide id
func (m *AlignmentMap) BlockByID(id string) (Reference, bool) {
	if id == "" {
		return Reference{}, false
	}
	for _, fm := range m.Mappings {
		for _, b := range fm.Blocks {
			if b.ID == id {
				return Reference{File: fm.File, Block: b}, true
			}
		}
	}
	return Reference{}, false
}

// AddFileMapping appends a new mapping; the file must not be mapped yet
func (m *AlignmentMap) AddFileMapping(fm FileMapping) error {
	fm.File = match.Normalize(fm.File)
	if _, ok := m.Mapping(fm.File); ok {
		return fmt.Errorf("%s: %w", fm.File, ErrDuplicateMapping)
	}
	for i, b := range fm.Blocks {
		for _, other := range fm.Blocks[i+1:] {
			if b.Lines.Overlaps(other.Lines) {
				return &OverlapError{File: fm.File, Requested: other.Lines, Conflicts: []Block{b}}
			}
		}
	}
	m.Mappings = append(m.Mappings, fm)
	return nil
}

// AddBlock appends block to file's mapping, creating the mapping if needed
func (m *AlignmentMap) AddBlock(file string, block Block) error {
	if err := block.Lines.Validate(); err != nil {
		return err
	}
	fm, ok := m.Mapping(file)
	if !ok {
		return m.AddFileMapping(FileMapping{File: file, Blocks: []Block{block}})
	}
	if conflicts := fm.OverlapsWith(block.Lines); len(conflicts) > 0 {
		return &OverlapError{File: fm.File, Requested: block.Lines, Conflicts: conflicts}
	}
	if _, exists := fm.Block(block.Name); exists {
		return fmt.Errorf("%s: %q: %w", fm.File, block.Name, ErrDuplicateBlock)
	}
	fm.Blocks = append(fm.Blocks, block)
	return nil
}

// UpdateBlockLines moves a block to r and bumps last_updated.
// The comment is replaced only when one is given. On error nothing changes.
func (m *AlignmentMap) UpdateBlockLines(file, name string, r LineRange, comment *string) error {
	if err := r.Validate(); err != nil {
		return err
	}
	fm, ok := m.Mapping(file)
	if !ok {
		return fmt.Errorf("%s: %w", file, ErrMappingNotFound)
	}
	b, ok := fm.Block(name)
	if !ok {
		return fmt.Errorf("%s: %q: %w", fm.File, name, ErrBlockNotFound)
	}
	if conflicts := fm.OverlapsWith(r, name); len(conflicts) > 0 {
		return &OverlapError{File: fm.File, Requested: r, Conflicts: conflicts}
	}

	now := m.Now()
	b.Lines = r
	b.LastUpdated = &now
	if comment != nil {
		b.LastUpdateComment = *comment
	}
	return nil
}

// Touch bumps last_updated of a block without moving it
func (m *AlignmentMap) Touch(file, name string, comment *string) error {
	fm, ok := m.Mapping(file)
	if !ok {
		return fmt.Errorf("%s: %w", file, ErrMappingNotFound)
	}
	b, ok := fm.Block(name)
	if !ok {
		return fmt.Errorf("%s: %q: %w", fm.File, name, ErrBlockNotFound)
	}
	now := m.Now()
	b.LastUpdated = &now
	if comment != nil {
		b.LastUpdateComment = *comment
	}
	return nil
}

// ReplaceBlocks removes the named blocks and inserts blocks in their place.
// The overlap check ignores the blocks being replaced. On error nothing changes.
func (m *AlignmentMap) ReplaceBlocks(file string, replaced []string, blocks []Block) error {
	fm, ok := m.Mapping(file)
	if !ok {
		return fmt.Errorf("%s: %w", file, ErrMappingNotFound)
	}

	skip := make(map[string]bool, len(replaced))
	insertAt := -1
	for _, name := range replaced {
		if _, ok := fm.Block(name); !ok {
			return fmt.Errorf("%s: %q: %w", fm.File, name, ErrBlockNotFound)
		}
		skip[name] = true
	}

	kept := make([]Block, 0, len(fm.Blocks))
	for _, b := range fm.Blocks {
		if skip[b.Name] {
			if insertAt < 0 {
				insertAt = len(kept)
			}
			continue
		}
		kept = append(kept, b)
	}
	if insertAt < 0 {
		insertAt = len(kept)
	}

	for i, nb := range blocks {
		if err := nb.Lines.Validate(); err != nil {
			return err
		}
		for _, b := range kept {
			if b.Name == nb.Name {
				return fmt.Errorf("%s: %q: %w", fm.File, nb.Name, ErrDuplicateBlock)
			}
			if b.Lines.Overlaps(nb.Lines) {
				return &OverlapError{File: fm.File, Requested: nb.Lines, Conflicts: []Block{b}}
			}
		}
		for _, other := range blocks[i+1:] {
			if other.Name == nb.Name {
				return fmt.Errorf("%s: %q: %w", fm.File, nb.Name, ErrDuplicateBlock)
			}
			if other.Lines.Overlaps(nb.Lines) {
				return &OverlapError{File: fm.File, Requested: other.Lines, Conflicts: []Block{nb}}
			}
		}
	}

	result := make([]Block, 0, len(kept)+len(blocks))
	result = append(result, kept[:insertAt]...)
	result = append(result, blocks...)
	result = append(result, kept[insertAt:]...)
	fm.Blocks = result
	return nil
}

// RemoveBlock deletes a block from a file's mapping
func (m *AlignmentMap) RemoveBlock(file, name string) (Block, error) {
	fm, ok := m.Mapping(file)
	if !ok {
		return Block{}, fmt.Errorf("%s: %w", file, ErrMappingNotFound)
	}
	for i, b := range fm.Blocks {
		if b.Name == name {
			fm.Blocks = append(fm.Blocks[:i:i], fm.Blocks[i+1:]...)
			return b, nil
		}
	}
	return Block{}, fmt.Errorf("%s: %q: %w", fm.File, name, ErrBlockNotFound)
}

// RemoveAlignment drops one aligned_with entry from a block
func (m *AlignmentMap) RemoveAlignment(file, name, ref string) error {
	fm, ok := m.Mapping(file)
	if !ok {
		return fmt.Errorf("%s: %w", file, ErrMappingNotFound)
	}
	b, ok := fm.Block(name)
	if !ok {
		return fmt.Errorf("%s: %q: %w", fm.File, name, ErrBlockNotFound)
	}
	kept := make([]Ref, 0, len(b.AlignedWith))
	for _, r := range b.AlignedWith {
		if r.String() != ref {
			kept = append(kept, r)
		}
	}
	b.AlignedWith = kept
	return nil
}

// RemoveMapping removes file's mapping and returns it with every block elsewhere
// in the map whose aligned_with points at the file or one of its block ids.
func (m *AlignmentMap) RemoveMapping(file string) (FileMapping, []Reference, error) {
	file = match.Normalize(file)
	idx := -1
	for i := range m.Mappings {
		if m.Mappings[i].File == file {
			idx = i
			break
		}
	}
	if idx < 0 {
		return FileMapping{}, nil, fmt.Errorf("%s: %w", file, ErrMappingNotFound)
	}

	removed := m.Mappings[idx]
	ids := make(map[string]bool)
	for _, b := range removed.Blocks {
		if b.ID != "" {
			ids[b.ID] = true
		}
	}

	var orphans []Reference
	for i, fm := range m.Mappings {
		if i == idx {
			continue
		}
		for _, b := range fm.Blocks {
			if b.References(file) || referencesID(b, ids) {
				orphans = append(orphans, Reference{File: fm.File, Block: b})
			}
		}
	}

	m.Mappings = append(m.Mappings[:idx:idx], m.Mappings[idx+1:]...)
	return removed, orphans, nil
}

func referencesID(b Block, ids map[string]bool) bool {
	for _, r := range b.AlignedWith {
		if r.IsCode() && ids[r.BlockID()] {
			return true
		}
	}
	return false
}

// GetAllReferencesTo returns every block with an aligned_with entry containing target.
// Matching is by substring and deliberately over-matches.
func (m *AlignmentMap) GetAllReferencesTo(target string) []Reference {
	var refs []Reference
	for _, fm := range m.Mappings {
		for _, b := range fm.Blocks {
			if b.References(target) {
				refs = append(refs, Reference{File: fm.File, Block: b})
			}
		}
	}
	return refs
}

// Clone returns a deep copy sharing no mutable state
func (m *AlignmentMap) Clone() *AlignmentMap {
	c := *m
	c.Hierarchy = Hierarchy{
		RequiresHuman: append([]string(nil), m.Hierarchy.RequiresHuman...),
		Technical:     append([]string(nil), m.Hierarchy.Technical...),
	}
	c.Settings.Ignore = append([]string(nil), m.Settings.Ignore...)
	c.Mappings = make([]FileMapping, 0, len(m.Mappings))
	for _, fm := range m.Mappings {
		c.Mappings = append(c.Mappings, fm.Clone())
	}
	return &c
}
