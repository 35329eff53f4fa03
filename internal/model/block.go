package model

import (
	"strings"
	"time"
)

// Block is a named, line-addressed unit of code or documentation within one file
type Block struct {
	Name              string
	ID                string
	Lines             LineRange
	LastUpdated       *time.Time
	LastUpdateComment string
	LastReviewed      *time.Time
	AlignedWith       []Ref
}

// Clone returns a deep copy
func (b Block) Clone() Block {
	c := b
	if b.LastUpdated != nil {
		t := *b.LastUpdated
		c.LastUpdated = &t
	}
	if b.LastReviewed != nil {
		t := *b.LastReviewed
		c.LastReviewed = &t
	}
	c.AlignedWith = append([]Ref(nil), b.AlignedWith...)
	return c
}

// UpdatedAt returns LastUpdated or the zero time
func (b Block) UpdatedAt() time.Time {
	if b.LastUpdated == nil {
		return time.Time{}
	}
	return *b.LastUpdated
}

// References reports whether any aligned_with entry contains target
func (b Block) References(target string) bool {
	for _, ref := range b.AlignedWith {
		if strings.Contains(ref.String(), target) {
			return true
		}
	}
	return false
}

// FileMapping is one file and its blocks, in declaration order
type FileMapping struct {
	File   string
	Blocks []Block
}

// Block finds a block by name
func (fm *FileMapping) Block(name string) (*Block, bool) {
	for i := range fm.Blocks {
		if fm.Blocks[i].Name == name {
			return &fm.Blocks[i], true
		}
	}
	return nil, false
}

// BlockForLine returns the first block containing line
func (fm *FileMapping) BlockForLine(line int) (*Block, bool) {
	for i := range fm.Blocks {
		if fm.Blocks[i].Lines.Contains(line) {
			return &fm.Blocks[i], true
		}
	}
	return nil, false
}

// NearestBlock returns the block with the smallest distance to line.
// Ties go to the block declared first.
func (fm *FileMapping) NearestBlock(line int) (*Block, bool) {
	var nearest *Block
	best := 0
	for i := range fm.Blocks {
		d := fm.Blocks[i].Lines.Distance(line)
		if nearest == nil || d < best {
			nearest = &fm.Blocks[i]
			best = d
		}
	}
	return nearest, nearest != nil
}

// OverlapsWith returns the blocks overlapping r, skipping the names in except
func (fm *FileMapping) OverlapsWith(r LineRange, except ...string) []Block {
	skip := make(map[string]bool, len(except))
	for _, name := range except {
		skip[name] = true
	}
	var out []Block
	for _, b := range fm.Blocks {
		if skip[b.Name] {
			continue
		}
		if b.Lines.Overlaps(r) {
			out = append(out, b)
		}
	}
	return out
}

// OverlapPair is two blocks of the same file that share lines
type OverlapPair struct {
	First  Block
	Second Block
}

// Overlaps lists every overlapping pair in declaration order
func (fm *FileMapping) Overlaps() []OverlapPair {
	var pairs []OverlapPair
	for i := 0; i < len(fm.Blocks); i++ {
		for j := i + 1; j < len(fm.Blocks); j++ {
			if fm.Blocks[i].Lines.Overlaps(fm.Blocks[j].Lines) {
				pairs = append(pairs, OverlapPair{First: fm.Blocks[i], Second: fm.Blocks[j]})
			}
		}
	}
	return pairs
}

// Coverage returns the fraction of lineCount lines covered by some block
func (fm *FileMapping) Coverage(lineCount int) float64 {
	if lineCount <= 0 {
		return 0
	}
	covered := make(map[int]bool)
	for _, b := range fm.Blocks {
		for l := b.Lines.Start; l <= b.Lines.End && l <= lineCount; l++ {
			covered[l] = true
		}
	}
	return float64(len(covered)) / float64(lineCount)
}

// Clone returns a deep copy
func (fm FileMapping) Clone() FileMapping {
	c := FileMapping{File: fm.File, Blocks: make([]Block, 0, len(fm.Blocks))}
	for _, b := range fm.Blocks {
		c.Blocks = append(c.Blocks, b.Clone())
	}
	return c
}
