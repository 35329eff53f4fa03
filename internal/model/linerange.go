package model

import (
	"fmt"
	"strconv"
	"strings"
)

// LineRange is an inclusive, 1-based range of lines in a file
type LineRange struct {
	Start int
	End   int
}

// NewLineRange creates a validated range
func NewLineRange(start, end int) (LineRange, error) {
	r := LineRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return LineRange{}, err
	}
	return r, nil
}

// MustLineRange is NewLineRange for literals known to be valid
func MustLineRange(start, end int) LineRange {
	r, err := NewLineRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseLineRange parses the canonical "start-end" form
func ParseLineRange(s string) (LineRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return LineRange{}, &RangeError{Input: s, Reason: `expected "start-end"`}
	}

	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return LineRange{}, &RangeError{Input: s, Reason: "start is not a number"}
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return LineRange{}, &RangeError{Input: s, Reason: "end is not a number"}
	}

	r := LineRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return LineRange{}, err
	}
	return r, nil
}

// Validate rejects ranges that can never address real lines
func (r LineRange) Validate() error {
	if r.Start < 1 {
		return &RangeError{Input: r.String(), Reason: "start must be >= 1"}
	}
	if r.End < r.Start {
		return &RangeError{Input: r.String(), Reason: fmt.Sprintf("end (%d) must be >= start (%d)", r.End, r.Start)}
	}
	return nil
}

// Contains reports whether line falls inside the range
func (r LineRange) Contains(line int) bool {
	return r.Start <= line && line <= r.End
}

// ContainsRange reports whether other lies entirely inside r
func (r LineRange) ContainsRange(other LineRange) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Overlaps reports whether the ranges share at least one line
func (r LineRange) Overlaps(other LineRange) bool {
	return !(r.End < other.Start || other.End < r.Start)
}

// Distance is the number of lines between line and the nearest boundary (0 inside)
func (r LineRange) Distance(line int) int {
	if r.Contains(line) {
		return 0
	}
	if line < r.Start {
		return r.Start - line
	}
	return line - r.End
}

// Len returns the number of lines covered
func (r LineRange) Len() int {
	return r.End - r.Start + 1
}

// Union returns the smallest range covering both
func (r LineRange) Union(other LineRange) LineRange {
	return LineRange{Start: min(r.Start, other.Start), End: max(r.End, other.End)}
}

func (r LineRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// MarshalYAML renders the range as "start-end"
func (r LineRange) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}
