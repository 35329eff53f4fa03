package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBlockNotFound is returned when no block with the given name exists in a file
	ErrBlockNotFound = errors.New("block not found")

	// ErrMappingNotFound is returned when a file has no mapping
	ErrMappingNotFound = errors.New("mapping not found")

	// ErrDuplicateMapping is returned when a file is mapped twice
	ErrDuplicateMapping = errors.New("mapping already exists")

	// ErrDuplicateBlock is returned when a block name is reused within a file
	ErrDuplicateBlock = errors.New("block name already used in file")

	// ErrNoProjectRoot is returned when a root-relative operation runs before the root is set
	ErrNoProjectRoot = errors.New("project root not set")
)

// RangeError reports a malformed line range
type RangeError struct {
	Input  string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid line range %q: %s", e.Input, e.Reason)
}

// OverlapError reports blocks that would overlap the requested range
type OverlapError struct {
	File      string
	Requested LineRange
	Conflicts []Block
}

func (e *OverlapError) Error() string {
	names := make([]string, 0, len(e.Conflicts))
	for _, b := range e.Conflicts {
		names = append(names, fmt.Sprintf("%q (%s)", b.Name, b.Lines))
	}
	return fmt.Sprintf("%s: lines %s overlap with %s", e.File, e.Requested, strings.Join(names, ", "))
}

// FieldError is one problem found while decoding a map document
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// SchemaError collects every field-level problem of a structurally invalid map
type SchemaError struct {
	Problems []FieldError
}

func (e *SchemaError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid alignment map: " + e.Problems[0].String()
	}
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, "  - "+p.String())
	}
	return fmt.Sprintf("invalid alignment map (%d problems):\n%s", len(e.Problems), strings.Join(lines, "\n"))
}

func (e *SchemaError) add(field, format string, args ...interface{}) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *SchemaError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
