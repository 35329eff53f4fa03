package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/alignmap/internal/match"
)

// The raw* types mirror the persisted document. Decoding goes
// YAML -> raw -> struct-tag validation -> conversion, so every
// field-level problem can be reported at once.

type rawMap struct {
	Version   *int         `yaml:"version" validate:"required,gte=1"`
	Hierarchy rawHierarchy `yaml:"hierarchy"`
	Settings  rawSettings  `yaml:"settings"`
	Mappings  []rawMapping `yaml:"mappings" validate:"dive"`
}

type rawHierarchy struct {
	RequiresHuman []string `yaml:"requires_human" validate:"dive,required"`
	Technical     []string `yaml:"technical" validate:"dive,required"`
}

type rawSettings struct {
	LineTolerance           *int     `yaml:"line_tolerance" validate:"omitempty,gte=0"`
	FuzzyMatch              *bool    `yaml:"fuzzy_match"`
	Ignore                  []string `yaml:"ignore" validate:"dive,required"`
	RespectGitignore        *bool    `yaml:"respect_gitignore"`
	RequireCompleteCoverage *bool    `yaml:"require_complete_coverage"`
}

type rawMapping struct {
	File   string     `yaml:"file" validate:"required"`
	Blocks []rawBlock `yaml:"blocks" validate:"dive"`
}

type rawBlock struct {
	Name              string   `yaml:"name" validate:"required"`
	ID                string   `yaml:"id,omitempty"`
	Lines             string   `yaml:"lines" validate:"required"`
	LastUpdated       string   `yaml:"last_updated,omitempty"`
	LastUpdateComment string   `yaml:"last_update_comment,omitempty"`
	LastReviewed      string   `yaml:"last_reviewed,omitempty"`
	AlignedWith       []string `yaml:"aligned_with" validate:"dive,required"`
}

var schemaValidate = newSchemaValidator()

func newSchemaValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode strictly parses a map document
func Decode(data []byte) (*AlignmentMap, error) {
	var raw rawMap
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Problems: []FieldError{{Field: "document", Message: "empty"}}}
		}
		return nil, &SchemaError{Problems: []FieldError{{Field: "document", Message: err.Error()}}}
	}

	schemaErr := &SchemaError{}
	if err := schemaValidate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate alignment map: %w", err)
		}
		for _, fe := range verrs {
			schemaErr.add(fieldPath(fe.Namespace()), "failed %q%s", fe.Tag(), paramSuffix(fe.Param()))
		}
	}

	m := convert(raw, schemaErr)
	if err := schemaErr.orNil(); err != nil {
		return nil, err
	}
	return m, nil
}

func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return " (" + p + ")"
}

func convert(raw rawMap, schemaErr *SchemaError) *AlignmentMap {
	m := New()
	if raw.Version != nil {
		m.Version = *raw.Version
	}
	m.Hierarchy = Hierarchy{
		RequiresHuman: nonNil(raw.Hierarchy.RequiresHuman),
		Technical:     nonNil(raw.Hierarchy.Technical),
	}
	if _, err := m.Hierarchy.NewClassifier(); err != nil {
		schemaErr.add("hierarchy", "%v", err)
	}
	human := make(map[string]bool)
	for _, p := range m.Hierarchy.RequiresHuman {
		human[p] = true
	}
	for i, p := range m.Hierarchy.Technical {
		if human[p] {
			schemaErr.add(fmt.Sprintf("hierarchy.technical[%d]", i), "pattern %q is also listed under requires_human", p)
		}
	}

	if raw.Settings.LineTolerance != nil {
		m.Settings.LineTolerance = *raw.Settings.LineTolerance
	}
	if raw.Settings.FuzzyMatch != nil {
		m.Settings.FuzzyMatch = *raw.Settings.FuzzyMatch
	}
	if raw.Settings.RespectGitignore != nil {
		m.Settings.RespectGitignore = *raw.Settings.RespectGitignore
	}
	if raw.Settings.RequireCompleteCoverage != nil {
		m.Settings.RequireCompleteCoverage = *raw.Settings.RequireCompleteCoverage
	}
	m.Settings.Ignore = nonNil(raw.Settings.Ignore)
	if _, err := match.Compile(m.Settings.Ignore); err != nil {
		schemaErr.add("settings.ignore", "%v", err)
	}

	files := make(map[string]bool)
	ids := make(map[string]string)
	for i, rm := range raw.Mappings {
		field := fmt.Sprintf("mappings[%d]", i)
		fm := FileMapping{File: match.Normalize(rm.File)}
		if fm.File != "" && files[fm.File] {
			schemaErr.add(field+".file", "duplicate mapping for %s", fm.File)
		}
		files[fm.File] = true

		names := make(map[string]bool)
		for j, rb := range rm.Blocks {
			bfield := fmt.Sprintf("%s.blocks[%d]", field, j)
			b := Block{
				Name:              rb.Name,
				ID:                rb.ID,
				LastUpdateComment: rb.LastUpdateComment,
				AlignedWith:       ParseRefs(rb.AlignedWith),
			}
			if rb.Name != "" && names[rb.Name] {
				schemaErr.add(bfield+".name", "duplicate block name %q in %s", rb.Name, fm.File)
			}
			names[rb.Name] = true

			if rb.ID != "" {
				if prev, ok := ids[rb.ID]; ok {
					schemaErr.add(bfield+".id", "id %q already used by %s", rb.ID, prev)
				}
				ids[rb.ID] = bfield
			}

			if rb.Lines != "" {
				r, err := ParseLineRange(rb.Lines)
				if err != nil {
					schemaErr.add(bfield+".lines", "%v", err)
				}
				b.Lines = r
			}
			b.LastUpdated = parseOptionalTime(rb.LastUpdated, bfield+".last_updated", schemaErr)
			b.LastReviewed = parseOptionalTime(rb.LastReviewed, bfield+".last_reviewed", schemaErr)
			fm.Blocks = append(fm.Blocks, b)
		}
		m.Mappings = append(m.Mappings, fm)
	}
	return m
}

func parseOptionalTime(value, field string, schemaErr *SchemaError) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, err := ParseTimestamp(value)
	if err != nil {
		schemaErr.add(field, "%v", err)
		return nil
	}
	return &t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type outMap struct {
	Version   int          `yaml:"version"`
	Hierarchy Hierarchy    `yaml:"hierarchy"`
	Settings  Settings     `yaml:"settings"`
	Mappings  []outMapping `yaml:"mappings"`
}

type outMapping struct {
	File   string     `yaml:"file"`
	Blocks []outBlock `yaml:"blocks"`
}

type outBlock struct {
	Name              string    `yaml:"name"`
	ID                string    `yaml:"id,omitempty"`
	Lines             LineRange `yaml:"lines"`
	LastUpdated       string    `yaml:"last_updated,omitempty"`
	LastUpdateComment string    `yaml:"last_update_comment,omitempty"`
	LastReviewed      string    `yaml:"last_reviewed,omitempty"`
	AlignedWith       []string  `yaml:"aligned_with"`
}

// Encode renders the canonical document: ranges as "start-end", timestamps in RFC 3339
func Encode(m *AlignmentMap) ([]byte, error) {
	out := outMap{
		Version:   m.Version,
		Hierarchy: Hierarchy{RequiresHuman: nonNil(m.Hierarchy.RequiresHuman), Technical: nonNil(m.Hierarchy.Technical)},
		Settings:  m.Settings,
		Mappings:  make([]outMapping, 0, len(m.Mappings)),
	}
	out.Settings.Ignore = nonNil(out.Settings.Ignore)

	for _, fm := range m.Mappings {
		om := outMapping{File: fm.File, Blocks: make([]outBlock, 0, len(fm.Blocks))}
		for _, b := range fm.Blocks {
			om.Blocks = append(om.Blocks, outBlock{
				Name:              b.Name,
				ID:                b.ID,
				Lines:             b.Lines,
				LastUpdated:       formatOptional(b.LastUpdated),
				LastUpdateComment: b.LastUpdateComment,
				LastReviewed:      formatOptional(b.LastReviewed),
				AlignedWith:       RefStrings(b.AlignedWith),
			})
		}
		out.Mappings = append(out.Mappings, om)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode alignment map: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode alignment map: %w", err)
	}
	return buf.Bytes(), nil
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t)
}

// Load reads a map file and sets the project root to its directory
func Load(path string) (*AlignmentMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alignment map: %w", err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.SetProjectRoot(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return m, nil
}

// Save encodes m and replaces path atomically
func Save(m *AlignmentMap, path string) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o644)
}

// WriteFileAtomic writes data to a temp file in the same directory and renames it over path
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
