package model

import (
	"path"
	"strings"
)

// RefKind distinguishes document and code alignment targets
type RefKind string

const (
	RefDoc  RefKind = "doc"
	RefCode RefKind = "code"
)

// documentExts are the file types treated as documentation targets
var documentExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
	".rst":      true,
	".txt":      true,
	".adoc":     true,
}

// Ref is a parsed aligned_with entry.
//
// Doc refs look like "docs/X.md" or "docs/X.md#anchor"; code refs look like
// "src/a.py#block-id" and point at a block id anywhere in the map.
type Ref struct {
	Kind RefKind
	Path string
	// Anchor is the heading anchor of a doc ref or the block id of a code ref
	Anchor string
	raw    string
}

// ParseRef classifies a reference string
func ParseRef(s string) Ref {
	raw := strings.TrimSpace(s)
	p, frag, hasFrag := strings.Cut(raw, "#")
	r := Ref{Kind: RefDoc, Path: p, Anchor: frag, raw: raw}
	if hasFrag && frag != "" && !IsDocumentPath(p) {
		r.Kind = RefCode
	}
	return r
}

// DocRef builds a document reference
func DocRef(p, anchor string) Ref {
	raw := p
	if anchor != "" {
		raw += "#" + anchor
	}
	return Ref{Kind: RefDoc, Path: p, Anchor: anchor, raw: raw}
}

// CodeRef builds a code reference to a block id
func CodeRef(p, id string) Ref {
	return Ref{Kind: RefCode, Path: p, Anchor: id, raw: p + "#" + id}
}

// IsDocumentPath reports whether p names a documentation file
func IsDocumentPath(p string) bool {
	return documentExts[strings.ToLower(path.Ext(p))]
}

// IsCode reports whether the ref targets a code block
func (r Ref) IsCode() bool {
	return r.Kind == RefCode
}

// BlockID returns the referenced block id of a code ref
func (r Ref) BlockID() string {
	if r.Kind != RefCode {
		return ""
	}
	return r.Anchor
}

func (r Ref) String() string {
	if r.raw != "" {
		return r.raw
	}
	if r.Anchor != "" {
		return r.Path + "#" + r.Anchor
	}
	return r.Path
}

// MarshalYAML renders the original reference text
func (r Ref) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// ParseRefs parses a list of reference strings in order
func ParseRefs(values []string) []Ref {
	refs := make([]Ref, 0, len(values))
	for _, v := range values {
		refs = append(refs, ParseRef(v))
	}
	return refs
}

// RefStrings renders refs back to strings
func RefStrings(refs []Ref) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.String())
	}
	return out
}
