package vcs

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// FileDiff is the changed-line view of one file in a diff
type FileDiff struct {
	Path string
	// Lines are new-file line numbers that were added, plus the line at which
	// each pure deletion happened
	Lines []int
	// Deleted marks files removed by the diff
	Deleted bool
}

// ParseDiff extracts changed line numbers per file from unified diff output
func ParseDiff(data []byte) ([]FileDiff, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(data)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	out := make([]FileDiff, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		if fd.NewName == "/dev/null" {
			out = append(out, FileDiff{Path: stripPrefix(fd.OrigName), Deleted: true})
			continue
		}
		lines := make(map[int]bool)
		for _, h := range fd.Hunks {
			for _, l := range hunkLines(h) {
				lines[l] = true
			}
		}
		out = append(out, FileDiff{Path: stripPrefix(fd.NewName), Lines: sortedKeys(lines)})
	}
	return out, nil
}

func hunkLines(h *diff.Hunk) []int {
	var added []int
	deleted := false
	cur := int(h.NewStartLine)
	for _, line := range strings.Split(string(h.Body), "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			added = append(added, cur)
			cur++
		case ' ':
			cur++
		case '-':
			deleted = true
		}
	}
	if len(added) == 0 && deleted {
		// "@@ -5,2 +4,0 @@" removes lines after new line 4
		return []int{max(int(h.NewStartLine), 1)}
	}
	return added
}

func stripPrefix(name string) string {
	name = strings.TrimPrefix(name, "b/")
	return strings.TrimPrefix(name, "a/")
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
