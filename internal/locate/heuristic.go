package locate

import (
	"path/filepath"
	"regexp"
	"strings"
)

type declPattern struct {
	re   *regexp.Regexp
	kind Kind
}

// declPatterns match declarations at the start of a trimmed line; the last
// capture group is the symbol
var declPatterns = map[string][]declPattern{
	".js": {
		{regexp.MustCompile(`^class\s+(\w+)`), KindClass},
		{regexp.MustCompile(`^function\s+(\w+)`), KindFunction},
		{regexp.MustCompile(`^const\s+(\w+)\s*=\s*\(`), KindFunction},
		{regexp.MustCompile(`^export\s+class\s+(\w+)`), KindClass},
	},
	".ts": {
		{regexp.MustCompile(`^export\s+class\s+(\w+)`), KindClass},
		{regexp.MustCompile(`^class\s+(\w+)`), KindClass},
		{regexp.MustCompile(`^interface\s+(\w+)`), KindInterface},
		{regexp.MustCompile(`^function\s+(\w+)`), KindFunction},
		{regexp.MustCompile(`^export\s+function\s+(\w+)`), KindFunction},
	},
	".java": {
		{regexp.MustCompile(`^public\s+class\s+(\w+)`), KindClass},
		{regexp.MustCompile(`^class\s+(\w+)`), KindClass},
		{regexp.MustCompile(`^public\s+interface\s+(\w+)`), KindInterface},
		{regexp.MustCompile(`^(public|private|protected)?\s*\w+\s+(\w+)\s*\(`), KindMethod},
	},
	".go": {
		{regexp.MustCompile(`^type\s+(\w+)\s+struct`), KindStruct},
		{regexp.MustCompile(`^type\s+(\w+)\s+interface`), KindInterface},
		{regexp.MustCompile(`^func\s+(\w+)`), KindFunction},
		{regexp.MustCompile(`^func\s+\(\w+\s+\*?\w+\)\s+(\w+)`), KindMethod},
	},
}

var (
	pyClassRe = regexp.MustCompile(`^class\s+(\w+)`)
	pyDefRe   = regexp.MustCompile(`^def\s+(\w+)`)
	pyAsyncRe = regexp.MustCompile(`^async\s+def\s+(\w+)`)
)

// HasHeuristics reports whether Heuristic knows declaration patterns for path
func HasHeuristics(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := declPatterns[ext]
	return ok || ext == ".py"
}

// Heuristic finds declarations with per-language regexes when no grammar can
// parse the file. A block runs until the line before the next declaration.
func Heuristic(path string, src []byte) []Span {
	lines := strings.Split(string(src), "\n")
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".py" {
		return pythonHeuristic(lines)
	}

	patterns := declPatterns[ext]
	if len(patterns) == 0 {
		return nil
	}

	type decl struct {
		line   int
		symbol string
		kind   Kind
	}
	var decls []decl
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		for _, p := range patterns {
			if m := p.re.FindStringSubmatch(trimmed); m != nil {
				decls = append(decls, decl{line: i + 1, symbol: m[len(m)-1], kind: p.kind})
				break
			}
		}
	}

	spans := make([]Span, 0, len(decls))
	for i, d := range decls {
		end := len(lines)
		if i+1 < len(decls) {
			end = decls[i+1].line - 1
		}
		end = trimTrailingBlank(lines, d.line, end)
		spans = append(spans, newSpan(d.symbol, d.kind, d.line, end, ConfidenceLow))
	}
	return spans
}

// pythonHeuristic tracks indentation so methods stay inside their class
func pythonHeuristic(lines []string) []Span {
	var spans []Span
	var current *Span
	currentIndent := 0

	flush := func(end int) {
		if current == nil {
			return
		}
		current.Lines.End = trimTrailingBlank(lines, current.Lines.Start, max(end, current.Lines.Start))
		spans = append(spans, *current)
		current = nil
	}
	start := func(symbol string, kind Kind, line, indent int) {
		s := newSpan(symbol, kind, line, line, ConfidenceMedium)
		current = &s
		currentIndent = indent
	}

	for i, line := range lines {
		n := i + 1
		trimmed := strings.TrimLeft(line, " \t")
		indent := len(line) - len(trimmed)

		if m := pyClassRe.FindStringSubmatch(trimmed); m != nil {
			if current == nil || indent <= currentIndent {
				flush(n - 1)
				start(m[1], KindClass, n, indent)
			}
			continue
		}
		if m := pyDefRe.FindStringSubmatch(trimmed); m != nil {
			if current != nil && indent > currentIndent {
				continue
			}
			flush(n - 1)
			start(m[1], KindFunction, n, indent)
			continue
		}
		if m := pyAsyncRe.FindStringSubmatch(trimmed); m != nil {
			if current != nil && indent > currentIndent {
				continue
			}
			flush(n - 1)
			start(m[1], KindAsyncFunction, n, indent)
		}
	}
	flush(len(lines))
	return spans
}

// WholeFile proposes the entire file as one block
func WholeFile(path string, lineCount int) Span {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return newSpan(stem, KindFile, 1, max(lineCount, 1), ConfidenceLow)
}
