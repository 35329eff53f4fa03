package drift

import (
	"strings"
	"unicode"
)

// typeSuffixes are stripped from block names before matching; longer suffixes first
var typeSuffixes = []string{" async function", " async_function", " class", " function", " method"}

// TargetName strips a trailing construct label: "MyClass class" -> "MyClass"
func TargetName(blockName string) string {
	for _, suffix := range typeSuffixes {
		if strings.HasSuffix(blockName, suffix) {
			return strings.TrimSuffix(blockName, suffix)
		}
	}
	return blockName
}

// Tokens splits an identifier or phrase into lower-case words on
// punctuation, snake_case and camelCase boundaries
func Tokens(s string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

type tokenSet map[string]bool

func newTokenSet(s string) tokenSet {
	set := make(tokenSet)
	for _, t := range Tokens(s) {
		set[t] = true
	}
	return set
}

// score compares a block name against a span symbol. covered is the fraction
// of block tokens present in the symbol; similarity is the Jaccard index.
func score(block, symbol tokenSet) (covered, similarity float64) {
	if len(block) == 0 || len(symbol) == 0 {
		return 0, 0
	}
	shared := 0
	for t := range block {
		if symbol[t] {
			shared++
		}
	}
	union := len(block) + len(symbol) - shared
	return float64(shared) / float64(len(block)), float64(shared) / float64(union)
}
