package inspect

import (
	"regexp"
	"strings"
)

// Pattern describes something to look for in source text. Substrings are
// matched literally; Regexps are case-insensitive. With All set every
// substring and regexp must be present, otherwise any single one suffices.
type Pattern struct {
	Name       string
	Substrings []string
	Regexps    []string
	All        bool
}

// Match reports whether a pattern was found.
type Match struct {
	Name    string
	Present bool
}

// Present reports whether p matches text.
func (p Pattern) Present(text string) bool {
	var hits, total int
	for _, s := range p.Substrings {
		total++
		if strings.Contains(text, s) {
			hits++
		}
	}
	for _, expr := range p.Regexps {
		total++
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			hits++
		}
	}
	if total == 0 {
		return false
	}
	if p.All {
		return hits == total
	}
	return hits > 0
}

// Scan evaluates each pattern against text, in order.
func Scan(text string, patterns []Pattern) []Match {
	out := make([]Match, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, Match{Name: p.Name, Present: p.Present(text)})
	}
	return out
}

// CountPresent returns how many of the tokens occur in text.
func CountPresent(text string, tokens []string) int {
	n := 0
	for _, t := range tokens {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}
