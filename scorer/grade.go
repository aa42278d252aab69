package scorer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidGrade is returned by ParseLetter for anything other than A-F.
var ErrInvalidGrade = errors.New("invalid grade letter")

// Grade is the letter and numeric mark derived from a percentage.
type Grade struct {
	Letter string  `json:"letter"`
	Mark   float64 `json:"mark"`
}

// band maps a lower percentage bound to a letter. Marks inside a band grow
// linearly from floor to floor+1.
type band struct {
	min    float64
	letter string
	floor  float64
}

var bands = []band{
	{90, "A", 9},
	{80, "B", 8},
	{70, "C", 7},
	{60, "D", 6},
}

// GradeFor maps a percentage to a grade. Bands are checked top-down and the
// first match wins; below 60 the letter is F and the mark is pct/10.
// Marks jump at each band boundary (89.9% -> 8.99, 90% -> 9.0).
func GradeFor(pct float64) Grade {
	for _, b := range bands {
		if pct >= b.min {
			return Grade{Letter: b.letter, Mark: b.floor + (pct-b.min)/10}
		}
	}
	return Grade{Letter: "F", Mark: pct / 10}
}

// letterRank orders letters from best (0) to worst.
var letterRank = map[string]int{"A": 0, "B": 1, "C": 2, "D": 3, "F": 4}

// ParseLetter normalizes a grade letter and rejects anything outside A-F.
func ParseLetter(s string) (string, error) {
	l := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := letterRank[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidGrade, s)
	}
	return l, nil
}

// AtLeast reports whether letter is as good as or better than min.
// Unknown letters never pass.
func AtLeast(letter, min string) bool {
	got, ok := letterRank[letter]
	if !ok {
		return false
	}
	want, ok := letterRank[min]
	if !ok {
		return false
	}
	return got <= want
}
