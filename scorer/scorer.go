// Package scorer accumulates points across weighted categories and turns
// the totals into a percentage, a letter grade (A-F) and a numeric mark (0-10).
//
// A Scorer is owned by a single evaluation run. It is not safe for
// concurrent use.
package scorer

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned when points are added to a category that
// was not declared when the Scorer was built.
var ErrUnknownCategory = errors.New("unknown category")

// CategorySpec declares a category and its point cap.
type CategorySpec struct {
	Name string  `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Max  float64 `json:"max" yaml:"max" jsonschema:"required,exclusiveMinimum=0"`
}

// Category is the accumulated state of one scoring bucket.
type Category struct {
	Name     string  `json:"name"`
	Obtained float64 `json:"obtained"`
	Max      float64 `json:"max"`
}

// Percentage returns obtained as a percentage of max, or 0 for an empty cap.
func (c Category) Percentage() float64 {
	if c.Max == 0 {
		return 0
	}
	return 100 * c.Obtained / c.Max
}

// Scorer tracks points per category and free-text observations.
type Scorer struct {
	categories   []Category
	index        map[string]int
	observations []string
}

// New builds a Scorer with zero obtained points. Categories keep the order
// of the table; a repeated name keeps its first declaration.
func New(table []CategorySpec) *Scorer {
	s := &Scorer{
		categories: make([]Category, 0, len(table)),
		index:      make(map[string]int, len(table)),
	}
	for _, spec := range table {
		if _, dup := s.index[spec.Name]; dup {
			continue
		}
		s.index[spec.Name] = len(s.categories)
		s.categories = append(s.categories, Category{Name: spec.Name, Max: spec.Max})
	}
	return s
}

// AddPoints adds amount to the named category. The category cap is not
// enforced; staying under it is the caller's job.
func (s *Scorer) AddPoints(category string, amount float64) error {
	i, ok := s.index[category]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	s.categories[i].Obtained += amount
	return nil
}

// AddObservation appends a note to the report. Notes are kept in order and
// never deduplicated.
func (s *Scorer) AddObservation(text string) {
	s.observations = append(s.observations, text)
}

// Category returns the current state of the named category.
func (s *Scorer) Category(name string) (Category, bool) {
	i, ok := s.index[name]
	if !ok {
		return Category{}, false
	}
	return s.categories[i], true
}

// Finalize computes totals, percentage and grade. It does not modify the
// Scorer and can be called more than once.
func (s *Scorer) Finalize() Report {
	r := Report{
		Categories:   make([]Category, len(s.categories)),
		Observations: make([]string, len(s.observations)),
	}
	copy(r.Categories, s.categories)
	copy(r.Observations, s.observations)

	for _, c := range r.Categories {
		r.Obtained += c.Obtained
		r.Max += c.Max
	}
	if r.Max != 0 {
		r.Percentage = 100 * r.Obtained / r.Max
	}
	r.Grade = GradeFor(r.Percentage)
	return r
}
