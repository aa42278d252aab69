// Package profile holds evaluation profiles: the weight table of scoring
// categories and the checks that award points into them.
package profile

import (
	"errors"
	"fmt"

	"github.com/build-flow-labs/apigrader/scorer"
)

// ErrUnknownProfile is returned when a profile name is not registered.
var ErrUnknownProfile = errors.New("unknown profile")

// Profile selects which checks run and how much each is worth.
type Profile struct {
	Name        string                `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Categories  []scorer.CategorySpec `json:"categories" yaml:"categories" jsonschema:"required,minItems=1"`
	Checks      []CheckWeight         `json:"checks" yaml:"checks" jsonschema:"required"`
}

// CheckWeight assigns a check's points to a category. A check worth 0 points
// still runs and still reports an observation when it fails.
type CheckWeight struct {
	ID       string  `json:"id" yaml:"id" jsonschema:"required,minLength=1"`
	Category string  `json:"category" yaml:"category" jsonschema:"required,minLength=1"`
	Points   float64 `json:"points" yaml:"points" jsonschema:"minimum=0"`
}

// Table returns the scorer table for the profile.
func (p *Profile) Table() []scorer.CategorySpec {
	out := make([]scorer.CategorySpec, len(p.Categories))
	copy(out, p.Categories)
	return out
}

// Weight returns the weight of a check, if the profile includes it.
func (p *Profile) Weight(id string) (CheckWeight, bool) {
	for _, c := range p.Checks {
		if c.ID == id {
			return c, true
		}
	}
	return CheckWeight{}, false
}

// Has reports whether the profile includes the check.
func (p *Profile) Has(id string) bool {
	_, ok := p.Weight(id)
	return ok
}

// Max returns the sum of category maxima.
func (p *Profile) Max() float64 {
	var total float64
	for _, c := range p.Categories {
		total += c.Max
	}
	return total
}

// NeedsServer reports whether any check in the profile talks to the API.
func (p *Profile) NeedsServer() bool {
	return p.HasKind(KindHTTP)
}

// HasKind reports whether the profile lists a check of the given kind.
func (p *Profile) HasKind(kind Kind) bool {
	for _, c := range p.Checks {
		if info, ok := Lookup(c.ID); ok && info.Kind == kind {
			return true
		}
	}
	return false
}

// Validate checks the profile for internal consistency against the check
// catalog. The points assigned to a category may not exceed its maximum.
func (p *Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(p.Categories) == 0 {
		errs = append(errs, errors.New("at least one category is required"))
	}

	caps := make(map[string]float64, len(p.Categories))
	for _, c := range p.Categories {
		if c.Name == "" {
			errs = append(errs, errors.New("category with empty name"))
			continue
		}
		if _, dup := caps[c.Name]; dup {
			errs = append(errs, fmt.Errorf("category %q declared twice", c.Name))
			continue
		}
		if c.Max <= 0 {
			errs = append(errs, fmt.Errorf("category %q: max must be positive", c.Name))
		}
		caps[c.Name] = c.Max
	}

	assigned := make(map[string]float64)
	seen := make(map[string]bool)
	for _, c := range p.Checks {
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("check %q listed twice", c.ID))
			continue
		}
		seen[c.ID] = true
		if !Known(c.ID) {
			errs = append(errs, fmt.Errorf("check %q does not exist", c.ID))
		}
		if _, ok := caps[c.Category]; !ok {
			errs = append(errs, fmt.Errorf("check %q: unknown category %q", c.ID, c.Category))
			continue
		}
		if c.Points < 0 {
			errs = append(errs, fmt.Errorf("check %q: points must not be negative", c.ID))
			continue
		}
		assigned[c.Category] += c.Points
	}

	for _, c := range p.Categories {
		if got := assigned[c.Name]; got > c.Max+1e-9 {
			errs = append(errs, fmt.Errorf("category %q: checks assign %g points, max is %g", c.Name, got, c.Max))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("profile %q: %w", p.Name, errors.Join(errs...))
	}
	return nil
}
