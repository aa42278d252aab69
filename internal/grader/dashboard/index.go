// Package dashboard serves recorded runs over HTTP: a small HTML overview
// for people and a JSON API for scripts.
package dashboard

import (
	"sort"
	"strings"

	"github.com/build-flow-labs/apigrader/internal/grader/history"
)

// RunStore is the part of the history store the dashboard reads.
type RunStore interface {
	List(student string, limit int) ([]history.Entry, error)
	Get(runID string) (history.Entry, error)
}

// ListOptions controls filtering and sorting of run listings.
type ListOptions struct {
	Student   string // substring of the student name, case-insensitive
	Profile   string
	Grade     string
	SortField string // "date", "student", "grade", "percentage"
	SortDesc  bool
	Limit     int
}

func filterEntries(entries []history.Entry, opts ListOptions) []history.Entry {
	var filtered []history.Entry
	for _, e := range entries {
		if opts.Student != "" && !strings.Contains(strings.ToLower(e.Student), strings.ToLower(opts.Student)) {
			continue
		}
		if opts.Profile != "" && e.Profile != opts.Profile {
			continue
		}
		if opts.Grade != "" && !strings.EqualFold(e.Letter, opts.Grade) {
			continue
		}
		filtered = append(filtered, e)
	}

	sortEntries(filtered, opts.SortField, opts.SortDesc)
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}
	return filtered
}

// latestPerStudent returns the most recent run per student and profile,
// ordered by student.
func latestPerStudent(entries []history.Entry) []history.Entry {
	latest := make(map[string]history.Entry)
	for _, e := range entries {
		key := e.Student + "\x00" + e.Profile
		if existing, ok := latest[key]; !ok || e.CreatedAt.After(existing.CreatedAt) {
			latest[key] = e
		}
	}

	result := make([]history.Entry, 0, len(latest))
	for _, e := range latest {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Student != result[j].Student {
			return result[i].Student < result[j].Student
		}
		return result[i].Profile < result[j].Profile
	})
	return result
}

func sortEntries(entries []history.Entry, field string, desc bool) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "student":
			return a.Student < b.Student
		case "grade":
			return a.Letter < b.Letter
		case "percentage":
			return a.Percentage < b.Percentage
		default: // "date" or empty
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}
