package checks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/build-flow-labs/apigrader/internal/grader/profile"
	"github.com/build-flow-labs/apigrader/scorer"
)

// evaluation is the state shared by the suites of one run.
type evaluation struct {
	ctx     context.Context
	profile *profile.Profile
	scorer  *scorer.Scorer
	out     io.Writer
	logger  *slog.Logger
}

func (e *evaluation) wants(id string) bool {
	return e.profile.Has(id)
}

func (e *evaluation) wantsAny(ids ...string) bool {
	for _, id := range ids {
		if e.wants(id) {
			return true
		}
	}
	return false
}

func (e *evaluation) section(title string) {
	fmt.Fprintf(e.out, "\n%s\n", strings.ToUpper(title))
}

// record scores a check the profile includes. Failures become observations
// even when the check is worth no points.
func (e *evaluation) record(id string, passed bool, reason string) {
	w, ok := e.profile.Weight(id)
	if !ok {
		return
	}
	if passed {
		if err := e.scorer.AddPoints(w.Category, w.Points); err != nil {
			e.logger.Warn("could not award points", "check", id, "error", err)
		}
		fmt.Fprintf(e.out, "  [+] %-28s +%s\n", id, formatPoints(w.Points))
		return
	}
	fmt.Fprintf(e.out, "  [-] %-28s %s\n", id, reason)
	e.scorer.AddObservation(fmt.Sprintf("%s: %s", title(id), reason))
}

func (e *evaluation) pass(id string) {
	e.record(id, true, "")
}

func (e *evaluation) fail(id, reason string) {
	e.record(id, false, reason)
}

// skip reports a check that could not run. It scores nothing.
func (e *evaluation) skip(id, reason string) {
	if !e.wants(id) {
		return
	}
	fmt.Fprintf(e.out, "  [~] %-28s skipped: %s\n", id, reason)
	e.scorer.AddObservation(fmt.Sprintf("%s: skipped (%s)", title(id), reason))
}

func (e *evaluation) failAll(reason string, ids ...string) {
	for _, id := range ids {
		e.fail(id, reason)
	}
}

func (e *evaluation) skipAll(reason string, ids ...string) {
	for _, id := range ids {
		e.skip(id, reason)
	}
}

func title(id string) string {
	if info, ok := profile.Lookup(id); ok {
		return info.Title
	}
	return id
}

func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
