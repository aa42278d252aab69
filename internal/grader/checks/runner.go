// Package checks runs an evaluation profile against a student project: the
// static suites read the project source, the HTTP suites exercise the running
// API, and every result is scored into the profile's categories.
package checks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/build-flow-labs/apigrader/inspect"
	"github.com/build-flow-labs/apigrader/internal/grader/profile"
	"github.com/build-flow-labs/apigrader/probe"
	"github.com/build-flow-labs/apigrader/scorer"
)

// Resetter empties the student database between runs.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Options configures a Runner. Profile is required. Source, Prober and
// Cleaner may be nil; the suites that need them are then skipped.
type Options struct {
	Profile  *profile.Profile
	Source   inspect.Source
	Prober   *probe.Prober
	Cleaner  Resetter
	Student  string
	Progress io.Writer
	Logger   *slog.Logger
}

// Outcome is the result of one run.
type Outcome struct {
	RunID         string        `json:"run_id"`
	Student       string        `json:"student"`
	Profile       string        `json:"profile"`
	Source        string        `json:"source,omitempty"`
	BaseURL       string        `json:"base_url,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	ServerSkipped bool          `json:"server_skipped"`
	Report        scorer.Report `json:"report"`
}

// Runner evaluates one project with one profile.
type Runner struct {
	opts Options
	now  func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{opts: opts, now: time.Now}
}

// Run executes the profile. Check failures are reported as observations in
// the outcome; the only error returned is the context's.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	p := r.opts.Profile
	if p == nil {
		return nil, errors.New("runner: no profile")
	}

	sc := scorer.New(p.Table())
	start := r.now()
	out := &Outcome{
		RunID:     uuid.NewString(),
		Student:   r.opts.Student,
		Profile:   p.Name,
		StartedAt: start,
	}
	if r.opts.Source != nil {
		out.Source = r.opts.Source.Name()
	}
	if r.opts.Prober != nil {
		out.BaseURL = r.opts.Prober.BaseURL()
	}

	e := &evaluation{
		ctx:     ctx,
		profile: p,
		scorer:  sc,
		out:     r.opts.Progress,
		logger:  r.opts.Logger.With("run_id", out.RunID),
	}
	e.logger.Info("evaluation started", "profile", p.Name, "student", out.Student, "source", out.Source)

	if p.HasKind(profile.KindStatic) {
		if r.opts.Source == nil {
			sc.AddObservation("project source not available: static checks skipped")
		} else {
			runStatic(e, r.opts.Source)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.NeedsServer() {
		out.ServerSkipped = !r.runHTTP(e)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.Report = sc.Finalize()
	out.Duration = r.now().Sub(start)
	e.logger.Info("evaluation finished",
		"percentage", out.Report.Percentage,
		"grade", out.Report.Grade.Letter,
		"duration", out.Duration)
	return out, nil
}

// runHTTP runs the HTTP suites. It reports false when they were skipped
// because the server could not be reached.
func (r *Runner) runHTTP(e *evaluation) bool {
	prober := r.opts.Prober
	if prober == nil {
		e.scorer.AddObservation("no server address configured: HTTP checks skipped")
		return false
	}

	e.section("server")
	if res, ok := prober.CheckServer(e.ctx); !ok {
		msg := fmt.Sprintf("server not reachable at %s: HTTP checks skipped", prober.BaseURL())
		fmt.Fprintf(e.out, "  [~] %s (%s)\n", msg, res.Err)
		e.scorer.AddObservation(msg)
		e.logger.Warn("server not reachable", "base_url", prober.BaseURL(), "error", res.Err)
		return false
	}
	fmt.Fprintf(e.out, "  server answering at %s\n", prober.BaseURL())

	r.resetDatabase(e, "before")
	suite := &httpSuite{evaluation: e, prober: prober}
	suite.run()
	r.resetDatabase(e, "after")
	return true
}

func (r *Runner) resetDatabase(e *evaluation, when string) {
	if r.opts.Cleaner == nil {
		return
	}
	if err := r.opts.Cleaner.Reset(e.ctx); err != nil {
		e.logger.Warn("database reset failed", "when", when, "error", err)
		return
	}
	e.logger.Debug("database reset", "when", when)
}
