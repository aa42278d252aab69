// Package setup implements the interactive `apigrader init` wizard that
// writes apigrader.yml.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/build-flow-labs/apigrader/inspect"
	"github.com/build-flow-labs/apigrader/internal/grader/config"
	"github.com/build-flow-labs/apigrader/internal/grader/dbreset"
	"github.com/build-flow-labs/apigrader/internal/grader/profile"
	"github.com/build-flow-labs/apigrader/internal/grader/report"
	"github.com/build-flow-labs/apigrader/scorer"
)

// DefaultHistoryPath is offered when the user enables run history.
const DefaultHistoryPath = ".apigrader/history.db"

// StepResult records the outcome of a single wizard step.
type StepResult struct {
	Step   string
	Action string // "created", "configured", "skipped", "dry-run", "error"
	Detail string
}

// Wizard orchestrates the interactive setup process.
type Wizard struct {
	registry *profile.Registry
	prompt   *prompter
	out      io.Writer
	dryRun   bool
	logger   *slog.Logger
	gitName  func(dir string) string

	cfg     config.Config
	profile *profile.Profile
	src     inspect.Source
	step    string
	results []StepResult
}

// NewWizard creates a setup wizard reading answers from in.
func NewWizard(reg *profile.Registry, in io.Reader, out io.Writer, dryRun bool) *Wizard {
	return &Wizard{
		registry: reg,
		prompt:   newPrompter(in, out),
		out:      out,
		dryRun:   dryRun,
		logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		gitName:  config.GitUserName,
		cfg:      config.Defaults(),
	}
}

// Config returns the configuration assembled so far.
func (w *Wizard) Config() config.Config {
	return w.cfg
}

// Results returns the recorded step outcomes.
func (w *Wizard) Results() []StepResult {
	return w.results
}

// Run asks every question and writes the result to path.
func (w *Wizard) Run(ctx context.Context, path string) error {
	fmt.Fprintln(w.out, "")
	fmt.Fprintln(w.out, "  apigrader setup")
	fmt.Fprintln(w.out, "  ===============")
	if w.dryRun {
		fmt.Fprintln(w.out, "  (dry-run mode: nothing will be written)")
	}
	fmt.Fprintln(w.out, "")

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"Locate project", w.locateProject},
		{"Choose profile", w.chooseProfile},
		{"Configure server", w.configureServer},
		{"Database reset", w.configureReset},
		{"Grade gate and history", w.configureGate},
		{"Write config", func(context.Context) error { return w.writeConfig(path) }},
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(w.out, "\n--- Step %d/%d: %s ---\n", i+1, len(steps), step.name)
		w.step = step.name
		if err := step.fn(ctx); err != nil {
			w.results = append(w.results, StepResult{
				Step:   step.name,
				Action: "error",
				Detail: err.Error(),
			})
			fmt.Fprintf(w.out, "  Error: %v\n", err)
			// Nothing else makes sense without a project or a valid file.
			if i == 0 || i == len(steps)-1 {
				return fmt.Errorf("setup failed at step %d (%s): %w", i+1, step.name, err)
			}
			if !w.prompt.askYesNo("  Continue with remaining steps?", true) {
				return fmt.Errorf("setup aborted at step %d", i+1)
			}
		}
	}

	w.printSummary()
	return nil
}

func (w *Wizard) locateProject(ctx context.Context) error {
	choice := w.prompt.askChoice("Where is the project?", []string{"Local directory", "GitHub repository"}, 0)

	var folder string
	if choice == 0 {
		dir := w.prompt.askDefault("Project directory", w.cfg.Dir)
		w.cfg.Dir = dir
		w.src = inspect.NewLocalSource(dir)
		folder = dir
	} else {
		spec := w.prompt.ask("Repository (owner/name[@ref]):")
		owner, repo, ref, err := inspect.ParseRepo(spec)
		if err != nil {
			return err
		}
		w.cfg.Repo = spec
		w.src = inspect.NewGitHubSource(ctx, os.Getenv("GITHUB_TOKEN"), owner, repo, ref, w.logger)
		folder = repo
	}

	if !w.src.Exists("package.json") {
		return fmt.Errorf("no package.json in %s", w.src.Name())
	}
	w.record("found", w.src.Name())

	git := func() string { return "" }
	if w.cfg.Repo == "" {
		git = func() string { return w.gitName(folder) }
	}
	w.cfg.Student = w.prompt.askDefault("Student name", config.DetectStudent(folder, git))
	return nil
}

func (w *Wizard) chooseProfile(_ context.Context) error {
	profiles := w.registry.List()
	options := make([]string, len(profiles))
	def := 0
	for i, p := range profiles {
		options[i] = fmt.Sprintf("%-10s %s (max %s)", p.Name, p.Description, report.Points(p.Max()))
		if p.Name == profile.Default {
			def = i
		}
	}
	w.profile = profiles[w.prompt.askChoice("Evaluation profile:", options, def)]
	w.cfg.Profile = w.profile.Name
	w.record("configured", "profile "+w.profile.Name)
	return nil
}

func (w *Wizard) configureServer(_ context.Context) error {
	if !w.profile.NeedsServer() {
		w.record("skipped", fmt.Sprintf("profile %s has no HTTP checks", w.profile.Name))
		return nil
	}
	w.cfg.BaseURL = w.prompt.askBaseURL("Server base URL", w.cfg.BaseURL)
	w.cfg.Timeout = w.prompt.askTimeout("Request timeout", w.cfg.Timeout)
	w.record("configured", fmt.Sprintf("%s (timeout %s)", w.cfg.BaseURL, w.cfg.Timeout))
	return nil
}

func (w *Wizard) configureReset(_ context.Context) error {
	if !w.profile.NeedsServer() {
		w.record("skipped", "no HTTP checks, nothing to clean")
		return nil
	}
	if !w.prompt.askYesNo("Clear the student database before and after HTTP checks?", false) {
		w.record("skipped", "database reset disabled")
		return nil
	}

	_, err := dbreset.ResolveURL(w.src, "")
	switch {
	case err == nil:
		w.cfg.ResetDB = true
		w.record("configured", "database URL taken from "+dbreset.SchemaPath)
	case errors.Is(err, dbreset.ErrNoDatabaseURL):
		w.logger.Debug("no database url in project", "error", err)
		url := w.prompt.ask("Database URL (empty to disable reset):")
		if url == "" {
			w.record("skipped", "no database URL")
			return nil
		}
		w.cfg.ResetDB = true
		w.cfg.DatabaseURL = url
		w.record("configured", "explicit database URL")
	default:
		return err
	}
	return nil
}

func (w *Wizard) configureGate(_ context.Context) error {
	if answer := w.prompt.ask("Minimum grade for a passing run (A-F, empty for none):"); answer != "" {
		letter, err := scorer.ParseLetter(answer)
		if err != nil {
			return err
		}
		w.cfg.MinGrade = letter
	}
	if w.prompt.askYesNo("Keep a local history of runs?", true) {
		w.cfg.History = w.prompt.askDefault("History database", DefaultHistoryPath)
	}

	gate := "no minimum grade"
	if w.cfg.MinGrade != "" {
		gate = "minimum grade " + w.cfg.MinGrade
	}
	hist := "history off"
	if w.cfg.History != "" {
		hist = "history at " + w.cfg.History
	}
	w.record("configured", gate+", "+hist)
	return nil
}

func (w *Wizard) writeConfig(path string) error {
	if err := w.cfg.Validate(); err != nil {
		return err
	}
	data, err := config.Marshal(w.cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if w.dryRun {
		fmt.Fprintf(w.out, "\n# %s\n%s", path, data)
		w.record("dry-run", "would write "+path)
		return nil
	}

	if _, err := os.Stat(path); err == nil {
		if !w.prompt.askYesNo(fmt.Sprintf("%s exists. Overwrite?", path), false) {
			w.record("skipped", path+" left unchanged")
			return nil
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	w.record("created", path)
	return nil
}

// record adds a step result and prints it.
func (w *Wizard) record(action, detail string) {
	w.results = append(w.results, StepResult{Step: w.step, Action: action, Detail: detail})
	marker := "+"
	switch action {
	case "skipped":
		marker = "-"
	case "dry-run":
		marker = "~"
	case "error":
		marker = "!"
	}
	fmt.Fprintf(w.out, "  [%s] %s: %s\n", marker, action, detail)
}

func (w *Wizard) printSummary() {
	fmt.Fprintln(w.out, "")
	fmt.Fprintln(w.out, "  Summary")
	fmt.Fprintln(w.out, "  -------")
	for _, r := range w.results {
		fmt.Fprintf(w.out, "  %-10s %s\n", r.Action, r.Detail)
	}
	if !w.dryRun {
		fmt.Fprintln(w.out, "\n  Next: apigrader run")
	}
}
