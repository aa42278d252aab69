package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/apigrader/inspect"
	"github.com/build-flow-labs/apigrader/internal/grader/checks"
	"github.com/build-flow-labs/apigrader/internal/grader/config"
	"github.com/build-flow-labs/apigrader/internal/grader/dbreset"
	"github.com/build-flow-labs/apigrader/internal/grader/history"
	"github.com/build-flow-labs/apigrader/internal/grader/profile"
	"github.com/build-flow-labs/apigrader/internal/grader/report"
	"github.com/build-flow-labs/apigrader/probe"
)

// ErrGateFailed is returned when the grade is below --min-grade.
var ErrGateFailed = errors.New("grade gate failed")

var (
	runProfile     string
	runDir         string
	runRepo        string
	runBaseURL     string
	runTimeout     time.Duration
	runStudent     string
	runJSON        bool
	runMinGrade    string
	runResetDB     bool
	runDatabaseURL string
	runHistoryPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a student project",
	Long: `Runs every check of the selected profile and prints the report.

Static checks read the project from --dir or from a GitHub repository
(--repo owner/name[@ref], GITHUB_TOKEN for private repositories).
HTTP checks need the student server running at --base-url; when it is not
reachable they are skipped and the run is still graded.

Settings come from flags, then APIGRADER_* environment variables (a .env
file is read too), then apigrader.yml, then defaults.

With --min-grade the command exits with status 1 when the grade is worse.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	d := config.Defaults()
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", d.Profile, "Evaluation profile")
	runCmd.Flags().StringVar(&runDir, "dir", d.Dir, "Project directory")
	runCmd.Flags().StringVar(&runRepo, "repo", "", "GitHub repository (owner/name[@ref]) instead of --dir")
	runCmd.Flags().StringVar(&runBaseURL, "base-url", d.BaseURL, "Base URL of the student server")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", d.Timeout, "Per-request timeout")
	runCmd.Flags().StringVar(&runStudent, "student", "", "Student name (default: git user or folder name)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output JSON instead of the formatted report")
	runCmd.Flags().StringVar(&runMinGrade, "min-grade", "", "Fail when the grade is worse than this letter (A-F)")
	runCmd.Flags().BoolVar(&runResetDB, "reset-db", false, "Clear the student database before and after HTTP checks")
	runCmd.Flags().StringVar(&runDatabaseURL, "database-url", "", "Database URL (default: datasource in prisma/schema.prisma)")
	runCmd.Flags().StringVar(&runHistoryPath, "history", "", "Record the run in this history database")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	reg, err := loadRegistry(cfg.ProfilesFile)
	if err != nil {
		return err
	}

	g := &grader{
		cfg:    cfg,
		reg:    reg,
		asJSON: runJSON,
		out:    cmd.OutOrStdout(),
		logger: newLogger(cmd.ErrOrStderr()),
	}
	gate, err := g.grade(cmd.Context())
	if err != nil {
		return err
	}
	if !gate.Passed {
		return fmt.Errorf("%w: %s", ErrGateFailed, gate.Message)
	}
	return nil
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	str := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	str("profile", &cfg.Profile, runProfile)
	str("dir", &cfg.Dir, runDir)
	str("repo", &cfg.Repo, runRepo)
	str("base-url", &cfg.BaseURL, runBaseURL)
	str("student", &cfg.Student, runStudent)
	str("min-grade", &cfg.MinGrade, runMinGrade)
	str("database-url", &cfg.DatabaseURL, runDatabaseURL)
	str("history", &cfg.History, runHistoryPath)
	if flags.Changed("timeout") {
		cfg.Timeout = runTimeout
	}
	if flags.Changed("reset-db") {
		cfg.ResetDB = runResetDB
	}
}

// grader wires one evaluation from a resolved configuration.
type grader struct {
	cfg    config.Config
	reg    *profile.Registry
	asJSON bool
	out    io.Writer
	logger *slog.Logger
}

func (g *grader) grade(ctx context.Context) (report.GateResult, error) {
	p, err := g.reg.Get(g.cfg.Profile)
	if err != nil {
		return report.GateResult{}, err
	}

	src, folder, err := g.source(ctx)
	if err != nil {
		return report.GateResult{}, err
	}

	opts := checks.Options{
		Profile: p,
		Source:  src,
		Student: g.student(folder),
		Logger:  g.logger,
	}
	if !g.asJSON {
		opts.Progress = g.out
	}
	if p.NeedsServer() {
		opts.Prober = probe.New(g.cfg.BaseURL, g.cfg.Timeout)
		if cleaner := g.cleaner(ctx, src); cleaner != nil {
			defer cleaner.Close()
			opts.Cleaner = cleaner
		}
	}

	g.logger.Debug("starting run", "profile", p.Name, "student", opts.Student, "server", p.NeedsServer())
	outcome, err := checks.NewRunner(opts).Run(ctx)
	if err != nil {
		return report.GateResult{}, err
	}

	trend, recorded := g.record(outcome)

	gate, err := report.Gate(outcome.Report, g.cfg.MinGrade)
	if err != nil {
		return report.GateResult{}, err
	}

	if g.asJSON {
		doc := report.Document{Outcome: outcome}
		if recorded {
			doc.Trend = &trend
		}
		if g.cfg.MinGrade != "" {
			doc.Gate = &gate
		}
		if err := report.JSON(g.out, doc); err != nil {
			return report.GateResult{}, fmt.Errorf("writing report: %w", err)
		}
		return gate, nil
	}

	report.Console(g.out, outcome)
	if recorded {
		report.Trend(g.out, trend)
	}
	if g.cfg.MinGrade != "" {
		fmt.Fprintln(g.out, gate.Message)
	}
	return gate, nil
}

// source opens the project to inspect. A missing local directory is not an
// error: the run continues without static checks.
func (g *grader) source(ctx context.Context) (inspect.Source, string, error) {
	if g.cfg.Repo != "" {
		owner, repo, ref, err := inspect.ParseRepo(g.cfg.Repo)
		if err != nil {
			return nil, "", err
		}
		return inspect.NewGitHubSource(ctx, g.cfg.GitHubToken, owner, repo, ref, g.logger), repo, nil
	}

	info, err := os.Stat(g.cfg.Dir)
	if err != nil || !info.IsDir() {
		g.logger.Warn("project directory not available", "dir", g.cfg.Dir, "error", err)
		return nil, g.cfg.Dir, nil
	}
	return inspect.NewLocalSource(g.cfg.Dir), g.cfg.Dir, nil
}

func (g *grader) student(folder string) string {
	if g.cfg.Student != "" {
		return g.cfg.Student
	}
	if g.cfg.Repo != "" {
		return config.DetectStudent(folder, nil)
	}
	return config.DetectStudent(folder, func() string { return config.GitUserName(folder) })
}

// cleaner opens the student database when a reset was asked for. Any failure
// is logged and the run goes on without resets.
func (g *grader) cleaner(ctx context.Context, src inspect.Source) *dbreset.Cleaner {
	if !g.cfg.ResetDB {
		return nil
	}
	if src == nil && g.cfg.DatabaseURL == "" {
		g.logger.Warn("database reset disabled", "error", dbreset.ErrNoDatabaseURL)
		return nil
	}
	url, err := dbreset.ResolveURL(src, g.cfg.DatabaseURL)
	if err != nil {
		g.logger.Warn("database reset disabled", "error", err)
		return nil
	}
	c, err := dbreset.Open(ctx, url, dbreset.WithBaseDir(filepath.Join(g.cfg.Dir, "prisma")))
	if err != nil {
		g.logger.Warn("database reset disabled", "error", err)
		return nil
	}
	g.logger.Debug("database reset enabled", "driver", c.Driver())
	return c
}

// record stores the outcome when a history database is configured.
func (g *grader) record(o *checks.Outcome) (history.Trend, bool) {
	if g.cfg.History == "" {
		return history.Trend{}, false
	}
	store, err := history.Open(g.cfg.History)
	if err != nil {
		g.logger.Warn("history not recorded", "path", g.cfg.History, "error", err)
		return history.Trend{}, false
	}
	defer store.Close()

	trend, err := store.Record(o)
	if err != nil {
		g.logger.Warn("history not recorded", "path", g.cfg.History, "error", err)
		return history.Trend{}, false
	}
	return trend, true
}
