package setup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/build-flow-labs/apigrader/internal/grader/config"
	"github.com/build-flow-labs/apigrader/internal/grader/profile"
)

func newProject(t *testing.T, withSchema bool) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ana-souza")
	if err := os.MkdirAll(filepath.Join(dir, "prisma"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"api"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if withSchema {
		schema := "datasource db {\n  provider = \"sqlite\"\n  url      = \"file:./dev.db\"\n}\n"
		if err := os.WriteFile(filepath.Join(dir, "prisma", "schema.prisma"), []byte(schema), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// profileChoice returns the 1-based menu number of a profile.
func profileChoice(t *testing.T, reg *profile.Registry, name string) string {
	t.Helper()
	for i, n := range reg.Names() {
		if n == name {
			return string(rune('1' + i))
		}
	}
	t.Fatalf("profile %q not registered", name)
	return ""
}

func newTestWizard(reg *profile.Registry, answers []string, out io.Writer, dryRun bool) *Wizard {
	w := NewWizard(reg, strings.NewReader(strings.Join(answers, "\n")+"\n"), out, dryRun)
	w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	w.gitName = func(string) string { return "" }
	return w
}

func TestWizardWritesConfig(t *testing.T) {
	reg := profile.NewRegistry()
	project := newProject(t, true)
	path := filepath.Join(t.TempDir(), "conf", config.FileName)

	answers := []string{
		"1",                      // local directory
		project,                  // project dir
		"Ana Souza",              // student
		profileChoice(t, reg, "quick"),
		"http://localhost:4000/", // base URL
		"2s",                     // timeout
		"y",                      // reset database
		"b",                      // minimum grade
		"",                       // keep history
		"",                       // default history path
	}
	var out bytes.Buffer
	w := newTestWizard(reg, answers, &out, false)
	if err := w.Run(context.Background(), path); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}

	cfg, err := config.Load(config.LoadOptions{File: path, Lookup: func(string) (string, bool) { return "", false }})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Profile != "quick" || cfg.Dir != project || cfg.Student != "Ana Souza" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.BaseURL != "http://localhost:4000" || cfg.Timeout != 2*time.Second {
		t.Errorf("server settings = %s %s", cfg.BaseURL, cfg.Timeout)
	}
	if !cfg.ResetDB || cfg.DatabaseURL != "" {
		t.Errorf("reset = %v %q, want URL resolved at run time", cfg.ResetDB, cfg.DatabaseURL)
	}
	if cfg.MinGrade != "B" || cfg.History != DefaultHistoryPath {
		t.Errorf("gate/history = %q %q", cfg.MinGrade, cfg.History)
	}

	for _, want := range []string{"--- Step 1/6: Locate project ---", "[+] created: " + path, "Next: apigrader run"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestWizardDryRunStaticProfile(t *testing.T) {
	reg := profile.NewRegistry()
	project := newProject(t, false)
	path := filepath.Join(t.TempDir(), config.FileName)

	answers := []string{"1", project, "", profileChoice(t, reg, "static"), "", "n"}
	var out bytes.Buffer
	w := newTestWizard(reg, answers, &out, true)
	if err := w.Run(context.Background(), path); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("dry run wrote %s", path)
	}
	if !strings.Contains(out.String(), "profile: static") {
		t.Errorf("dry run should print the YAML:\n%s", out.String())
	}
	if got := w.Config().Student; got != "ana souza" {
		t.Errorf("Student = %q, want folder name", got)
	}

	var actions []string
	for _, r := range w.Results() {
		actions = append(actions, r.Step+"="+r.Action)
	}
	want := []string{
		"Locate project=found",
		"Choose profile=configured",
		"Configure server=skipped",
		"Database reset=skipped",
		"Grade gate and history=configured",
		"Write config=dry-run",
	}
	if strings.Join(actions, ",") != strings.Join(want, ",") {
		t.Errorf("results = %v, want %v", actions, want)
	}
}

func TestWizardAsksForDatabaseURL(t *testing.T) {
	reg := profile.NewRegistry()
	project := newProject(t, false)
	answers := []string{"1", project, "", profileChoice(t, reg, "quick"), "", "", "y", "mysql://root@localhost/loja", "", "n"}

	w := newTestWizard(reg, answers, io.Discard, true)
	if err := w.Run(context.Background(), config.FileName); err != nil {
		t.Fatal(err)
	}
	if cfg := w.Config(); !cfg.ResetDB || cfg.DatabaseURL != "mysql://root@localhost/loja" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestWizardMissingProject(t *testing.T) {
	reg := profile.NewRegistry()
	empty := t.TempDir()

	w := newTestWizard(reg, []string{"1", empty}, io.Discard, true)
	err := w.Run(context.Background(), config.FileName)
	if err == nil || !strings.Contains(err.Error(), "step 1") {
		t.Fatalf("err = %v, want step 1 failure", err)
	}
	if r := w.Results(); len(r) != 1 || r[0].Action != "error" {
		t.Errorf("results = %+v", r)
	}
}

func TestWizardAbortsOnInvalidGrade(t *testing.T) {
	reg := profile.NewRegistry()
	project := newProject(t, false)
	answers := []string{"1", project, "", profileChoice(t, reg, "static"), "Z", "n"}

	w := newTestWizard(reg, answers, io.Discard, true)
	err := w.Run(context.Background(), config.FileName)
	if err == nil || !strings.Contains(err.Error(), "aborted at step 5") {
		t.Fatalf("err = %v, want abort at step 5", err)
	}
}

func TestAskChoice(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("9\nx\n2\n"), &out)
	if got := p.askChoice("Pick:", []string{"a", "b"}, 0); got != 1 {
		t.Errorf("askChoice = %d, want 1", got)
	}
	if strings.Count(out.String(), "Please enter a number between 1 and 2.") != 2 {
		t.Errorf("expected two retries:\n%s", out.String())
	}

	p = newPrompter(strings.NewReader(""), io.Discard)
	if got := p.askChoice("Pick:", []string{"a", "b"}, 1); got != 1 {
		t.Errorf("askChoice at EOF = %d, want default", got)
	}
}

func TestAskBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		retries int
	}{
		{"default", "\n", "http://localhost:3000", 0},
		{"trailing slash", "https://api.example.com/\n", "https://api.example.com", 0},
		{"retries until valid", "localhost:3000\nftp://host\nhttp://\nhttp://127.0.0.1:4000\n", "http://127.0.0.1:4000", 3},
		{"input ends on a bad answer", "nope", "http://localhost:3000", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := newPrompter(strings.NewReader(tt.input), &out)
			if got := p.askBaseURL("Server base URL", "http://localhost:3000"); got != tt.want {
				t.Errorf("askBaseURL = %q, want %q", got, tt.want)
			}
			if n := strings.Count(out.String(), "is not an http:// or https:// URL"); n != tt.retries {
				t.Errorf("retries = %d, want %d:\n%s", n, tt.retries, out.String())
			}
		})
	}
}

func TestAskTimeout(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("soon\n-1s\n750ms\n"), &out)
	if got := p.askTimeout("Request timeout", 5*time.Second); got != 750*time.Millisecond {
		t.Errorf("askTimeout = %s, want 750ms", got)
	}
	for _, want := range []string{`"soon" is not a duration`, "timeout must be positive, got -1s"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	p = newPrompter(strings.NewReader(""), io.Discard)
	if got := p.askTimeout("Request timeout", 5*time.Second); got != 5*time.Second {
		t.Errorf("askTimeout at EOF = %s, want default", got)
	}
}
