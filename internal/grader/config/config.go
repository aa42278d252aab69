// Package config loads grader settings. Later layers win:
// defaults, apigrader.yml, .env, the process environment, then flags
// (applied by the CLI).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/build-flow-labs/apigrader/internal/grader/profile"
	"github.com/build-flow-labs/apigrader/probe"
	"github.com/build-flow-labs/apigrader/scorer"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "apigrader.yml"

// EnvPrefix prefixes every environment variable the grader reads.
const EnvPrefix = "APIGRADER_"

// Config holds every setting of a run.
type Config struct {
	Profile      string        `yaml:"profile"`
	ProfilesFile string        `yaml:"profiles_file,omitempty"`
	Dir          string        `yaml:"dir,omitempty"`
	Repo         string        `yaml:"repo,omitempty"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	Student      string        `yaml:"student,omitempty"`
	MinGrade     string        `yaml:"min_grade,omitempty"`
	ResetDB      bool          `yaml:"reset_db,omitempty"`
	DatabaseURL  string        `yaml:"database_url,omitempty"`
	History      string        `yaml:"history,omitempty"`

	// GitHubToken is read from GITHUB_TOKEN only, never from the file.
	GitHubToken string `yaml:"-"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Profile: profile.Default,
		Dir:     ".",
		BaseURL: "http://localhost:3000",
		Timeout: probe.DefaultTimeout,
	}
}

// LoadOptions says where Load reads from. Empty fields use the defaults.
type LoadOptions struct {
	// File is the YAML file. When empty, FileName is used if it exists.
	File string
	// EnvFile is a dotenv file merged under the process environment.
	// When empty, ".env" is used if it exists.
	EnvFile string
	// Lookup replaces os.LookupEnv.
	Lookup func(string) (string, bool)
	// Logger receives warnings about skipped layers. Nil discards them.
	Logger *slog.Logger
}

// Load builds a Config from defaults, the YAML file and the environment.
func Load(opts LoadOptions) (Config, error) {
	cfg := Defaults()

	file, required := opts.File, true
	if file == "" {
		file, required = FileName, false
	}
	if err := cfg.mergeFile(file, required); err != nil {
		return Config{}, err
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	envFile, required := opts.EnvFile, true
	if envFile == "" {
		envFile, required = ".env", false
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	// The default .env belongs to the student project; a line godotenv
	// cannot parse drops that layer instead of stopping the run.
	dotenv, err := godotenv.Read(envFile)
	switch {
	case err == nil:
	case required:
		return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
	case errors.Is(err, fs.ErrNotExist):
	default:
		logger.Warn("ignoring env file", "path", envFile, "error", err)
		dotenv = nil
	}
	layered := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(layered); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("PROFILE", &c.Profile)
	str("PROFILES_FILE", &c.ProfilesFile)
	str("DIR", &c.Dir)
	str("REPO", &c.Repo)
	str("BASE_URL", &c.BaseURL)
	str("STUDENT", &c.Student)
	str("MIN_GRADE", &c.MinGrade)
	str("DATABASE_URL", &c.DatabaseURL)
	str("HISTORY", &c.History)

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "RESET_DB"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sRESET_DB: %w", EnvPrefix, err)
		}
		c.ResetDB = b
	}
	if v, ok := lookup("GITHUB_TOKEN"); ok {
		c.GitHubToken = v
	}
	return nil
}

// Validate rejects settings no run could use.
func (c Config) Validate() error {
	var errs []error
	if c.Profile == "" {
		errs = append(errs, errors.New("profile is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("base URL %q must start with http:// or https://", c.BaseURL))
	}
	if c.MinGrade != "" {
		if _, err := scorer.ParseLetter(c.MinGrade); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Marshal renders the config as YAML.
func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}

// Write saves the config to path.
func Write(path string, c Config) error {
	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
