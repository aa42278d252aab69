// Package cli holds the apigrader command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/apigrader/internal/grader/config"
	"github.com/build-flow-labs/apigrader/internal/grader/profile"
)

// Version is reported by --version. It is set by main.
var Version = "dev"

var (
	configFile   string
	profilesFile string
	verbose      bool
)

// RootCmd is the apigrader command.
var RootCmd = &cobra.Command{
	Use:   "apigrader",
	Short: "Grade a student CRUD REST API",
	Long: `apigrader evaluates a student-built REST API for users, stores and
products. It reads the project source, probes the running server, and
produces a score per category, a percentage, a letter grade and a mark.

Profiles decide which checks run and how many points each one is worth.
Run "apigrader profiles list" to see them.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./"+config.FileName+" when present)")
	RootCmd.PersistentFlags().StringVar(&profilesFile, "profiles-file", "", "YAML file with extra or overriding profiles")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details to stderr")

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(profilesCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(initCmd)
}

// Execute runs the command tree.
func Execute(ctx context.Context) error {
	RootCmd.Version = Version
	return RootCmd.ExecuteContext(ctx)
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads defaults, the config file and the environment. Command
// flags are applied by the caller.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		File:   configFile,
		Lookup: os.LookupEnv,
		Logger: newLogger(os.Stderr),
	})
	if err != nil {
		return config.Config{}, err
	}
	if profilesFile != "" {
		cfg.ProfilesFile = profilesFile
	}
	return cfg, nil
}

// loadRegistry returns the built-in profiles plus the ones in file.
func loadRegistry(file string) (*profile.Registry, error) {
	reg := profile.NewRegistry()
	if file != "" {
		if err := reg.LoadFile(file); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
