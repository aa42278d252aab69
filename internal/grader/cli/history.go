package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/apigrader/internal/grader/dashboard"
	"github.com/build-flow-labs/apigrader/internal/grader/history"
	"github.com/build-flow-labs/apigrader/internal/grader/report"
	"github.com/build-flow-labs/apigrader/internal/grader/setup"
)

var (
	historyPath    string
	historyStudent string
	historyLimit   int
	serveAddr      string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs",
	Long: `Lists runs recorded with "apigrader run --history", newest first.
The database defaults to the history path of apigrader.yml, then to
` + setup.DefaultHistoryPath + `.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded runs over HTTP",
	Long: `Starts a read-only dashboard of the history database:

  /ui                  overview, latest run per student
  /ui/runs/{id}        one run with its observations
  /api/runs            runs as JSON (?student= &profile= &grade= &sort= &desc= &limit=)
  /api/runs/{id}       one run as JSON
  /api/students        latest run per student and profile as JSON

Stops on Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runHistoryServe,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyPath, "history", "", "History database")
	historyCmd.Flags().StringVar(&historyStudent, "student", "", "Only show runs of this student")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs (0 for all)")

	historyServeCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	historyCmd.AddCommand(historyServeCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, err := resolveHistoryPath()
	if err != nil {
		return err
	}

	// Opening creates the database; a missing one just has no runs.
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		report.History(cmd.OutOrStdout(), nil)
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(historyStudent, historyLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	report.History(cmd.OutOrStdout(), entries)
	return nil
}

func runHistoryServe(cmd *cobra.Command, args []string) error {
	path, err := resolveHistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := newLogger(cmd.ErrOrStderr())
	dash, err := dashboard.New(store, logger)
	if err != nil {
		return err
	}
	return dash.Serve(cmd.Context(), serveAddr)
}

// resolveHistoryPath picks --history, then the config file, then the default.
func resolveHistoryPath() (string, error) {
	if historyPath != "" {
		return historyPath, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.History != "" {
		return cfg.History, nil
	}
	return setup.DefaultHistoryPath, nil
}
