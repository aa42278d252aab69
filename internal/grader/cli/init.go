package cli

import (
	"github.com/spf13/cobra"

	"github.com/build-flow-labs/apigrader/internal/grader/config"
	"github.com/build-flow-labs/apigrader/internal/grader/setup"
)

var (
	initDryRun bool
	initOutput string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup wizard that writes " + config.FileName,
	Long: `Asks where the project lives and how to grade it:

  1. Project directory or GitHub repository, and the student name
  2. Evaluation profile
  3. Server base URL and request timeout
  4. Whether to clear the student database around HTTP checks
  5. Minimum grade and run history
  6. Writes the answers to ` + config.FileName + `

Use --dry-run to print the file instead of writing it.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDryRun, "dry-run", false, "Print the config instead of writing it")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", config.FileName, "Where to write the config")
}

func runInit(cmd *cobra.Command, args []string) error {
	reg, err := registryFromConfig()
	if err != nil {
		return err
	}
	wiz := setup.NewWizard(reg, cmd.InOrStdin(), cmd.OutOrStdout(), initDryRun)
	return wiz.Run(cmd.Context(), initOutput)
}
