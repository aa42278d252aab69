package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/apigrader/internal/grader/profile"
	"github.com/build-flow-labs/apigrader/internal/grader/report"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List and inspect evaluation profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfilesList,
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a profile as YAML",
	Long: `Prints the categories and weighted checks of a profile as YAML.
The output is a valid --profiles-file and can be used as a starting point
for a custom profile.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesShow,
}

var profilesSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of a profile file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := profile.Schema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var profilesChecksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List every check a profile can weight",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tKIND\tTITLE\n")
		for _, c := range profile.Catalog() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Kind, c.Title)
		}
		w.Flush()
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesSchemaCmd)
	profilesCmd.AddCommand(profilesChecksCmd)
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	reg, err := registryFromConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tMAX\tCHECKS\tSERVER\tSOURCE\tDESCRIPTION\n")
	for _, p := range reg.List() {
		origin := "custom"
		if reg.Builtin(p.Name) {
			origin = "builtin"
		}
		server := "no"
		if p.NeedsServer() {
			server = "yes"
		}
		name := p.Name
		if name == profile.Default {
			name += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", name, report.Points(p.Max()), len(p.Checks), server, origin, p.Description)
	}
	return w.Flush()
}

func runProfilesShow(cmd *cobra.Command, args []string) error {
	reg, err := registryFromConfig()
	if err != nil {
		return err
	}
	p, err := reg.Get(args[0])
	if err != nil {
		return err
	}
	data, err := profile.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func registryFromConfig() (*profile.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return loadRegistry(cfg.ProfilesFile)
}
