package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
// The --verbose flag switches the shared logger to debug level before any
// subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           appName,
		Short:         "Force-directed graph layout",
		Long:          `forcegraph computes 2D and 3D positions for graph nodes by simulating springs along links and repulsion between all nodes.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printKeyValue(c.out, "version", buildinfo.Version)
			printKeyValue(c.out, "commit", buildinfo.Commit)
			printKeyValue(c.out, "built", buildinfo.Date)
			return nil
		},
	}
}
