package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// layoutFlags holds the layout command's non-simulation flags.
type layoutFlags struct {
	output  string
	config  string
	noCache bool
	refresh bool
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var flags layoutFlags
	opts := pipeline.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "layout [graph.json|graph.yaml]",
		Short: "Compute a force-directed layout for a graph file",
		Long: `Compute a force-directed layout for a graph file.

The input lists nodes and links in JSON or YAML:

  nodes:
    - id: api
    - id: db
      pinned: true
      position: [0, 0]
  links:
    - {source: api, target: db, weight: 2}

Parameters come from the defaults, then --config (a TOML file with the same
keys as the flags, using underscores), then any flags given explicitly.

The output is a layout.json file with the final position of every node.
Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := mergeOptions(cmd.Flags(), flags.config, opts)
			if err != nil {
				return err
			}
			merged.Refresh = flags.refresh
			return c.runLayout(cmd.Context(), args[0], merged, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file, or - for stdout (default: <input>.layout.json)")
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "TOML file with layout parameters")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&flags.refresh, "refresh", false, "recompute even if a cached layout exists")
	bindLayoutFlags(cmd.Flags(), &opts)

	return cmd
}

// bindLayoutFlags registers one flag per simulation parameter on fs,
// writing into o.
func bindLayoutFlags(fs *pflag.FlagSet, o *pipeline.Options) {
	fs.IntVarP(&o.Dimensions, "dimensions", "d", o.Dimensions, "2 or 3")
	fs.Float64Var(&o.SpringLength, "spring-length", o.SpringLength, "ideal link length")
	fs.Float64Var(&o.SpringCoefficient, "spring-coefficient", o.SpringCoefficient, "spring stiffness")
	fs.Float64Var(&o.Gravity, "gravity", o.Gravity, "pairwise charge (negative repels)")
	fs.Float64Var(&o.Theta, "theta", o.Theta, "Barnes-Hut opening ratio (0 is exact)")
	fs.Float64Var(&o.DragCoefficient, "drag", o.DragCoefficient, "velocity damping in (0, 1]")
	fs.Float64Var(&o.TimeStep, "time-step", o.TimeStep, "integration time step")
	fs.Float64Var(&o.Centering, "centering", o.Centering, "pull toward the origin")
	fs.Float64Var(&o.StableThreshold, "stable-threshold", o.StableThreshold, "max displacement that counts as converged")
	fs.Float64Var(&o.MinDistance, "min-distance", o.MinDistance, "floor on the repulsion distance (0 keeps the exact law)")
	fs.Float64Var(&o.MaxSpeed, "max-speed", o.MaxSpeed, "velocity cap (0 disables)")
	fs.StringVar(&o.Repulsion, "repulsion", o.Repulsion, "repulsion strategy: pairwise, barneshut")
	fs.IntVar(&o.Workers, "workers", o.Workers, "goroutines for repulsion (0 or 1 runs sequentially)")
	fs.Uint64Var(&o.Seed, "seed", o.Seed, "seed for coincident-node jitter")
	fs.IntVar(&o.MaxSteps, "max-steps", o.MaxSteps, "step cap")
	fs.BoolVar(&o.Lenient, "lenient", o.Lenient, "create nodes for undeclared link endpoints")
}

// mergeOptions layers a TOML config file under the explicitly set flags.
// Without a config file the flag-bound options are returned unchanged.
func mergeOptions(fs *pflag.FlagSet, configPath string, flagOpts pipeline.Options) (pipeline.Options, error) {
	if configPath == "" {
		return flagOpts, nil
	}
	merged, err := pipeline.LoadOptionsFile(configPath)
	if err != nil {
		return pipeline.Options{}, err
	}

	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	bindLayoutFlags(overlay, &merged)

	var setErr error
	fs.Visit(func(f *pflag.Flag) {
		if overlay.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		setErr = overlay.Set(f.Name, f.Value.String())
	})
	return merged, setErr
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, flags layoutFlags) error {
	doc, err := graph.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	prog := newProgress(c.Logger)

	spinner := newSpinnerWithContext(ctx, c.errOut, "Simulating layout...")
	spinner.Start()

	layout, cacheHit, err := runner.LayoutDocument(ctx, doc, opts)
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		printError(c.out, "Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}

	if flags.output == "-" {
		data, err := graph.MarshalLayout(layout)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.out, string(data))
		return err
	}

	outputPath := flags.output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".layout.json"
	}
	if err := graph.WriteLayoutFile(layout, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	prog.done("layout finished")
	if layout.Stable {
		printSuccess(c.out, "Layout converged")
	} else {
		printWarning(c.out, "Layout stopped at the step cap without converging")
	}
	printFile(c.out, outputPath)
	printStats(c.out, len(layout.Nodes), len(layout.Links), layout.Steps, cacheHit)
	return nil
}
