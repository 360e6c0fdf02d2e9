package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/nextjs-cdk-example/infra/pkg/cdkgraph"
	"github.com/nextjs-cdk-example/infra/pkg/config"
	"github.com/nextjs-cdk-example/infra/pkg/construct"
	"github.com/nextjs-cdk-example/infra/pkg/dot"
	"github.com/nextjs-cdk-example/infra/pkg/synth"
	"github.com/nextjs-cdk-example/infra/pkg/visualizer"
	"github.com/r3labs/diff"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrAssembliesDiffer is returned by the diff command when the assemblies are not the same.
var ErrAssembliesDiffer = errors.New("assemblies differ")

const defaultAssemblyDir = "cdk.out"

type App struct {
	Common CommonConfig
	// Renderer renders png and svg diagrams, dot.Graphviz when nil.
	Renderer visualizer.Renderer
}

func (a *App) renderer() visualizer.Renderer {
	if a.Renderer == nil {
		return dot.Graphviz{}
	}
	return a.Renderer
}

func (a *App) loadConfig(diagramsOnly bool) (config.Config, error) {
	return config.Load(config.LoadOptions{
		File:         a.Common.configFile,
		DiagramsOnly: diagramsOnly,
	})
}

// NewRootCmd builds the `infra` command. Without a subcommand it synthesizes the app, which is
// what the cdk CLI runs.
func (a *App) NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "infra",
		Short:         "Synthesize the nextjs-cdk-example stacks and diagram them",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          a.runSynth,
	}
	SetupRoot(root, &a.Common)

	root.AddCommand(
		&cobra.Command{
			Use:   "synth",
			Short: "Synthesize the cloud assembly and write its diagrams",
			Args:  cobra.NoArgs,
			RunE:  a.runSynth,
		},
		a.newDiagramCmd(),
		a.newGraphCmd(),
		a.newDiffCmd(),
	)
	return root
}

// Execute runs cmd, built by NewRootCmd, then flushes the logger and stops profiling
// whether or not the command succeeded.
func (a *App) Execute(ctx context.Context, cmd *cobra.Command) error {
	defer a.Common.Finish()
	return cmd.ExecuteContext(ctx)
}

func (a *App) runSynth(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	dir, err := synth.Run(cmd.Context(), cfg, a.renderer())
	if err != nil {
		return err
	}
	zap.S().Infof("Cloud assembly written to %s", dir)
	return nil
}

func (a *App) newDiagramCmd() *cobra.Command {
	var assemblyDir string
	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Write the configured diagrams for an already synthesized assembly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(true)
			if err != nil {
				return err
			}
			files, err := visualizer.Report(cmd.Context(), assemblyDir, cfg.Diagrams, a.renderer())
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&assemblyDir, "assembly", "a", defaultAssemblyDir, "Cloud assembly directory")
	return cmd
}

func (a *App) newGraphCmd() *cobra.Command {
	var assemblyDir, filterName string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the resource graph of an assembly as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := cdkgraph.FilterFor(filterName)
			if err != nil {
				return err
			}
			g, err := cdkgraph.Load(assemblyDir)
			if err != nil {
				return err
			}
			g, err = filter(g)
			if err != nil {
				return err
			}
			return construct.GraphToYAML(g, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&assemblyDir, "assembly", "a", defaultAssemblyDir, "Cloud assembly directory")
	flags.StringVarP(&filterName, "filter", "f", config.FilterNone, "Filter preset: none or compact")
	return cmd
}

func (a *App) newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-assembly> <new-assembly>",
		Short: "Compare the resource graphs of two assemblies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := cdkgraph.Load(args[0])
			if err != nil {
				return err
			}
			after, err := cdkgraph.Load(args[1])
			if err != nil {
				return err
			}
			changes, err := cdkgraph.Diff(before, after)
			if err != nil {
				return err
			}
			if err := printChanges(cmd.OutOrStdout(), changes); err != nil {
				return err
			}
			if len(changes) > 0 {
				return fmt.Errorf("%w: %d changes", ErrAssembliesDiffer, len(changes))
			}
			return nil
		},
	}
}

var (
	createColor = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed)
	updateColor = color.New(color.FgYellow)
)

func printChanges(w io.Writer, changes diff.Changelog) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, "No changes")
		return err
	}
	var errs error
	for _, c := range changes {
		path := strings.Join(c.Path, ".")
		var err error
		switch c.Type {
		case diff.CREATE:
			_, err = createColor.Fprintf(w, "+ %s\n", path)
		case diff.DELETE:
			_, err = deleteColor.Fprintf(w, "- %s\n", path)
		default:
			_, err = updateColor.Fprintf(w, "~ %s: %v -> %v\n", path, c.From, c.To)
		}
		errs = errors.Join(errs, err)
	}
	return errs
}
