package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/render"
)

// graphOpts holds the flags shared by the graph subcommands.
type graphOpts struct {
	snap   snapshotFlags
	format string
	output string
}

func (o *graphOpts) register(cmd *cobra.Command) {
	addSnapshotFlags(cmd, &o.snap)
	cmd.Flags().StringVarP(&o.format, "format", "f", render.FormatSVG, "output format: dot, svg, pdf, png")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default <graph>.<format>, dot goes to stdout)")
}

// graphCommand creates the graph command for rendering cycles and
// dependents as Graphviz diagrams.
func (c *CLI) graphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render dependency cycles or dependents as diagrams",
		Long: `Render dependency cycles or dependents as diagrams.

SVG is rendered with an embedded Graphviz; PDF and PNG additionally need
rsvg-convert (librsvg) on the PATH.`,
	}

	cmd.AddCommand(c.graphCyclesCommand())
	cmd.AddCommand(c.graphDependentsCommand())

	return cmd
}

func (c *CLI) graphCyclesCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Render all dependency cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.loadSnapshot(cmd.Context(), opts.snap)
			if err != nil {
				return err
			}
			if len(s.Cycles) == 0 {
				printSuccess("No dependency cycles")
				return nil
			}
			return c.writeGraph(cmd.Context(), render.CyclesDOT(s.Cycles), "cycles", opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func (c *CLI) graphDependentsCommand() *cobra.Command {
	var (
		opts  graphOpts
		depth int
	)

	cmd := &cobra.Command{
		Use:   "dependents <fmri>",
		Short: "Render what depends on a package",
		Long: `Render what depends on a package.

Runtime dependents are drawn as packages, component dependents as
components. --depth follows dependents of dependents.

Example:
  pkgcheck graph dependents library/zlib --depth 2 -o zlib.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fmri.Parse(args[0])
			if err != nil {
				return err
			}
			s, err := c.loadSnapshot(cmd.Context(), opts.snap)
			if err != nil {
				return err
			}
			g, err := s.Graph()
			if err != nil {
				return fmt.Errorf("rebuild graph: %w", err)
			}
			dot, err := render.DependentsDOT(g, f, depth)
			if err != nil {
				return err
			}
			return c.writeGraph(cmd.Context(), dot, "dependents", opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().IntVar(&depth, "depth", 1, "levels of dependents to draw")
	return cmd
}

// writeGraph renders dot in the requested format and writes it.
func (c *CLI) writeGraph(ctx context.Context, dot, name string, opts graphOpts) error {
	output := opts.output
	if output == "" && opts.format == render.FormatDOT {
		_, err := fmt.Print(dot)
		return err
	}
	if output == "" {
		output = name + "." + opts.format
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", opts.format))
	spinner.Start()
	data, err := render.Render(ctx, dot, opts.format)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return err
	}
	spinner.Stop()

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Rendered %s", name)
	printFile(output)
	return nil
}
