package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/graph/cycles"
)

// cyclesCommand creates the cycles command.
func (c *CLI) cyclesCommand() *cobra.Command {
	var (
		snap    snapshotFlags
		edges   string
		through string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List dependency cycles between components",
		Long: `List dependency cycles between components.

By default the cycles found by the saved audit are printed. --edges re-runs
detection on the saved graph with a different edge selection, for example
only build edges.

Examples:
  pkgcheck cycles
  pkgcheck cycles --edges build,system-build
  pkgcheck cycles --through library/zlib`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.loadSnapshot(cmd.Context(), snap)
			if err != nil {
				return err
			}

			found := s.Cycles
			if edges != "" {
				set, err := cycles.ParseEdges(edges)
				if err != nil {
					return err
				}
				g, err := s.Graph()
				if err != nil {
					return fmt.Errorf("rebuild graph: %w", err)
				}
				prog := newProgress(loggerFromContext(cmd.Context()))
				found = cycles.Detect(g, set)
				prog.done(fmt.Sprintf("Detected %d cycles over %s edges", len(found), set))
			}
			found = cyclesThrough(found, through)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(found)
			}
			if len(found) == 0 {
				printSuccess("No dependency cycles")
				return nil
			}
			for _, cy := range found {
				fmt.Println(cy.String())
			}
			printNewline()
			printInfo("%s cycles", StyleNumber.Render(fmt.Sprint(len(found))))
			return nil
		},
	}

	addSnapshotFlags(cmd, &snap)
	cmd.Flags().StringVar(&edges, "edges", "", "re-detect following these edges: all, runtime, or a list such as build,test")
	cmd.Flags().StringVar(&through, "through", "", "only cycles passing through this component or package")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print cycles as JSON")

	return cmd
}

// cyclesThrough keeps the cycles visiting node; an empty node keeps all.
func cyclesThrough(cs []cycles.Cycle, node string) []cycles.Cycle {
	if node == "" {
		return cs
	}
	var out []cycles.Cycle
	for _, cy := range cs {
		if slices.Contains(cy.Nodes(), node) {
			out = append(out, cy)
		}
	}
	return out
}
