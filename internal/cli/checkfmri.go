package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
)

// fmriReport is the answer of check-fmri.
type fmriReport struct {
	FMRI       string               `json:"fmri"`
	Known      bool                 `json:"known"`
	Obsoleted  bool                 `json:"obsoleted"`
	Owner      string               `json:"owner,omitempty"`
	Dependents []graph.DependentRef `json:"dependents"`
}

func checkFMRI(g *graph.Graph, f fmri.FMRI) fmriReport {
	f = f.Normalize()
	r := fmriReport{
		FMRI:      f.Name,
		Known:     g.IsKnownPackage(f),
		Obsoleted: g.IsObsoleted(f),
	}
	r.Owner, _ = g.OwnerOf(f)
	if refs, err := g.DependentsOf(f); err == nil {
		r.Dependents = refs
	}
	if r.Dependents == nil {
		r.Dependents = []graph.DependentRef{}
	}
	return r
}

// checkFMRICommand creates the check-fmri command, which answers what needs
// a package and who builds it.
func (c *CLI) checkFMRICommand() *cobra.Command {
	var (
		snap   snapshotFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "check-fmri <fmri>",
		Short: "Show what depends on a package and which component builds it",
		Long: `Show what depends on a package and which component builds it.

The FMRI may carry a publisher and version; both are ignored.

Examples:
  pkgcheck check-fmri library/zlib
  pkgcheck check-fmri pkg://openindiana.org/library/zlib@1.3 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fmri.Parse(args[0])
			if err != nil {
				return err
			}
			s, err := c.loadSnapshot(cmd.Context(), snap)
			if err != nil {
				return err
			}
			g, err := s.Graph()
			if err != nil {
				return fmt.Errorf("rebuild graph: %w", err)
			}

			r := checkFMRI(g, f)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			printFMRIReport(os.Stdout, r)
			return nil
		},
	}

	addSnapshotFlags(cmd, &snap)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer as JSON")

	return cmd
}

func printFMRIReport(w io.Writer, r fmriReport) {
	switch {
	case !r.Known:
		printWarning("Package %s does not exist", r.FMRI)
	case r.Obsoleted:
		printWarning("Package %s is obsolete", r.FMRI)
	}

	if len(r.Dependents) == 0 {
		printInfo("%s is not required by any package", StyleHighlight.Render(r.FMRI))
	} else {
		printInfo("%s is required by:", StyleHighlight.Render(r.FMRI))
		for _, d := range r.Dependents {
			fmt.Fprintf(w, "  %-12s %-12s %s\n", StyleDim.Render(d.Kind.String()), StyleDim.Render(d.Class.String()), StyleValue.Render(d.Name))
		}
	}

	if r.Owner != "" {
		printKeyValue("Component", r.Owner)
	} else if r.Known {
		printKeyValue("Component", StyleWarning.Render("none"))
	}
}
