package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/problem"
	"github.com/matzehuels/pkgcheck/pkg/snapshot"
)

// snapshotFlags select the snapshot a query command reads.
type snapshotFlags struct {
	id   string
	file string
}

func addSnapshotFlags(cmd *cobra.Command, f *snapshotFlags) {
	cmd.Flags().StringVar(&f.id, "snapshot", "", "snapshot ID (latest if empty)")
	cmd.Flags().StringVar(&f.file, "file", "", "read the snapshot from a JSON file instead of the store")
}

// loadSnapshot reads the snapshot selected by f.
func (c *CLI) loadSnapshot(ctx context.Context, f snapshotFlags) (*snapshot.Snapshot, error) {
	if f.file != "" {
		return snapshot.ReadFile(f.file)
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()

	var snap *snapshot.Snapshot
	if f.id != "" {
		snap, err = store.Get(ctx, f.id)
	} else {
		snap, err = store.Latest(ctx)
	}
	if stderrors.Is(err, snapshot.ErrNotFound) {
		printNextStep("Create one with", "pkgcheck run --save")
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	loggerFromContext(ctx).Debug("loaded snapshot", "id", snap.ID, "created", snap.CreatedAt)
	return snap, nil
}

// parseKinds parses a comma-separated list of problem kind names.
func parseKinds(s string) ([]problem.Kind, error) {
	if s == "" {
		return nil, nil
	}
	var kinds []problem.Kind
	for _, name := range strings.Split(s, ",") {
		k, err := problem.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// problemsCommand creates the problems command, which prints the problems
// of a stored snapshot.
func (c *CLI) problemsCommand() *cobra.Command {
	var (
		snap   snapshotFlags
		kinds  string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "problems",
		Short: "Print the problems of a saved audit",
		Long: `Print the problems of a saved audit.

Problems are printed in priority order. --kind restricts the output to the
given kinds; run 'pkgcheck problems --kind help' to list them.

Examples:
  pkgcheck problems
  pkgcheck problems --kind missing-owner,dependency-cycle
  pkgcheck problems --format yaml -o problems.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kinds == "help" {
				for _, k := range problem.Kinds() {
					fmt.Println(k.String())
				}
				return nil
			}
			if err := validateOutputFormat(format); err != nil {
				return err
			}
			want, err := parseKinds(kinds)
			if err != nil {
				return err
			}
			s, err := c.loadSnapshot(cmd.Context(), snap)
			if err != nil {
				return err
			}

			ps := s.Problems
			if len(want) > 0 {
				ps = problem.Filter(ps, want...)
			}
			if format != formatText {
				return writeProblems(ps, format, output)
			}
			problem.Report(c.Logger, ps)
			printNewline()
			printSummary(s.Stats, problem.CountKinds(ps), iconSnapshot)
			return nil
		},
	}

	addSnapshotFlags(cmd, &snap)
	cmd.Flags().StringVarP(&kinds, "kind", "k", "", "only these problem kinds (comma-separated)")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json, yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for json/yaml (stdout if empty)")

	return cmd
}
