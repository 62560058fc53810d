package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/audit"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/observability"
	"github.com/matzehuels/pkgcheck/pkg/problem"
	"github.com/matzehuels/pkgcheck/pkg/snapshot"
)

// Output formats of the run and problems commands.
const (
	formatText = "text"
	formatJSON = problem.FormatJSON
	formatYAML = problem.FormatYAML
)

// errProblemsFound is returned by --fail when the audit found problems.
var errProblemsFound = stderrors.New("problems found")

func validateOutputFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unsupported format %q (want text, json or yaml)", format)
}

// runCommand creates the run command, which performs a full audit.
func (c *CLI) runCommand() *cobra.Command {
	var (
		flags  auditFlags
		format string
		output string
		save   bool
		fail   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Audit the repository and report problems",
		Long: `Audit the repository and report problems.

run loads the dependency catalogs, the history file and the oi-userland
components, resolves the graph and reports every problem found. Build
queries are cached, keyed on each component's Makefile.

With --save the result is stored as a snapshot that 'problems', 'check-fmri',
'cycles', 'graph', 'browse' and 'serve' read without re-running the audit.

Examples:
  pkgcheck run --repo ~/src/oi-userland --save
  pkgcheck run --catalog catalog.dependency.C --format json -o problems.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutputFormat(format); err != nil {
				return err
			}
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}

			res, err := c.runAudit(cmd.Context(), cfg, flags.noCache)
			if err != nil {
				return err
			}
			if err := c.writeResult(res, format, output); err != nil {
				return err
			}
			if save {
				if err := c.saveSnapshot(cmd.Context(), cfg, res); err != nil {
					return err
				}
			}
			if fail && len(res.Problems) > 0 {
				return errProblemsFound
			}
			return nil
		},
	}

	addAuditFlags(cmd, &flags)
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json, yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for json/yaml (stdout if empty)")
	cmd.Flags().BoolVar(&save, "save", false, "store the result as the latest snapshot")
	cmd.Flags().BoolVar(&fail, "fail", false, "exit with an error when problems are found")

	return cmd
}

func addAuditFlags(cmd *cobra.Command, f *auditFlags) {
	cmd.Flags().StringVar(&f.repo, "repo", "", "oi-userland checkout")
	cmd.Flags().StringSliceVar(&f.catalogs, "catalog", nil, "catalog.dependency.C file (repeatable, loaded in order)")
	cmd.Flags().StringVar(&f.history, "history", "", "history file")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent build queries")
	cmd.Flags().StringVar(&f.cycleEdges, "cycle-edges", "", "edges followed by cycle detection: all, runtime, or a list such as build,test")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the build query cache")
}

// runAudit runs one audit with the build cache configured in cfg.
func (c *CLI) runAudit(ctx context.Context, cfg *Config, noCache bool) (*audit.Result, error) {
	runner, bc, err := c.newRunner(ctx, cfg.Build, noCache)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer bc.Close()

	spinner := newSpinnerWithContext(ctx, "Auditing repository...")
	spinner.Start()
	observability.SetAuditHooks(spinnerHooks{spinner: spinner})
	defer observability.SetAuditHooks(observability.NoopAuditHooks{})

	opts := cfg.AuditOptions()
	opts.Logger = c.Logger
	prog := newProgress(c.Logger)
	res, err := runner.Run(ctx, opts)
	if err != nil {
		spinner.StopWithError("Audit failed")
		return nil, fmt.Errorf("audit: %w", err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Audited %d packages", res.Stats.Packages))

	for _, err := range res.InputErrors {
		c.Logger.Debug("skipped record", "err", err)
	}
	if n := len(res.InputErrors); n > 0 {
		printWarning("Skipped %d malformed input records (use --verbose to list them)", n)
	}
	c.Logger.Debug("stage timings", "timings", res.Timings.String())
	return res, nil
}

// writeResult prints the problems of res in format.
func (c *CLI) writeResult(res *audit.Result, format, output string) error {
	if format == formatText {
		problem.Report(c.Logger, res.Problems)
		printNewline()
		printSummary(res.Stats, res.Counts, iconFresh)
		return nil
	}
	return writeProblems(res.Problems, format, output)
}

func writeProblems(ps []problem.Problem, format, output string) error {
	if output == "" {
		return problem.Write(os.Stdout, ps, format)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := problem.Write(f, ps, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printFile(output)
	return nil
}

func (c *CLI) saveSnapshot(ctx context.Context, cfg *Config, res *audit.Result) error {
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()

	snap := snapshot.FromResult(res)
	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	printSuccess("Saved snapshot %s", StyleHighlight.Render(snap.ID))
	printNextStep("Browse it", "pkgcheck browse")
	return nil
}

// printSummary prints graph statistics and a per-kind problem table. source
// is iconFresh for a new audit and iconSnapshot for a stored one.
func printSummary(stats graph.Stats, counts problem.Counts, source string) {
	fmt.Println(StyleTitle.Render("Summary"))
	printStats(stats, source)

	if counts.Total() == 0 {
		printSuccess("No problems found")
		return
	}

	rows := [][]string{}
	for _, k := range problem.Kinds() {
		if n := counts[k]; n > 0 {
			rows = append(rows, []string{k.String(), strconv.Itoa(n)})
		}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Problem", "Count").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 1:
				return lipgloss.NewStyle().Foreground(colorCyan).Align(lipgloss.Right)
			}
			return lipgloss.NewStyle()
		})
	fmt.Println(t.Render())
	printKeyValue("Total", strconv.Itoa(counts.Total()))
}
