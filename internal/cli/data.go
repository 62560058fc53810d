package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pkgcheck/pkg/cache"
	"github.com/matzehuels/pkgcheck/pkg/httputil"
)

// dataCommand creates the data command for managing audit inputs.
func (c *CLI) dataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage the audit inputs",
	}

	cmd.AddCommand(c.updateAssetsCommand())

	return cmd
}

// updateAssetsCommand creates the "data update-assets" subcommand.
func (c *CLI) updateAssetsCommand() *cobra.Command {
	var (
		repo   string
		noPull bool
	)

	cmd := &cobra.Command{
		Use:   "update-assets",
		Short: "Download the dependency catalogs and update the oi-userland checkout",
		Long: `Download the dependency catalogs and update the oi-userland checkout.

Catalogs are fetched from the configured URLs (by default the OpenIndiana
hipster and hipster-encumbered publishers) into the catalog directory.
Unchanged catalogs are not downloaded again. The checkout is updated with
'git pull --ff-only'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if repo != "" {
				cfg.Repo.Root = repo
			}
			if err := c.downloadCatalogs(cmd.Context(), cfg); err != nil {
				return err
			}
			if noPull || cfg.Repo.Root == "" {
				return nil
			}
			return c.pullRepo(cmd.Context(), cfg.Repo.Root)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "oi-userland checkout to update")
	cmd.Flags().BoolVar(&noPull, "no-pull", false, "only download catalogs")

	return cmd
}

// downloadCatalogs fetches every catalog URL of cfg concurrently.
func (c *CLI) downloadCatalogs(ctx context.Context, cfg *Config) error {
	bc, err := newCache(ctx, cfg.Build, false)
	if err != nil {
		return fmt.Errorf("open download cache: %w", err)
	}
	defer bc.Close()
	client := &httputil.Client{Meta: httputil.NewValidatorStore(bc, cache.NewScopedKeyer(nil, "assets:"))}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Downloading %d catalogs...", len(cfg.Catalog.URLs)))
	spinner.Start()

	changed := make([]bool, len(cfg.Catalog.URLs))
	eg, ectx := errgroup.WithContext(ctx)
	for i, u := range cfg.Catalog.URLs {
		eg.Go(func() error {
			ok, err := client.Download(ectx, u, catalogFile(cfg.Catalog.Dir, u))
			if err != nil {
				return fmt.Errorf("download %s: %w", u, err)
			}
			changed[i] = ok
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		spinner.StopWithError("Download failed")
		return err
	}
	spinner.Stop()

	for i, u := range cfg.Catalog.URLs {
		path := catalogFile(cfg.Catalog.Dir, u)
		if changed[i] {
			printSuccess("Updated %s", u)
		} else {
			printInfo("Unchanged %s", u)
		}
		printFile(path)
	}
	return nil
}

// pullRepo fast-forwards the oi-userland checkout.
func (c *CLI) pullRepo(ctx context.Context, root string) error {
	spinner := newSpinnerWithContext(ctx, "Updating "+root+"...")
	spinner.Start()
	out, err := c.exec().Run(ctx, root, "git", "pull", "--ff-only")
	if err != nil {
		spinner.StopWithError("git pull failed")
		return fmt.Errorf("update %s: %w", root, err)
	}
	spinner.Stop()

	msg := strings.TrimSpace(string(out))
	if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
		msg = msg[i+1:]
	}
	printSuccess("Updated %s", root)
	if msg != "" {
		printDetail("%s", msg)
	}
	return nil
}
