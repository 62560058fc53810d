package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the build query and download cache",
		Long: `Manage the build query and download cache.

Build query results are keyed on the component Makefile, so an edited
Makefile is re-queried without clearing anything. Clear the cache after
changing the build tooling itself.`,
	}
	cmd.AddCommand(c.cacheClearCommand(), c.cacheInfoCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached build queries and download validators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}

			if cfg.Build.Cache == CacheRedis {
				rc, err := cache.NewRedisCache(ctx, cfg.Build.RedisURL, cachePrefix)
				if err != nil {
					return err
				}
				n, err := rc.Clear(ctx)
				rc.Close()
				if err != nil {
					return fmt.Errorf("clear redis cache: %w", err)
				}
				printSuccess("Removed %d build queries from Redis", n)
			}

			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache directory is empty")
				return nil
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			n, err := fc.Clear(ctx)
			if err != nil {
				return err
			}
			printSuccess("Removed %d cached files", n)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

func (c *CLI) cacheInfoCommand() *cobra.Command {
	var pathOnly bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the cache backend, location and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if pathOnly {
				fmt.Fprintln(stdout, dir)
				return nil
			}
			cfg, err := c.config()
			if err != nil {
				return err
			}

			files, size := dirUsage(dir)
			printKeyValue("Backend", cfg.Build.Cache)
			if cfg.Build.Cache == CacheRedis {
				printKeyValue("Redis", cfg.Build.RedisURL)
			}
			printKeyValue("TTL", cfg.Build.CacheTTL.String())
			printKeyValue("Directory", dir)
			printKeyValue("Files", fmt.Sprintf("%d (%.1f MiB)", files, float64(size)/(1<<20)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&pathOnly, "path", false, "print only the cache directory")
	return cmd
}

// dirUsage counts the regular files below dir and their total size.
func dirUsage(dir string) (files int, size int64) {
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		files++
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return files, size
}
