package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/audit"
	"github.com/matzehuels/pkgcheck/pkg/buildinfo"
	"github.com/matzehuels/pkgcheck/pkg/cache"
	"github.com/matzehuels/pkgcheck/pkg/snapshot"
	"github.com/matzehuels/pkgcheck/pkg/userland"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pkgcheck"

	// cachePrefix scopes build-query entries in a shared Redis cache.
	cachePrefix = "pkgcheck:cache:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is set by the --config flag. Empty means the default
	// location, see loadConfig.
	ConfigPath string

	// Exec runs make and git. Nil means os/exec.
	Exec userland.Runner
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "pkgcheck audits an IPS package repository for dependency problems",
		Long: `pkgcheck loads the dependency catalogs of an IPS publisher together with the
oi-userland source tree, links every package to the component that builds it,
and reports dangling, obsolete and renamed dependencies, ownership problems and
build dependency cycles.`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var (
		verbose   bool
		logFormat string
	)
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		if err := setLogFormat(c.Logger, logFormat); err != nil {
			return err
		}
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/pkgcheck/config.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", logFormatText, "log format: text, json, logfmt")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.problemsCommand())
	root.AddCommand(c.checkFMRICommand())
	root.AddCommand(c.cyclesCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.dataCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// ExitCode maps the error returned by the root command to a process exit
// status: 0 on success, 2 when --fail found problems, 130 after an
// interrupt and 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, errProblemsFound):
		return 2
	case stderrors.Is(err, context.Canceled):
		return 130
	}
	return 1
}

// =============================================================================
// Runner Factory
// =============================================================================

func (c *CLI) exec() userland.Runner {
	if c.Exec != nil {
		return c.Exec
	}
	return userland.ExecRunner{}
}

// newRunner creates an audit runner whose build queries are cached in the
// backend selected by cfg.
func (c *CLI) newRunner(ctx context.Context, cfg BuildConfig, noCache bool) (*audit.Runner, cache.Cache, error) {
	bc, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, nil, err
	}
	q := userland.NewMakeQuerier(c.exec(), bc, cfg.CacheTTL.Duration)
	if cfg.Timeout.Duration > 0 {
		q.Timeout = cfg.Timeout.Duration
	}
	return audit.NewRunner(q, c.exec(), c.Logger), bc, nil
}

func newCache(ctx context.Context, cfg BuildConfig, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Cache == CacheNone {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache == CacheRedis {
		return cache.NewRedisCache(ctx, cfg.RedisURL, cachePrefix)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// openStore opens the snapshot store configured in cfg.
func openStore(ctx context.Context, cfg snapshot.Config) (snapshot.Store, error) {
	if cfg.Backend == "" || cfg.Backend == snapshot.BackendFile {
		if cfg.Path == "" {
			dir, err := dataDir()
			if err != nil {
				return nil, err
			}
			cfg.Path = filepath.Join(dir, "snapshots")
		}
	}
	return snapshot.Open(ctx, cfg)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/pkgcheck/).
func cacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// dataDir holds downloaded catalogs and file snapshots (~/.local/share/pkgcheck/).
func dataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// configDir holds config.toml (~/.config/pkgcheck/).
func configDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}
