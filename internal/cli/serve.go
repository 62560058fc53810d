package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/observability"
	"github.com/matzehuels/pkgcheck/pkg/server"
	"github.com/matzehuels/pkgcheck/pkg/snapshot"
)

// serveCommand creates the serve command, which answers dependency queries
// over HTTP and optionally re-runs the audit on a schedule.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags    auditFlags
		addr     string
		schedule string
		auditNow bool
		noWatch  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest audit over HTTP",
		Long: `Serve the latest audit over HTTP.

The server answers problem, cycle and dependents queries from the latest
snapshot and exposes Prometheus metrics on /metrics. With --schedule the
audit is re-run on a cron schedule and each result is saved and served.
With the file store, snapshots saved by 'pkgcheck run --save' in another
process are picked up automatically.

Examples:
  pkgcheck serve --addr :8080
  pkgcheck serve --repo ~/src/oi-userland --schedule "0 3 * * *" --audit-now`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Addr = addr
			}
			if schedule != "" {
				cfg.Serve.Schedule = schedule
			}
			if noWatch {
				cfg.Serve.Watch = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.serve(cmd.Context(), cfg, auditNow, flags.noCache)
		},
	}

	addAuditFlags(cmd, &flags)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default "+server.DefaultAddr+")")
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron schedule for re-running the audit, e.g. "0 3 * * *"`)
	cmd.Flags().BoolVar(&auditNow, "audit-now", false, "run the audit once at startup")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload snapshots saved by other processes")

	return cmd
}

func (c *CLI) serve(ctx context.Context, cfg *Config, auditNow, noCache bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetAuditHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	srv, err := server.New(server.Options{
		CacheSize: cfg.Serve.LRUSize,
		Registry:  reg,
		Logger:    c.Logger,
	})
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()

	snap, err := store.Latest(ctx)
	switch {
	case err == nil:
		if err := srv.Reload(snap); err != nil {
			return err
		}
	case stderrors.Is(err, snapshot.ErrNotFound):
		c.Logger.Warn("no snapshot yet; API answers 503 until an audit is saved")
	default:
		return err
	}

	job := func() {
		if err := c.auditAndReload(ctx, cfg, store, srv, noCache); err != nil {
			c.Logger.Error("scheduled audit", "err", err)
		}
	}
	if auditNow {
		go job()
	}

	if cfg.Serve.Schedule != "" {
		logger := cronLogger{c.Logger}
		cr := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
		if _, err := cr.AddFunc(cfg.Serve.Schedule, job); err != nil {
			return fmt.Errorf("schedule %q: %w", cfg.Serve.Schedule, err)
		}
		cr.Start()
		defer cr.Stop()
		c.Logger.Info("scheduled audits", "schedule", cfg.Serve.Schedule)
	}

	if fs, ok := store.(*snapshot.FileStore); ok && cfg.Serve.Watch {
		go func() {
			if err := srv.Watch(ctx, fs); err != nil {
				c.Logger.Warn("snapshot watcher stopped", "err", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx, cfg.Serve.Addr)
}

// auditAndReload runs one audit, saves it and serves it.
func (c *CLI) auditAndReload(ctx context.Context, cfg *Config, store snapshot.Store, srv *server.Server, noCache bool) error {
	runner, bc, err := c.newRunner(ctx, cfg.Build, noCache)
	if err != nil {
		return err
	}
	defer bc.Close()

	opts := cfg.AuditOptions()
	opts.Logger = c.Logger
	res, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	snap := snapshot.FromResult(res)
	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return srv.Reload(snap)
}

// cronLogger adapts a charm logger to cron.Logger.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"err", err}, keysAndValues...)...)
}
