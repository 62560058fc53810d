// Package cli implements the pkgcheck command-line interface.
//
// pkgcheck audits an oi-userland checkout against the dependency catalogs of
// its publishers, stores the result as a snapshot and answers questions about
// it. Commands are cobra commands; settings come from an optional TOML file
// (see loadConfig) overridden by flags.
//
// # Commands
//
//   - run: audit the repository, print problems, optionally save a snapshot
//   - problems, check-fmri, cycles, browse: query a saved snapshot
//   - graph: render cycles or dependents as SVG or DOT
//   - serve: HTTP query API with scheduled re-audits
//   - data update-assets: download catalogs and update the checkout
//   - cache: manage the build query cache
//
// # Logging
//
// Logs go to stderr through charmbracelet/log. --verbose enables debug
// output and --log-format switches to JSON or logfmt lines for serve
// deployments. Commands find the logger in their context.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Log formats accepted by --log-format.
const (
	logFormatText   = "text"
	logFormatJSON   = "json"
	logFormatLogfmt = "logfmt"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// setLogFormat switches l to the named formatter. Machine formats carry
// full RFC 3339 timestamps.
func setLogFormat(l *log.Logger, format string) error {
	switch format {
	case "", logFormatText:
		l.SetFormatter(log.TextFormatter)
	case logFormatJSON:
		l.SetFormatter(log.JSONFormatter)
		l.SetTimeFormat(time.RFC3339)
	case logFormatLogfmt:
		l.SetFormatter(log.LogfmtFormatter)
		l.SetTimeFormat(time.RFC3339)
	default:
		return fmt.Errorf("unknown log format %q (want text, json or logfmt)", format)
	}
	return nil
}

// progress logs how long a step took: "Loaded 3 catalogs (1.234s)".
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger set by the root command, or
// log.Default outside a command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
