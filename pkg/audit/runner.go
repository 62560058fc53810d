package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pkgcheck/pkg/catalog"
	"github.com/matzehuels/pkgcheck/pkg/check"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/graph/cycles"
	"github.com/matzehuels/pkgcheck/pkg/history"
	"github.com/matzehuels/pkgcheck/pkg/observability"
	"github.com/matzehuels/pkgcheck/pkg/problem"
	"github.com/matzehuels/pkgcheck/pkg/userland"
)

// Runner executes audits. It holds no per-run state, so one Runner may
// serve concurrent runs.
type Runner struct {
	Querier userland.Querier
	Exec    userland.Runner
	Logger  *log.Logger
}

// NewRunner creates a runner. A nil querier runs make uncached, a nil exec
// runs commands with os/exec and a nil logger uses log.Default().
func NewRunner(q userland.Querier, exec userland.Runner, logger *log.Logger) *Runner {
	if exec == nil {
		exec = userland.ExecRunner{}
	}
	if q == nil {
		q = userland.NewMakeQuerier(exec, nil, 0)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Querier: q,
		Exec:    exec,
		Logger:  logger,
	}
}

// Run executes all stages.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.Logger
	if logger == nil {
		logger = opts.Logger
	}

	res := &Result{
		Graph:   graph.New(graph.Options{Concurrent: true}),
		Timings: make(Timings),
	}
	sink := problem.NewSink()
	g := res.Graph

	if err := r.stage(ctx, res, StageCatalog, func() (int, error) {
		return loadCatalogs(g, opts.Catalogs, res, logger)
	}); err != nil {
		return nil, err
	}
	logger.Info("loaded catalogs", "packages", len(g.Packages()), "duration", res.Timings[StageCatalog])

	if opts.History != "" {
		if err := r.stage(ctx, res, StageHistory, func() (int, error) {
			recs, errs, err := history.ParseFile(opts.History)
			if err != nil {
				return 0, err
			}
			res.InputErrors = append(res.InputErrors, errs...)
			n, errs := history.Apply(g, recs, logger)
			res.InputErrors = append(res.InputErrors, errs...)
			return n, nil
		}); err != nil {
			return nil, err
		}
		logger.Info("applied history", "duration", res.Timings[StageHistory])
	}

	if opts.Components != "" {
		if err := r.stage(ctx, res, StageComponents, func() (int, error) {
			entries, errs, err := userland.ListComponents(ctx, r.Exec, opts.Components)
			if err != nil {
				return 0, err
			}
			res.InputErrors = append(res.InputErrors, errs...)
			n, errs, err := userland.Load(ctx, g, entries, r.Querier, sink, userland.LoadOptions{
				Workers: opts.Workers,
				Logger:  logger,
			})
			res.InputErrors = append(res.InputErrors, errs...)
			return n, err
		}); err != nil {
			return nil, err
		}
		logger.Info("loaded components", "components", len(g.Components()), "duration", res.Timings[StageComponents])
	}

	if err := r.stage(ctx, res, StageResolve, func() (int, error) {
		g.ResolveVersions()
		return len(g.Packages()), nil
	}); err != nil {
		return nil, err
	}
	if err := r.stage(ctx, res, StageDistribute, func() (int, error) {
		return 0, g.DistributeReverse(sink)
	}); err != nil {
		return nil, err
	}

	// The graph is final from here on; checker and detector only read it.
	eg, egCtx := errgroup.WithContext(ctx)
	var checkTime time.Duration
	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return err
		}
		hooks := observability.Audit()
		hooks.OnStageStart(egCtx, StageCheck)
		start := time.Now()
		check.Check(g, sink)
		checkTime = time.Since(start)
		hooks.OnStageComplete(egCtx, StageCheck, sink.Len(), checkTime, nil)
		return nil
	})
	if !opts.SkipCycles {
		eg.Go(func() error {
			return r.stage(egCtx, res, StageCycles, func() (int, error) {
				res.Cycles = cycles.Detect(g, opts.edges)
				return len(res.Cycles), nil
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	// Neither stage polls ctx while running.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Timings[StageCheck] = checkTime
	cycles.Report(res.Cycles, sink)

	res.Problems = sink.Problems()
	res.Counts = problem.CountKinds(res.Problems)
	res.Stats = g.Stats()
	for _, k := range problem.Kinds() {
		observability.Audit().OnProblems(ctx, k.String(), res.Counts[k])
	}

	logger.Info("audit complete",
		"problems", len(res.Problems),
		"cycles", len(res.Cycles),
		"input_errors", len(res.InputErrors))
	return res, nil
}

// stage times fn, records the duration and reports it to the hooks.
func (r *Runner) stage(ctx context.Context, res *Result, name string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hooks := observability.Audit()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	n, err := fn()
	d := time.Since(start)
	res.Timings[name] = d
	hooks.OnStageComplete(ctx, name, n, d, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// loadCatalogs parses all catalogs concurrently, then loads them in order
// so that version merging does not depend on scheduling.
func loadCatalogs(g *graph.Graph, paths []string, res *Result, logger *log.Logger) (int, error) {
	parsed := make([][]catalog.Record, len(paths))
	parseErrs := make([][]error, len(paths))

	var eg errgroup.Group
	for i, path := range paths {
		eg.Go(func() error {
			recs, errs, err := catalog.ParseFile(path)
			if err != nil {
				return err
			}
			parsed[i], parseErrs[i] = recs, errs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for i := range parsed {
		res.InputErrors = append(res.InputErrors, parseErrs[i]...)
		n, errs := catalog.Load(g, parsed[i], logger)
		res.InputErrors = append(res.InputErrors, errs...)
		total += n
	}
	return total, nil
}
