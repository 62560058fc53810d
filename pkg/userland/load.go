package userland

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

// DefaultWorkers is the number of components queried at once.
const DefaultWorkers = 8

// LoadOptions configures [Load].
type LoadOptions struct {
	// Workers bounds concurrent build queries. Zero means DefaultWorkers.
	Workers int
	// Logger receives progress; nil means log.Default().
	Logger *log.Logger
}

type queried struct {
	id   graph.ComponentID
	deps [len(classes)][]fmri.FMRI
	ok   [len(classes)]bool
}

var classes = [...]depend.Class{depend.Build, depend.Test, depend.SystemBuild, depend.SystemTest}

// Load registers comps in g and records their four component-class
// dependency lists as answered by q.
//
// Components are registered in order first, so ownership conflicts are
// reported deterministically. Queries then run concurrently; a query that
// cannot be run is reported to sink as an unrunnable build query and the
// component simply has no dependencies of that class. The returned count
// is the number of components registered. Per-component errors (name
// conflicts, unparsable output) are collected; only cancellation of ctx
// aborts the load.
func Load(ctx context.Context, g *graph.Graph, comps []Entry, q Querier, sink *problem.Sink, opts LoadOptions) (int, []error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var errs []error
	results := make([]queried, 0, len(comps))
	registered := make([]Entry, 0, len(comps))
	for _, c := range comps {
		id, err := g.AddComponent(c.Name, c.Path, c.Packages, sink)
		if err != nil {
			errs = append(errs, &errors.RecordError{Source: "components", Record: c.Name, Err: err})
			continue
		}
		results = append(results, queried{id: id})
		registered = append(registered, c)
	}

	start := time.Now()
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	qerrs := make([][]error, len(registered))

	for i, c := range registered {
		eg.Go(func() error {
			for j, class := range classes {
				deps, err := q.Query(egctx, c, class)
				if err != nil {
					if egctx.Err() != nil {
						return egctx.Err()
					}
					qerrs[i] = append(qerrs[i], err)
					continue
				}
				results[i].deps[j] = deps
				results[i].ok[j] = true
			}
			logger.Debug("queried component", "component", c.Name)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return len(registered), errs, err
	}

	for i, r := range results {
		for j, class := range classes {
			if !r.ok[j] {
				continue
			}
			if err := g.AddComponentDependencies(r.id, class, r.deps[j], sink); err != nil {
				errs = append(errs, err)
			}
		}
		for _, err := range qerrs[i] {
			var qe *QueryError
			if stderrors.As(err, &qe) {
				sink.Add(problem.Problem{
					Kind:      problem.UnrunnableBuildQuery,
					Component: registered[i].Name,
					Command:   qe.Command,
					Path:      qe.Path,
				})
				continue
			}
			errs = append(errs, &errors.RecordError{Source: "components", Record: registered[i].Name, Err: err})
		}
	}

	logger.Debug("loaded components", "count", len(registered), "elapsed", time.Since(start))
	return len(registered), errs, nil
}
