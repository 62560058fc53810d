// Package audit runs a complete repository audit.
//
// An audit loads the inputs into one graph, resolves it and checks it:
//
//  1. Catalog: parse every dependency catalog (concurrently) and load the
//     package versions in the order the catalogs were given
//  2. History: apply obsolete and rename marks from the history file
//  3. Components: list the source tree and run the build queries
//  4. Resolve: select the active version of every package
//  5. Distribute: build the reverse dependency index
//  6. Check and Cycles: run the consistency checker and the cycle detector
//     side by side on the finished graph
//
// Stages 2 and 3 are optional. Input errors in single records are collected
// in [Result.InputErrors]; structural problems land in [Result.Problems];
// only unusable inputs (an unreadable catalog, a components directory
// without a working Makefile) or cancellation fail the run.
//
// Usage:
//
//	runner := audit.NewRunner(querier, nil, logger)
//	res, err := runner.Run(ctx, audit.Options{
//	    Catalogs:   []string{"data/catalog.dependency.C"},
//	    History:    "oi-userland/history",
//	    Components: "oi-userland/components",
//	})
package audit

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/graph/cycles"
	"github.com/matzehuels/pkgcheck/pkg/problem"
	"github.com/matzehuels/pkgcheck/pkg/userland"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultCycleEdges is the edge selection used for cycle detection.
	DefaultCycleEdges = "all"

	// DefaultWorkers bounds concurrent build queries.
	DefaultWorkers = userland.DefaultWorkers
)

// Stage names reported to observability hooks and in [Timings].
const (
	StageCatalog    = "catalog"
	StageHistory    = "history"
	StageComponents = "components"
	StageResolve    = "resolve"
	StageDistribute = "distribute"
	StageCheck      = "check"
	StageCycles     = "cycles"
)

// =============================================================================
// Options
// =============================================================================

// Options configures an audit run.
type Options struct {
	// Catalogs are catalog.dependency.C files, loaded in order.
	Catalogs []string `json:"catalogs"`
	// History is the optional history file.
	History string `json:"history,omitempty"`
	// Components is the optional components directory of a source tree.
	Components string `json:"components,omitempty"`

	Workers int `json:"workers,omitempty"`
	// CycleEdges selects the edges followed by the cycle detector, in the
	// syntax of [cycles.ParseEdges]. Empty means DefaultCycleEdges.
	CycleEdges string `json:"cycle_edges,omitempty"`
	// SkipCycles disables cycle detection.
	SkipCycles bool `json:"skip_cycles,omitempty"`

	Logger *log.Logger `json:"-"`

	edges     cycles.EdgeSet
	validated bool
}

// Validate checks required fields and applies defaults. It is idempotent.
func (o *Options) Validate() error {
	if o.validated {
		return nil
	}
	if len(o.Catalogs) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one catalog is required")
	}
	for _, c := range o.Catalogs {
		if c == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "empty catalog path")
		}
	}
	o.SetDefaults()

	edges, err := cycles.ParseEdges(o.CycleEdges)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "cycle edges")
	}
	o.edges = edges
	o.validated = true
	return nil
}

// SetDefaults fills in zero values.
func (o *Options) SetDefaults() {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.CycleEdges == "" {
		o.CycleEdges = DefaultCycleEdges
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of an audit.
type Result struct {
	// Graph is the resolved and distributed graph. It is safe for
	// concurrent reads.
	Graph *graph.Graph

	// Problems is the priority-ordered, deduplicated problem list.
	Problems []problem.Problem
	Counts   problem.Counts

	// Cycles are the reported dependency cycles, also present in Problems.
	Cycles []cycles.Cycle

	// InputErrors are the records that could not be loaded.
	InputErrors []error

	Stats   graph.Stats
	Timings Timings
}

// Timings records how long each stage took.
type Timings map[string]time.Duration

// Total sums all stage durations. Check and cycles overlap, so this is an
// upper bound on wall time.
func (t Timings) Total() time.Duration {
	var d time.Duration
	for _, v := range t {
		d += v
	}
	return d
}

func (t Timings) String() string {
	return fmt.Sprintf("catalog=%s history=%s components=%s resolve=%s distribute=%s check=%s cycles=%s",
		t[StageCatalog], t[StageHistory], t[StageComponents], t[StageResolve],
		t[StageDistribute], t[StageCheck], t[StageCycles])
}
