// Package cycles finds dependency cycles between components.
//
// [Detect] walks the package graph depth first over a caller-chosen
// [EdgeSet]. A route records every package on the current path together
// with the edge that leaves it; stepping onto a package that is already on
// the route closes a cycle, and the cyclic suffix of the route is recorded.
//
// Cycles are reported at component granularity. Each package on a route is
// replaced by the name of its owning component (or kept as a bare package
// name if it has no owner), runtime hops inside one component collapse, and
// the route is rotated so that equal cycles found from different starting
// points compare equal. Two kinds of cycles are dropped: cycles made only of
// runtime edges, which IPS handles at install time, and cycles whose packages
// all belong to the same component.
//
// The visited set is global across the whole walk, so a package's outgoing
// edges are explored once. This keeps the walk linear in the number of edges
// but is conservative: a second cycle that is only reachable through a
// package first reached on a non-cyclic path is not found.
package cycles

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

// Hop is one step of a cycle: a node and the edge leaving it.
type Hop struct {
	Node string `json:"node"`
	Edge Edge   `json:"edge"`
}

// Cycle is a canonical cycle route. The last hop leads back to the first.
type Cycle struct {
	Route []Hop `json:"route"`
}

// String renders the cycle as "c1 --build--> c2 --build--> c1".
func (c Cycle) String() string {
	return problem.FormatRoute(c.Hops())
}

// Hops converts the route to the problem representation.
func (c Cycle) Hops() []problem.Hop {
	out := make([]problem.Hop, len(c.Route))
	for i, h := range c.Route {
		out[i] = problem.Hop{Node: h.Node, Edge: h.Edge.String()}
	}
	return out
}

// Nodes returns the distinct nodes of the cycle in route order.
func (c Cycle) Nodes() []string {
	var out []string
	for _, h := range c.Route {
		if !slices.Contains(out, h.Node) {
			out = append(out, h.Node)
		}
	}
	return out
}

func compareHop(a, b Hop) int {
	return cmp.Or(strings.Compare(a.Node, b.Node), cmp.Compare(a.Edge, b.Edge))
}

func compareCycle(a, b Cycle) int {
	return slices.CompareFunc(a.Route, b.Route, compareHop)
}

// =============================================================================
// Detection
// =============================================================================

type step struct {
	pkg  *graph.Package
	edge Edge
}

type target struct {
	pkg  *graph.Package
	edge Edge
}

type walker struct {
	g       *graph.Graph
	edges   EdgeSet
	visited map[graph.PackageID]bool
	onRoute map[graph.PackageID]int
	route   []step
	found   [][]step
}

// Detect returns the canonical, deduplicated cycles reachable over edges,
// sorted by route. The graph is only read.
func Detect(g *graph.Graph, edges EdgeSet) []Cycle {
	w := &walker{
		g:       g,
		edges:   edges,
		visited: make(map[graph.PackageID]bool),
		onRoute: make(map[graph.PackageID]int),
	}
	for _, p := range g.Packages() {
		if !w.visited[p.ID] {
			w.visit(p)
		}
	}

	var out []Cycle
	for _, raw := range w.found {
		if c, ok := w.canonical(raw); ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, compareCycle)
	return slices.CompactFunc(out, func(a, b Cycle) bool { return compareCycle(a, b) == 0 })
}

func (w *walker) visit(p *graph.Package) {
	w.visited[p.ID] = true
	w.onRoute[p.ID] = len(w.route)
	w.route = append(w.route, step{pkg: p, edge: New})
	at := len(w.route) - 1

	for _, t := range w.targets(p) {
		w.route[at].edge = t.edge
		if i, ok := w.onRoute[t.pkg.ID]; ok {
			w.found = append(w.found, slices.Clone(w.route[i:]))
			continue
		}
		if w.visited[t.pkg.ID] {
			continue
		}
		w.visit(t.pkg)
	}

	w.route = w.route[:at]
	delete(w.onRoute, p.ID)
}

// targets lists the outgoing edges of p in a stable order: runtime edges
// first, in declaration order, then component edges by class.
func (w *walker) targets(p *graph.Package) []target {
	var out []target
	add := func(name string, e Edge) {
		if !w.edges.Has(e) {
			return
		}
		if t, err := w.g.PackageByName(name); err == nil {
			out = append(out, target{pkg: t, edge: e})
		}
	}

	for _, d := range p.Runtime() {
		switch d.Kind {
		case depend.KindRequire:
			add(d.FMRI.Name, RuntimeRequire)
		case depend.KindRequireAny:
			for _, f := range d.Any {
				add(f.Name, RuntimeRequireAny)
			}
		case depend.KindConditional:
			add(d.FMRI.Name, RuntimeConditional)
		}
	}

	if c := w.g.Component(p.Owner); c != nil {
		for _, class := range depend.ComponentClasses {
			for _, f := range c.Deps[class] {
				add(f.Name, classEdge(class))
			}
		}
	}
	return out
}

// canonical maps a raw route to component granularity and reports whether
// the cycle survives filtering.
func (w *walker) canonical(raw []step) (Cycle, bool) {
	pureRuntime := true
	sameOwner := true
	for _, s := range raw {
		if !s.edge.IsRuntime() {
			pureRuntime = false
		}
		if s.pkg.Owner == graph.NoComponent || s.pkg.Owner != raw[0].pkg.Owner {
			sameOwner = false
		}
	}
	if pureRuntime || sameOwner {
		return Cycle{}, false
	}

	hops := make([]Hop, len(raw))
	for i, s := range raw {
		hops[i] = Hop{Node: w.nodeName(s.pkg), Edge: s.edge}
	}

	collapsed := make([]Hop, 0, len(hops))
	for i, h := range hops {
		next := hops[(i+1)%len(hops)]
		if h.Edge.IsRuntime() && h.Node == next.Node {
			continue
		}
		collapsed = append(collapsed, h)
	}
	if len(collapsed) == 0 {
		collapsed = hops
	}

	return Cycle{Route: rotate(collapsed)}, true
}

func (w *walker) nodeName(p *graph.Package) string {
	if c := w.g.Component(p.Owner); c != nil {
		return c.DisplayName()
	}
	return p.Name
}

// rotate returns the rotation of route that starts at its smallest hop.
func rotate(route []Hop) []Hop {
	best := 0
	for i := 1; i < len(route); i++ {
		if compareRotation(route, i, best) < 0 {
			best = i
		}
	}
	return append(slices.Clone(route[best:]), route[:best]...)
}

func compareRotation(route []Hop, i, j int) int {
	n := len(route)
	for k := range n {
		if c := compareHop(route[(i+k)%n], route[(j+k)%n]); c != 0 {
			return c
		}
	}
	return 0
}

// =============================================================================
// Reporting
// =============================================================================

// Report records every cycle as a DependencyCycle problem.
func Report(cycles []Cycle, sink *problem.Sink) {
	for _, c := range cycles {
		sink.Add(problem.Problem{Kind: problem.DependencyCycle, Route: c.Hops()})
	}
}
