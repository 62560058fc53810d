package graph

import (
	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

// DistributeReverse rebuilds every package's reverse runtime multiset from
// the runtime dependencies of the active versions. Each forward edge A -> B
// of kind K adds exactly one (A, K) entry to B: a require-any adds one entry
// per alternative, a conditional adds one entry on its target and one on its
// predicate. Targets that are not known packages are reported as
// DanglingDependency.
//
// Component-scoped dependencies are not touched; they are mirrored when
// they are added.
func (g *Graph) DistributeReverse(sink *problem.Sink) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.resolved {
		return ErrNotResolved
	}

	for _, p := range g.packages {
		p.RuntimeDependents = nil
	}

	for _, p := range g.packages {
		for _, d := range p.Runtime() {
			switch d.Kind {
			case depend.KindRequireAny:
				for _, f := range d.Any {
					g.addReverse(p, f, d.Kind, depend.RevRequireAny, sink)
				}
			case depend.KindConditional:
				g.addReverse(p, d.FMRI, d.Kind, depend.RevConditionalFMRI, sink)
				g.addReverse(p, d.Predicate, d.Kind, depend.RevConditionalPredicate, sink)
			default:
				g.addReverse(p, d.FMRI, d.Kind, d.Kind.Reverse(), sink)
			}
		}
	}

	g.distributed = true
	return nil
}

func (g *Graph) addReverse(from *Package, to fmri.FMRI, kind depend.Kind, rev depend.RevKind, sink *problem.Sink) {
	pid, ok := g.pkgIndex[to.Name]
	if !ok {
		sink.Add(problem.Problem{
			Kind:       problem.DanglingDependency,
			Package:    to.Name,
			Requester:  from.Name,
			Class:      depend.Runtime,
			DependKind: kind,
			ByRenamed:  from.IsRenamed(),
		})
		return
	}
	target := g.packages[pid]
	target.RuntimeDependents = append(target.RuntimeDependents, RuntimeDependent{
		Requester: from.Name,
		Kind:      rev,
	})
}

// Distributed reports whether [Graph.DistributeReverse] has run.
func (g *Graph) Distributed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.distributed
}
