// Package check evaluates a resolved graph against the repository's
// consistency rules and records every violation in a problem sink.
//
// The checker only reads the graph. It expects [graph.Graph.ResolveVersions]
// and [graph.Graph.DistributeReverse] to have run, since usefulness and
// staleness are judged from the active version and the reverse index.
package check

import (
	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

// Check runs every rule over g. It never stops early: a rule that cannot
// fully evaluate a package records the most specific problem it can and
// moves on.
func Check(g *graph.Graph, sink *problem.Sink) {
	c := &checker{g: g, sink: sink}
	c.staleOwnership()
	c.missingOwner()
	c.uselessComponents()
	c.danglingDependencies()
	c.renameNeedsRename()
	c.staleRuntimeReferences()
	c.staleComponentReferences()
}

type checker struct {
	g    *graph.Graph
	sink *problem.Sink
}

// staleOwnership flags obsolete or renamed packages still listed by a component.
func (c *checker) staleOwnership() {
	for _, p := range c.g.Packages() {
		owner := c.g.Component(p.Owner)
		if owner == nil {
			continue
		}
		var reason string
		switch {
		case p.IsObsolete():
			reason = problem.ReasonObsolete
		case p.IsRenamed():
			reason = problem.ReasonRenamed
		default:
			continue
		}
		c.sink.Add(problem.Problem{
			Kind:      problem.StaleOwnership,
			Package:   p.Name,
			Component: owner.DisplayName(),
			Reason:    reason,
		})
	}
}

func (c *checker) missingOwner() {
	for _, p := range c.g.Packages() {
		if p.Owner == graph.NoComponent && !p.Stale() {
			c.sink.Add(problem.Problem{Kind: problem.MissingOwner, Package: p.Name})
		}
	}
}

// uselessComponents flags components none of whose packages are needed:
// every package is stale, or has no dependents other than incorporations.
func (c *checker) uselessComponents() {
	for _, comp := range c.g.Components() {
		if len(comp.Packages) == 0 {
			continue
		}
		useful := false
		for _, pid := range comp.Packages {
			p := c.g.Package(pid)
			if p != nil && !p.Stale() && needed(p) {
				useful = true
				break
			}
		}
		if !useful {
			c.sink.Add(problem.Problem{Kind: problem.UselessComponent, Component: comp.DisplayName()})
		}
	}
}

func needed(p *graph.Package) bool {
	for _, d := range p.RuntimeDependents {
		if d.Kind != depend.RevIncorporate {
			return true
		}
	}
	for _, class := range depend.ComponentClasses {
		if len(p.ComponentDependents[class]) > 0 {
			return true
		}
	}
	return false
}

// danglingDependencies re-scans every declared dependency for unknown
// targets. Findings already recorded while the graph was built are dropped
// by the sink.
func (c *checker) danglingDependencies() {
	for _, p := range c.g.Packages() {
		for _, d := range p.Runtime() {
			for _, f := range d.Targets() {
				if !c.g.IsKnownPackage(f) {
					c.sink.Add(problem.Problem{
						Kind:       problem.DanglingDependency,
						Package:    f.Name,
						Requester:  p.Name,
						Class:      depend.Runtime,
						DependKind: d.Kind,
						ByRenamed:  p.IsRenamed(),
					})
				}
			}
		}
	}
	for _, comp := range c.g.Components() {
		for _, class := range depend.ComponentClasses {
			for _, f := range comp.Deps[class] {
				if !c.g.IsKnownPackage(f) {
					c.sink.Add(problem.Problem{
						Kind:       problem.DanglingDependency,
						Package:    f.Name,
						Component:  comp.DisplayName(),
						Class:      class,
						DependKind: depend.KindRequire,
					})
				}
			}
		}
	}
}

// renameNeedsRename flags renamed packages whose own dependencies point at
// other renamed packages. Component dependencies count for every package
// the component owns.
func (c *checker) renameNeedsRename() {
	for _, p := range c.g.Packages() {
		if !p.IsRenamed() {
			continue
		}
		for _, d := range p.Runtime() {
			for _, f := range d.Targets() {
				c.renamedTarget(p, f.Name)
			}
		}
		if owner := c.g.Component(p.Owner); owner != nil {
			for _, class := range depend.ComponentClasses {
				for _, f := range owner.Deps[class] {
					c.renamedTarget(p, f.Name)
				}
			}
		}
	}
}

func (c *checker) renamedTarget(from *graph.Package, name string) {
	t, err := c.g.PackageByName(name)
	if err != nil || !t.IsRenamed() || t.Name == from.Name {
		return
	}
	c.sink.Add(problem.Problem{
		Kind:      problem.RenameNeedsRename,
		Requester: from.Name,
		Package:   t.Name,
	})
}

// staleRuntimeReferences flags runtime dependencies on obsolete packages.
// Incorporations and obsolete requesters are skipped: an incorporation
// pins versions without pulling the package in, and an obsolete package's
// dependencies no longer matter.
func (c *checker) staleRuntimeReferences() {
	for _, p := range c.g.Packages() {
		if p.IsObsolete() {
			continue
		}
		for _, d := range p.Runtime() {
			if d.Kind == depend.KindIncorporate {
				continue
			}
			for _, f := range d.Targets() {
				t, err := c.g.PackageByName(f.Name)
				if err != nil || !t.IsObsolete() {
					continue
				}
				c.sink.Add(problem.Problem{
					Kind:       obsoleteKind(t),
					Package:    t.Name,
					Requester:  p.Name,
					Class:      depend.Runtime,
					DependKind: d.Kind,
					ByRenamed:  p.IsRenamed(),
				})
			}
		}
	}
}

// staleComponentReferences flags build, test, system-build and
// system-test dependencies on obsolete or renamed packages.
func (c *checker) staleComponentReferences() {
	for _, comp := range c.g.Components() {
		for _, class := range depend.ComponentClasses {
			for _, f := range comp.Deps[class] {
				t, err := c.g.PackageByName(f.Name)
				if err != nil {
					continue
				}
				var kind problem.Kind
				switch {
				case t.IsObsolete():
					kind = obsoleteKind(t)
				case t.IsRenamed():
					kind = problem.StaleDependencyRenamed
				default:
					continue
				}
				c.sink.Add(problem.Problem{
					Kind:       kind,
					Package:    t.Name,
					Component:  comp.DisplayName(),
					Class:      class,
					DependKind: depend.KindRequire,
				})
			}
		}
	}
}

func obsoleteKind(p *graph.Package) problem.Kind {
	if p.FullyObsolete() {
		return problem.StaleDependencyObsolete
	}
	return problem.StaleDependencyPartlyObsolete
}
