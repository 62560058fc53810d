package graph

import (
	"cmp"
	"slices"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
)

// DependentRef names something that depends on a package: a requesting
// package for runtime edges, a component for the four component classes.
type DependentRef struct {
	Name  string         `json:"name"`
	Class depend.Class   `json:"class"`
	Kind  depend.RevKind `json:"kind"`
}

// DependentsOf lists everything that depends on id, sorted by class, name
// and kind. Runtime dependents are only present after
// [Graph.DistributeReverse].
func (g *Graph) DependentsOf(id fmri.FMRI) ([]DependentRef, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, err := g.packageByName(id.Name)
	if err != nil {
		return nil, err
	}

	refs := make([]DependentRef, 0, len(p.RuntimeDependents))
	for _, d := range p.RuntimeDependents {
		refs = append(refs, DependentRef{Name: d.Requester, Class: depend.Runtime, Kind: d.Kind})
	}
	for _, class := range depend.ComponentClasses {
		for _, cid := range p.ComponentDependents[class] {
			refs = append(refs, DependentRef{Name: g.components[cid].DisplayName(), Class: class, Kind: depend.RevRequire})
		}
	}

	slices.SortFunc(refs, func(a, b DependentRef) int {
		return cmp.Or(
			cmp.Compare(a.Class, b.Class),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Kind, b.Kind),
		)
	})
	return refs, nil
}

// IsKnownPackage reports whether a package named like id exists.
func (g *Graph) IsKnownPackage(id fmri.FMRI) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.pkgIndex[id.Name]
	return ok
}

// IsObsoleted reports whether id names a known, obsolete package.
func (g *Graph) IsObsoleted(id fmri.FMRI) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, err := g.packageByName(id.Name)
	return err == nil && p.IsObsolete()
}

// OwnerOf returns the name of the component that builds id.
func (g *Graph) OwnerOf(id fmri.FMRI) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, err := g.packageByName(id.Name)
	if err != nil {
		return "", false
	}
	c := g.comp(p.Owner)
	if c == nil {
		return "", false
	}
	return c.DisplayName(), true
}
