package graph

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

// =============================================================================
// Handles and options
// =============================================================================

// PackageID addresses a package in the graph's arena.
type PackageID int

// ComponentID addresses a component in the graph's arena.
type ComponentID int

// NoComponent is the owner of a package that no component builds.
const NoComponent ComponentID = -1

// Options configures a new [Graph].
type Options struct {
	// Concurrent guards the arena with a read/write mutex so that a finished
	// graph can be read from several goroutines.
	Concurrent bool
}

type locker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type nopLocker struct{}

func (nopLocker) Lock()    {}
func (nopLocker) Unlock()  {}
func (nopLocker) RLock()   {}
func (nopLocker) RUnlock() {}

// =============================================================================
// Records
// =============================================================================

// Version is one published release of a package.
type Version struct {
	Version  fmri.Version
	Runtime  []depend.Dependency
	Obsolete bool
	Renamed  bool
}

// Stale reports whether the version is obsolete or renamed.
func (v *Version) Stale() bool { return v.Obsolete || v.Renamed }

// RuntimeDependent is one entry of a package's reverse runtime multiset.
type RuntimeDependent struct {
	Requester string // package name
	Kind      depend.RevKind
}

// Package is a package family: every known version of one name.
type Package struct {
	ID        PackageID
	Name      string
	Publisher string
	Versions  []*Version // newest first after resolution, which keeps only one

	// Obsolete and Renamed are package-wide flags set by a versionless
	// history record. Version flags live on each [Version].
	Obsolete bool
	Renamed  bool

	// RenamedTo is the successor name recorded by history, if any.
	RenamedTo string

	Owner ComponentID

	RuntimeDependents   []RuntimeDependent
	ComponentDependents map[depend.Class][]ComponentID
}

// FMRI returns the normalized identifier of the package.
func (p *Package) FMRI() fmri.FMRI { return fmri.FMRI{Name: p.Name} }

// Active returns the version that represents the package, which after
// [Graph.ResolveVersions] is the only one. Before resolution it is the
// first version ingested.
func (p *Package) Active() *Version {
	if len(p.Versions) == 0 {
		return nil
	}
	return p.Versions[0]
}

// IsObsolete reports whether the package is flagged obsolete as a whole or
// its active version is.
func (p *Package) IsObsolete() bool {
	if p.Obsolete {
		return true
	}
	v := p.Active()
	return v != nil && v.Obsolete
}

// IsRenamed reports whether the package is flagged renamed as a whole or
// its active version is.
func (p *Package) IsRenamed() bool {
	if p.Renamed {
		return true
	}
	v := p.Active()
	return v != nil && v.Renamed
}

// Stale reports whether the package is obsolete or renamed.
func (p *Package) Stale() bool { return p.IsObsolete() || p.IsRenamed() }

// FullyObsolete reports whether the active version itself is obsolete,
// meaning no release of the package is still valid. A package that is only
// flagged as a whole still resolves to an older, valid release.
func (p *Package) FullyObsolete() bool {
	v := p.Active()
	return v != nil && v.Obsolete
}

// Runtime returns the runtime dependencies of the active version.
func (p *Package) Runtime() []depend.Dependency {
	if v := p.Active(); v != nil {
		return v.Runtime
	}
	return nil
}

// Component is a unit of the source tree that builds one or more packages.
type Component struct {
	ID       ComponentID
	Name     string
	Path     string
	Packages []PackageID

	// Deps holds normalized build, test, system-build and system-test
	// dependencies keyed by class.
	Deps map[depend.Class][]fmri.FMRI
}

// DisplayName returns the name, or the path while the component is unnamed.
func (c *Component) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Path
}

// =============================================================================
// Graph
// =============================================================================

// Graph is the arena holding every package and component.
// The zero value is not usable; create graphs with [New].
type Graph struct {
	mu locker

	packages   []*Package
	components []*Component
	pkgIndex   map[string]PackageID
	compIndex  map[string]ComponentID

	resolved    bool
	distributed bool
}

// New creates an empty graph.
func New(opts Options) *Graph {
	g := &Graph{
		mu:        nopLocker{},
		pkgIndex:  make(map[string]PackageID),
		compIndex: make(map[string]ComponentID),
	}
	if opts.Concurrent {
		g.mu = &sync.RWMutex{}
	}
	return g
}

// AddPackage records one version of a package, creating the package on
// first sight. A version that is already known is merged: flags are OR-ed
// and runtime dependencies are unioned by normalized key. A merge that would
// leave the version both obsolete and renamed returns [ErrFlagConflict].
//
// Flagging a version both obsolete and renamed in one call panics.
func (g *Graph) AddPackage(id fmri.FMRI, obsolete, renamed bool, runtime []depend.Dependency) (PackageID, error) {
	if obsolete && renamed {
		panic(fmt.Sprintf("graph: package %s flagged both obsolete and renamed", id))
	}
	if id.Name == "" {
		return 0, ErrInvalidPackage
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolved {
		return 0, fmt.Errorf("add %s: %w", id, ErrResolved)
	}

	pid, ok := g.pkgIndex[id.Name]
	if !ok {
		pid = PackageID(len(g.packages))
		g.packages = append(g.packages, &Package{
			ID:                  pid,
			Name:                id.Name,
			Publisher:           id.Publisher,
			Owner:               NoComponent,
			ComponentDependents: make(map[depend.Class][]ComponentID),
		})
		g.pkgIndex[id.Name] = pid
	}
	p := g.packages[pid]

	for _, v := range p.Versions {
		if v.Version != id.Version {
			continue
		}
		if (v.Obsolete || obsolete) && (v.Renamed || renamed) {
			return pid, fmt.Errorf("merge %s: %w", id, ErrFlagConflict)
		}
		v.Obsolete = v.Obsolete || obsolete
		v.Renamed = v.Renamed || renamed
		v.Runtime = mergeDeps(v.Runtime, runtime)
		return pid, nil
	}

	p.Versions = append(p.Versions, &Version{
		Version:  id.Version,
		Runtime:  mergeDeps(nil, runtime),
		Obsolete: obsolete,
		Renamed:  renamed,
	})
	return pid, nil
}

func mergeDeps(dst, src []depend.Dependency) []depend.Dependency {
	seen := make(map[string]struct{}, len(dst)+len(src))
	for _, d := range dst {
		seen[d.Key()] = struct{}{}
	}
	for _, d := range src {
		k := d.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, d)
	}
	return dst
}

// AddComponent registers a component and claims ownership of the listed
// packages. Owned identifiers that are not known packages are reported as
// UnknownPackageOwned and skipped; ownership conflicts are reported as
// MultiOwnership. A non-empty name that is already registered returns a
// [*ConflictError].
func (g *Graph) AddComponent(name, path string, owned []fmri.FMRI, sink *problem.Sink) (ComponentID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if name != "" {
		if cid, ok := g.compIndex[name]; ok {
			return 0, &ConflictError{Name: name, Path: g.components[cid].Path}
		}
	}

	cid := ComponentID(len(g.components))
	c := &Component{
		ID:   cid,
		Name: name,
		Path: path,
		Deps: make(map[depend.Class][]fmri.FMRI),
	}
	g.components = append(g.components, c)
	if name != "" {
		g.compIndex[name] = cid
	}

	for _, f := range owned {
		pid, ok := g.pkgIndex[f.Name]
		if !ok {
			sink.Add(problem.Problem{
				Kind:      problem.UnknownPackageOwned,
				Package:   f.Name,
				Component: c.DisplayName(),
			})
			continue
		}
		if slices.Contains(c.Packages, pid) {
			continue
		}
		c.Packages = append(c.Packages, pid)
		g.setOwner(pid, cid, sink)
	}
	return cid, nil
}

// SetOwner assigns comp as the owner of pkg. If pkg already has a different
// owner, MultiOwnership is reported and the first owner is kept.
func (g *Graph) SetOwner(pkg PackageID, comp ComponentID, sink *problem.Sink) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pkg(pkg) == nil {
		return fmt.Errorf("package handle %d: %w", pkg, ErrPackageNotFound)
	}
	if g.comp(comp) == nil {
		return fmt.Errorf("component handle %d: %w", comp, ErrComponentNotFound)
	}
	g.setOwner(pkg, comp, sink)
	return nil
}

func (g *Graph) setOwner(pkg PackageID, comp ComponentID, sink *problem.Sink) {
	p := g.packages[pkg]
	switch p.Owner {
	case NoComponent:
		p.Owner = comp
	case comp:
	default:
		sink.Add(problem.Problem{
			Kind:       problem.MultiOwnership,
			Package:    p.Name,
			Components: []string{g.components[p.Owner].DisplayName(), g.components[comp].DisplayName()},
		})
	}
}

// AddComponentDependencies records the dependencies a component declares
// for one component-scoped class and mirrors the component onto each target
// package's dependent set for that class. Targets that are not known
// packages are reported as DanglingDependency.
//
// Passing [depend.Runtime] panics: runtime dependencies belong to package
// versions and are added through [Graph.AddPackage].
func (g *Graph) AddComponentDependencies(comp ComponentID, class depend.Class, deps []fmri.FMRI, sink *problem.Sink) error {
	if !class.IsComponentScoped() {
		panic(fmt.Sprintf("graph: %s dependencies cannot be declared by a component", class))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.comp(comp)
	if c == nil {
		return fmt.Errorf("component handle %d: %w", comp, ErrComponentNotFound)
	}

	for _, f := range deps {
		target := f.Normalize()
		if slices.Contains(c.Deps[class], target) {
			continue
		}
		c.Deps[class] = append(c.Deps[class], target)

		pid, ok := g.pkgIndex[target.Name]
		if !ok {
			sink.Add(problem.Problem{
				Kind:       problem.DanglingDependency,
				Package:    target.Name,
				Component:  c.DisplayName(),
				Class:      class,
				DependKind: depend.KindRequire,
			})
			continue
		}
		p := g.packages[pid]
		if !slices.Contains(p.ComponentDependents[class], comp) {
			p.ComponentDependents[class] = append(p.ComponentDependents[class], comp)
		}
	}
	return nil
}

// =============================================================================
// Lookups
// =============================================================================

func (g *Graph) pkg(id PackageID) *Package {
	if id < 0 || int(id) >= len(g.packages) {
		return nil
	}
	return g.packages[id]
}

func (g *Graph) comp(id ComponentID) *Component {
	if id < 0 || int(id) >= len(g.components) {
		return nil
	}
	return g.components[id]
}

// Package returns the package addressed by id, or nil.
func (g *Graph) Package(id PackageID) *Package {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pkg(id)
}

// Component returns the component addressed by id, or nil.
func (g *Graph) Component(id ComponentID) *Component {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.comp(id)
}

// PackageByName looks up a package by name.
func (g *Graph) PackageByName(name string) (*Package, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.packageByName(name)
}

func (g *Graph) packageByName(name string) (*Package, error) {
	pid, ok := g.pkgIndex[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrPackageNotFound)
	}
	return g.packages[pid], nil
}

// PackageByFMRI looks up the package named by f, ignoring publisher and version.
func (g *Graph) PackageByFMRI(f fmri.FMRI) (*Package, error) {
	return g.PackageByName(f.Name)
}

// ComponentByName looks up a component by name.
func (g *Graph) ComponentByName(name string) (*Component, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cid, ok := g.compIndex[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrComponentNotFound)
	}
	return g.components[cid], nil
}

// OwnerName returns the display name of p's owner, or "" if p has none.
func (g *Graph) OwnerName(p *Package) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if c := g.comp(p.Owner); c != nil {
		return c.DisplayName()
	}
	return ""
}

// Packages returns every package sorted by name.
func (g *Graph) Packages() []*Package {
	g.mu.RLock()
	out := slices.Clone(g.packages)
	g.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Package) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Components returns every component sorted by display name.
func (g *Graph) Components() []*Component {
	g.mu.RLock()
	out := slices.Clone(g.components)
	g.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Component) int { return strings.Compare(a.DisplayName(), b.DisplayName()) })
	return out
}

// Resolved reports whether [Graph.ResolveVersions] has run.
func (g *Graph) Resolved() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.resolved
}

// Stats summarizes the size of a graph.
type Stats struct {
	Packages       int `json:"packages"`
	Components     int `json:"components"`
	Versions       int `json:"versions"`
	Obsolete       int `json:"obsolete"`
	Renamed        int `json:"renamed"`
	Ownerless      int `json:"ownerless"`
	RuntimeEdges   int `json:"runtime_edges"`
	ComponentEdges int `json:"component_edges"`
	ReverseEntries int `json:"reverse_entries"`
}

// Stats counts records and edges.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{Packages: len(g.packages), Components: len(g.components)}
	for _, p := range g.packages {
		s.Versions += len(p.Versions)
		if p.IsObsolete() {
			s.Obsolete++
		}
		if p.IsRenamed() {
			s.Renamed++
		}
		if p.Owner == NoComponent {
			s.Ownerless++
		}
		for _, v := range p.Versions {
			s.RuntimeEdges += len(v.Runtime)
		}
		s.ReverseEntries += len(p.RuntimeDependents)
	}
	for _, c := range g.components {
		for _, deps := range c.Deps {
			s.ComponentEdges += len(deps)
		}
	}
	return s
}
