package graph

import (
	"errors"
	"testing"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

func mustAdd(t *testing.T, g *Graph, id string, obsolete, renamed bool, deps ...depend.Dependency) PackageID {
	t.Helper()
	pid, err := g.AddPackage(fmri.MustParse(id), obsolete, renamed, deps)
	if err != nil {
		t.Fatalf("AddPackage(%s): %v", id, err)
	}
	return pid
}

func fmris(names ...string) []fmri.FMRI {
	out := make([]fmri.FMRI, len(names))
	for i, n := range names {
		out[i] = fmri.MustParse(n)
	}
	return out
}

func TestAddPackageMergesVersions(t *testing.T) {
	g := New(Options{})
	a := mustAdd(t, g, "pkg://oi/library/a@1.0", false, false, depend.Require(fmri.MustParse("b@1")))
	b := mustAdd(t, g, "library/a@1.0", true, false, depend.Require(fmri.MustParse("pkg://oi/b@2")), depend.Optional(fmri.MustParse("c")))
	mustAdd(t, g, "library/a@2.0", false, false)

	if a != b {
		t.Fatalf("AddPackage returned %d and %d for the same name", a, b)
	}
	p := g.Package(a)
	if len(p.Versions) != 2 {
		t.Fatalf("len(Versions) = %d, want 2", len(p.Versions))
	}
	v := p.Versions[0]
	if !v.Obsolete {
		t.Error("merged version lost obsolete flag")
	}
	if len(v.Runtime) != 2 {
		t.Errorf("merged runtime deps = %v, want 2 entries", v.Runtime)
	}
	if p.Publisher != "oi" {
		t.Errorf("Publisher = %q, want oi", p.Publisher)
	}
}

func TestAddPackageMergeFlagConflict(t *testing.T) {
	g := New(Options{})
	if _, err := g.AddPackage(fmri.MustParse("p@1.0"), true, false, nil); err != nil {
		t.Fatal(err)
	}
	_, err := g.AddPackage(fmri.MustParse("p@1.0"), false, true, nil)
	if !errors.Is(err, ErrFlagConflict) {
		t.Fatalf("merge err = %v, want ErrFlagConflict", err)
	}
	obsolete, renamed, err := g.Flags(fmri.MustParse("p@1.0"))
	if err != nil || !obsolete || renamed {
		t.Errorf("Flags = %v, %v, %v; want the first record kept", obsolete, renamed, err)
	}
}

func TestAddPackageBothFlagsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("AddPackage(obsolete, renamed) did not panic")
		}
	}()
	New(Options{}).AddPackage(fmri.MustParse("a@1"), true, true, nil)
}

func TestAddPackageAfterResolve(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "a@1", false, false)
	g.ResolveVersions()
	if _, err := g.AddPackage(fmri.MustParse("a@2"), false, false, nil); !errors.Is(err, ErrResolved) {
		t.Errorf("AddPackage after resolve: err = %v, want ErrResolved", err)
	}
}

func TestAddComponent(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "a@1", false, false)
	mustAdd(t, g, "b@1", false, false)
	sink := problem.NewSink()

	cid, err := g.AddComponent("c1", "components/c1", fmris("a", "b", "ghost"), sink)
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	c := g.Component(cid)
	if len(c.Packages) != 2 {
		t.Errorf("len(Packages) = %d, want 2", len(c.Packages))
	}
	if owner, ok := g.OwnerOf(fmri.MustParse("a@1")); !ok || owner != "c1" {
		t.Errorf("OwnerOf(a) = %q, %v", owner, ok)
	}

	ps := sink.Problems()
	if len(ps) != 1 || ps[0].Kind != problem.UnknownPackageOwned || ps[0].Package != "ghost" || ps[0].Component != "c1" {
		t.Errorf("problems = %+v, want one UnknownPackageOwned(ghost, c1)", ps)
	}

	_, err = g.AddComponent("c1", "components/other", nil, sink)
	var conflict *ConflictError
	if !errors.As(err, &conflict) || !errors.Is(err, ErrDuplicateComponent) {
		t.Fatalf("duplicate AddComponent: err = %v, want *ConflictError", err)
	}
	if conflict.Path != "components/c1" {
		t.Errorf("ConflictError.Path = %q", conflict.Path)
	}
}

func TestMultiOwnershipKeepsFirstOwner(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "shared@1", false, false)
	sink := problem.NewSink()

	if _, err := g.AddComponent("first", "p1", fmris("shared"), sink); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddComponent("second", "p2", fmris("shared"), sink); err != nil {
		t.Fatal(err)
	}

	if owner, _ := g.OwnerOf(fmri.MustParse("shared")); owner != "first" {
		t.Errorf("owner = %q, want first", owner)
	}
	ps := sink.Problems()
	if len(ps) != 1 || ps[0].Kind != problem.MultiOwnership {
		t.Fatalf("problems = %+v, want one MultiOwnership", ps)
	}
	if got := ps[0].Components; len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("Components = %v, want [first second]", got)
	}
}

func TestAddComponentDependencies(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "a@1", false, false)
	mustAdd(t, g, "tool@1", false, false)
	sink := problem.NewSink()
	cid, _ := g.AddComponent("c", "c", fmris("a"), sink)

	if err := g.AddComponentDependencies(cid, depend.Build, fmris("tool@1", "pkg://oi/tool", "missing"), sink); err != nil {
		t.Fatal(err)
	}
	if err := g.AddComponentDependencies(cid, depend.Test, fmris("missing"), sink); err != nil {
		t.Fatal(err)
	}

	c := g.Component(cid)
	if len(c.Deps[depend.Build]) != 2 {
		t.Errorf("build deps = %v, want [tool missing]", c.Deps[depend.Build])
	}
	tool, _ := g.PackageByName("tool")
	if got := tool.ComponentDependents[depend.Build]; len(got) != 1 || got[0] != cid {
		t.Errorf("tool build dependents = %v", got)
	}

	// build and test declarations of the same missing package collapse
	if n := len(problem.Filter(sink.Problems(), problem.DanglingDependency)); n != 1 {
		t.Errorf("dangling problems = %d, want 1", n)
	}

	if err := g.AddComponentDependencies(ComponentID(42), depend.Build, nil, sink); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("unknown component: err = %v", err)
	}
}

func TestAddComponentDependenciesRuntimePanics(t *testing.T) {
	g := New(Options{})
	cid, _ := g.AddComponent("c", "c", nil, nil)
	defer func() {
		if recover() == nil {
			t.Error("runtime class did not panic")
		}
	}()
	g.AddComponentDependencies(cid, depend.Runtime, nil, nil)
}

func TestLookups(t *testing.T) {
	g := New(Options{Concurrent: true})
	mustAdd(t, g, "a@1", false, false)

	if _, err := g.PackageByName("nope"); !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("PackageByName(nope) err = %v", err)
	}
	if _, err := g.ComponentByName("nope"); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("ComponentByName(nope) err = %v", err)
	}
	if p, err := g.PackageByFMRI(fmri.MustParse("pkg://x/a@9")); err != nil || p.Name != "a" {
		t.Errorf("PackageByFMRI = %v, %v", p, err)
	}
	if g.Package(-1) != nil || g.Package(7) != nil {
		t.Error("out of range handles should resolve to nil")
	}
	if g.Component(NoComponent) != nil {
		t.Error("NoComponent should resolve to nil")
	}
}

func TestStats(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "a@1", false, false, depend.Require(fmri.MustParse("b")))
	mustAdd(t, g, "a@2", false, false, depend.Require(fmri.MustParse("b")))
	mustAdd(t, g, "b@1", true, false)
	g.AddComponent("c", "c", fmris("a"), nil)

	s := g.Stats()
	if s.Packages != 2 || s.Components != 1 || s.Versions != 3 {
		t.Errorf("Stats() = %+v", s)
	}
	if s.Obsolete != 1 || s.Ownerless != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}
