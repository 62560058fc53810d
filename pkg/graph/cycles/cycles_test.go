package cycles

import (
	"testing"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

type fixture struct {
	t *testing.T
	g *graph.Graph
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, g: graph.New(graph.Options{})}
}

func (f *fixture) pkg(id string, deps ...depend.Dependency) {
	f.t.Helper()
	if _, err := f.g.AddPackage(fmri.MustParse(id), false, false, deps); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) comp(name string, owned ...string) graph.ComponentID {
	f.t.Helper()
	ids := make([]fmri.FMRI, len(owned))
	for i, o := range owned {
		ids[i] = fmri.MustParse(o)
	}
	cid, err := f.g.AddComponent(name, "components/"+name, ids, nil)
	if err != nil {
		f.t.Fatal(err)
	}
	return cid
}

func (f *fixture) deps(cid graph.ComponentID, class depend.Class, names ...string) {
	f.t.Helper()
	ids := make([]fmri.FMRI, len(names))
	for i, n := range names {
		ids[i] = fmri.MustParse(n)
	}
	if err := f.g.AddComponentDependencies(cid, class, ids, nil); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) detect(edges EdgeSet) []Cycle {
	f.g.ResolveVersions()
	if err := f.g.DistributeReverse(nil); err != nil {
		f.t.Fatal(err)
	}
	return Detect(f.g, edges)
}

func req(name string) depend.Dependency { return depend.Require(fmri.MustParse(name)) }

func TestPureRuntimeCycleFiltered(t *testing.T) {
	f := newFixture(t)
	f.pkg("p1@1", req("p3"))
	f.pkg("p3@1", req("p1"))
	f.comp("c", "p1", "p3")

	if got := f.detect(AllEdges); len(got) != 0 {
		t.Errorf("Detect() = %v, want no cycles", got)
	}
}

func TestPureRuntimeAcrossComponentsFiltered(t *testing.T) {
	f := newFixture(t)
	f.pkg("p1@1", req("p2"))
	f.pkg("p2@1", req("p1"))
	f.comp("c1", "p1")
	f.comp("c2", "p2")

	if got := f.detect(AllEdges); len(got) != 0 {
		t.Errorf("Detect() = %v, want no cycles", got)
	}
}

func TestIntraComponentBuildCycleFiltered(t *testing.T) {
	f := newFixture(t)
	f.pkg("p1@1")
	f.pkg("p2@1")
	c := f.comp("c", "p1", "p2")
	f.deps(c, depend.Build, "p1", "p2")

	if got := f.detect(AllEdges); len(got) != 0 {
		t.Errorf("Detect() = %v, want no cycles", got)
	}
}

func TestCrossComponentBuildCycle(t *testing.T) {
	f := newFixture(t)
	f.pkg("p1@1")
	f.pkg("p2@1")
	c1 := f.comp("c1", "p1")
	c2 := f.comp("c2", "p2")
	f.deps(c1, depend.Build, "p2")
	f.deps(c2, depend.Build, "p1")

	got := f.detect(AllEdges)
	if len(got) != 1 {
		t.Fatalf("Detect() = %v, want exactly one cycle", got)
	}
	if s := got[0].String(); s != "c1 --build--> c2 --build--> c1" {
		t.Errorf("cycle = %q", s)
	}
	if nodes := got[0].Nodes(); len(nodes) != 2 {
		t.Errorf("Nodes() = %v", nodes)
	}
}

func TestVisitedSetIsGlobal(t *testing.T) {
	f := newFixture(t)
	for _, n := range []string{"a@1", "b@1", "c@1", "d@1"} {
		f.pkg(n)
	}
	ca := f.comp("ca", "a")
	cb := f.comp("cb", "b")
	cc := f.comp("cc", "c")
	cd := f.comp("cd", "d")
	f.deps(ca, depend.Build, "b", "c")
	f.deps(cb, depend.Build, "d")
	f.deps(cc, depend.Build, "d")
	f.deps(cd, depend.Build, "a")

	// ca -> cc -> cd -> ca is a cycle too, but d is already explored when
	// the walk reaches it from c.
	got := f.detect(AllEdges)
	if len(got) != 1 {
		t.Fatalf("Detect() = %v, want exactly one cycle", got)
	}
	if s := got[0].String(); s != "ca --build--> cb --build--> cd --build--> ca" {
		t.Errorf("cycle = %q", s)
	}
}

func TestEdgeSelection(t *testing.T) {
	f := newFixture(t)
	f.pkg("p1@1")
	f.pkg("p2@1")
	c1 := f.comp("c1", "p1")
	c2 := f.comp("c2", "p2")
	f.deps(c1, depend.Test, "p2")
	f.deps(c2, depend.Test, "p1")

	if got := f.detect(BuildEdges); len(got) != 0 {
		t.Errorf("Detect(build) = %v, want none", got)
	}
	if got := Detect(f.g, Edges(Test)); len(got) != 1 {
		t.Errorf("Detect(test) = %v, want one", got)
	}
}

func TestMixedCycleCollapsesRuntimeHops(t *testing.T) {
	f := newFixture(t)
	// c1 owns a and b; a requires b at runtime, c1 build-depends on x (c2),
	// and c2 build-depends on a.
	f.pkg("a@1", req("b"))
	f.pkg("b@1")
	f.pkg("x@1")
	c1 := f.comp("c1", "a", "b")
	c2 := f.comp("c2", "x")
	f.deps(c1, depend.Build, "x")
	f.deps(c2, depend.Build, "a")

	got := f.detect(AllEdges)
	if len(got) != 1 {
		t.Fatalf("Detect() = %v, want one cycle", got)
	}
	if s := got[0].String(); s != "c1 --build--> c2 --build--> c1" {
		t.Errorf("cycle = %q", s)
	}
}

func TestOwnerlessPackagesKeepNames(t *testing.T) {
	f := newFixture(t)
	f.pkg("lib@1", req("tool"))
	f.pkg("tool@1")
	c := f.comp("tools", "tool")
	f.deps(c, depend.Build, "lib")

	got := f.detect(AllEdges)
	if len(got) != 1 {
		t.Fatalf("Detect() = %v, want one cycle", got)
	}
	if s := got[0].String(); s != "lib --require--> tools --build--> lib" {
		t.Errorf("cycle = %q", s)
	}
}

func TestReport(t *testing.T) {
	sink := problem.NewSink()
	c := Cycle{Route: []Hop{{"c1", Build}, {"c2", Build}}}
	Report([]Cycle{c, c}, sink)

	ps := sink.Problems()
	if len(ps) != 1 || ps[0].Kind != problem.DependencyCycle {
		t.Fatalf("problems = %+v", ps)
	}
	if ps[0].Message() != "dependency cycle: c1 --build--> c2 --build--> c1" {
		t.Errorf("Message() = %q", ps[0].Message())
	}
}

func TestRotate(t *testing.T) {
	got := rotate([]Hop{{"c", Build}, {"a", Test}, {"b", Build}})
	if got[0].Node != "a" || got[1].Node != "b" || got[2].Node != "c" {
		t.Errorf("rotate() = %v", got)
	}
}

func TestParseEdges(t *testing.T) {
	tests := []struct {
		in   string
		want EdgeSet
		err  bool
	}{
		{"build,test", Edges(Build, Test), false},
		{"runtime", RuntimeEdges, false},
		{"all", AllEdges, false},
		{"build-only, require", BuildEdges | Edges(RuntimeRequire), false},
		{"new", 0, true},
		{"", 0, true},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseEdges(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseEdges(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEdges(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if AllEdges.Has(New) {
		t.Error("New must never be in a set")
	}
	if s := Edges(Build, Test).String(); s != "build,test" {
		t.Errorf("String() = %q", s)
	}
}
