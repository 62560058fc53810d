package graph

import (
	"errors"
	"testing"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

type release struct {
	v        string
	obsolete bool
	renamed  bool
}

func TestSelectActiveVersion(t *testing.T) {
	tests := []struct {
		name     string
		versions []release
		want     string
	}{
		{
			name:     "newest valid",
			versions: []release{{"1.0", false, false}, {"3.0", false, false}, {"2.0", false, false}},
			want:     "3.0",
		},
		{
			name:     "skips stale newer",
			versions: []release{{"1.0", false, false}, {"3.0", true, false}, {"2.0", false, false}, {"4.0", false, true}},
			want:     "2.0",
		},
		{
			name:     "all stale picks newest",
			versions: []release{{"1.0", true, false}, {"1.10", true, false}, {"1.9", false, true}},
			want:     "1.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Options{})
			for _, v := range tt.versions {
				mustAdd(t, g, "p@"+v.v, v.obsolete, v.renamed)
			}
			p, _ := g.PackageByName("p")

			got := g.SelectActiveVersion(p)
			if got.Version.String() != tt.want {
				t.Errorf("SelectActiveVersion() = %s, want %s", got.Version, tt.want)
			}
			if len(p.Versions) != 1 {
				t.Errorf("len(Versions) = %d after selection, want 1", len(p.Versions))
			}
			if again := g.SelectActiveVersion(p); again != got {
				t.Errorf("second SelectActiveVersion() = %s, want %s", again.Version, got.Version)
			}
		})
	}
}

func TestMarkObsoleteVersioned(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "p@1.0", false, false)
	mustAdd(t, g, "p@2.0", false, false)

	if err := g.MarkObsolete(fmri.MustParse("p@2.0")); err != nil {
		t.Fatal(err)
	}
	if err := g.MarkObsolete(fmri.MustParse("p@3.0")); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("MarkObsolete(p@3.0) err = %v, want ErrVersionNotFound", err)
	}
	if err := g.MarkRenamed(fmri.MustParse("ghost")); !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("MarkRenamed(ghost) err = %v, want ErrPackageNotFound", err)
	}

	g.ResolveVersions()
	p, _ := g.PackageByName("p")
	if p.Active().Version.String() != "1.0" {
		t.Errorf("active = %s, want 1.0", p.Active().Version)
	}
	if p.IsObsolete() {
		t.Error("package should not be obsolete when an older release is valid")
	}
}

func TestMarkPackageWide(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "p@1.0", false, false)
	if err := g.MarkObsolete(fmri.MustParse("p")); err != nil {
		t.Fatal(err)
	}
	obs, ren, err := g.Flags(fmri.MustParse("p"))
	if err != nil || !obs || ren {
		t.Errorf("Flags(p) = %v, %v, %v", obs, ren, err)
	}

	g.ResolveVersions()
	p, _ := g.PackageByName("p")
	if !p.IsObsolete() {
		t.Error("IsObsolete() = false after package-wide mark")
	}
	if p.FullyObsolete() {
		t.Error("FullyObsolete() = true, but the active version is valid")
	}
}

func TestMarkConflictingPanics(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "p@1.0", false, true)
	defer func() {
		if recover() == nil {
			t.Error("marking a renamed version obsolete did not panic")
		}
	}()
	g.MarkObsolete(fmri.MustParse("p@1.0"))
}

func TestFlagsPartialVersion(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "p@1.0,5.11-2024.0.1:20240101T000000Z", false, true)

	_, ren, err := g.Flags(fmri.MustParse("p@1.0,5.11"))
	if err != nil || !ren {
		t.Errorf("Flags(p@1.0,5.11) = renamed %v, %v", ren, err)
	}
	if _, _, err := g.Flags(fmri.MustParse("p@1.0-2023")); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("branch mismatch err = %v", err)
	}
}

func TestResolveVersionsAutoNames(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "library/solo@1", false, false)
	mustAdd(t, g, "x@1", false, false)
	mustAdd(t, g, "y@1", false, false)
	solo, _ := g.AddComponent("", "components/solo", fmris("library/solo"), nil)
	multi, _ := g.AddComponent("", "components/multi", fmris("x", "y"), nil)

	g.ResolveVersions()

	if got := g.Component(solo).Name; got != "/library/solo" {
		t.Errorf("auto name = %q, want /library/solo", got)
	}
	if c, err := g.ComponentByName("/library/solo"); err != nil || c.ID != solo {
		t.Errorf("ComponentByName(/library/solo) = %v, %v", c, err)
	}
	if got := g.Component(multi).Name; got != "" {
		t.Errorf("multi-package component named %q, want unnamed", got)
	}
}

func TestDistributeReverseRequiresResolve(t *testing.T) {
	g := New(Options{})
	if err := g.DistributeReverse(nil); !errors.Is(err, ErrNotResolved) {
		t.Errorf("DistributeReverse() err = %v, want ErrNotResolved", err)
	}
}

func TestDistributeReverseCompleteness(t *testing.T) {
	g := New(Options{})
	a, b, c, d := fmri.MustParse("a"), fmri.MustParse("b"), fmri.MustParse("c"), fmri.MustParse("d")

	mustAdd(t, g, "a@1", false, false,
		depend.Require(b),
		depend.RequireAny(c, d),
		depend.Conditional(b, c),
		depend.Incorporate(fmri.MustParse("d@1")),
	)
	mustAdd(t, g, "b@1", false, false, depend.Optional(a), depend.Group(d))
	mustAdd(t, g, "c@1", false, false)
	mustAdd(t, g, "d@1", false, false)
	g.ResolveVersions()

	sink := problem.NewSink()
	if err := g.DistributeReverse(sink); err != nil {
		t.Fatal(err)
	}
	// twice: the index is rebuilt, not appended to
	if err := g.DistributeReverse(sink); err != nil {
		t.Fatal(err)
	}

	wantEdges := 0
	for _, p := range g.Packages() {
		for _, dep := range p.Runtime() {
			wantEdges += len(dep.Targets())
		}
	}
	got := 0
	for _, p := range g.Packages() {
		got += len(p.RuntimeDependents)
	}
	if got != wantEdges {
		t.Errorf("reverse entries = %d, want %d", got, wantEdges)
	}

	contains := func(pkg string, want RuntimeDependent) bool {
		p, _ := g.PackageByName(pkg)
		n := 0
		for _, r := range p.RuntimeDependents {
			if r == want {
				n++
			}
		}
		return n == 1
	}
	checks := []struct {
		pkg  string
		want RuntimeDependent
	}{
		{"b", RuntimeDependent{"a", depend.RevRequire}},
		{"b", RuntimeDependent{"a", depend.RevConditionalFMRI}},
		{"c", RuntimeDependent{"a", depend.RevConditionalPredicate}},
		{"c", RuntimeDependent{"a", depend.RevRequireAny}},
		{"d", RuntimeDependent{"a", depend.RevRequireAny}},
		{"d", RuntimeDependent{"a", depend.RevIncorporate}},
		{"a", RuntimeDependent{"b", depend.RevOptional}},
		{"d", RuntimeDependent{"b", depend.RevGroup}},
	}
	for _, c := range checks {
		if !contains(c.pkg, c.want) {
			t.Errorf("%s reverse set missing exactly one %+v", c.pkg, c.want)
		}
	}
	if sink.Len() != 0 {
		t.Errorf("unexpected problems: %+v", sink.Problems())
	}
}

func TestDistributeReverseDangling(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "old@1", false, true, depend.Require(fmri.MustParse("gone")))
	mustAdd(t, g, "new@1", false, false, depend.Require(fmri.MustParse("gone")), depend.Require(fmri.MustParse("gone@2")))
	g.ResolveVersions()

	sink := problem.NewSink()
	g.DistributeReverse(sink)

	ps := sink.Problems()
	if len(ps) != 2 {
		t.Fatalf("problems = %+v, want 2", ps)
	}
	for _, p := range ps {
		if p.Kind != problem.DanglingDependency || p.Package != "gone" || p.Class != depend.Runtime {
			t.Errorf("unexpected problem %+v", p)
		}
		if p.ByRenamed != (p.Requester == "old") {
			t.Errorf("ByRenamed = %v for requester %s", p.ByRenamed, p.Requester)
		}
	}
}

func TestDependentsOf(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, "lib@1", false, false)
	mustAdd(t, g, "app@1", false, false, depend.Require(fmri.MustParse("lib")))
	cid, _ := g.AddComponent("tools", "tools", fmris("app"), nil)
	g.AddComponentDependencies(cid, depend.Test, fmris("lib"), nil)
	g.AddComponentDependencies(cid, depend.Build, fmris("lib"), nil)
	g.ResolveVersions()
	g.DistributeReverse(nil)

	refs, err := g.DependentsOf(fmri.MustParse("lib@1"))
	if err != nil {
		t.Fatal(err)
	}
	want := []DependentRef{
		{"app", depend.Runtime, depend.RevRequire},
		{"tools", depend.Build, depend.RevRequire},
		{"tools", depend.Test, depend.RevRequire},
	}
	if len(refs) != len(want) {
		t.Fatalf("DependentsOf() = %+v, want %+v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("DependentsOf()[%d] = %+v, want %+v", i, refs[i], want[i])
		}
	}

	if _, err := g.DependentsOf(fmri.MustParse("nope")); !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("DependentsOf(nope) err = %v", err)
	}
	if !g.IsKnownPackage(fmri.MustParse("lib")) || g.IsKnownPackage(fmri.MustParse("nope")) {
		t.Error("IsKnownPackage mismatch")
	}
	if g.IsObsoleted(fmri.MustParse("lib")) || g.IsObsoleted(fmri.MustParse("nope")) {
		t.Error("IsObsoleted mismatch")
	}
	if _, ok := g.OwnerOf(fmri.MustParse("lib")); ok {
		t.Error("lib should be ownerless")
	}
}
