package depend

import (
	"testing"

	"github.com/matzehuels/pkgcheck/pkg/fmri"
)

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindRequire, KindOptional, KindIncorporate, KindRequireAny, KindConditional, KindGroup} {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if _, err := ParseKind("exclude"); err == nil {
		t.Error("ParseKind(\"exclude\") should fail")
	}
}

func TestParseClass(t *testing.T) {
	tests := map[string]Class{
		"runtime":      Runtime,
		"build":        Build,
		"test":         Test,
		"system-build": SystemBuild,
		"system-test":  SystemTest,
	}
	for s, want := range tests {
		got, err := ParseClass(s)
		if err != nil || got != want {
			t.Errorf("ParseClass(%q) = %v, %v; want %v", s, got, err, want)
		}
	}
	if _, err := ParseClass("install"); err == nil {
		t.Error("ParseClass(\"install\") should fail")
	}
	if Runtime.IsComponentScoped() {
		t.Error("Runtime should not be component scoped")
	}
	for _, c := range ComponentClasses {
		if !c.IsComponentScoped() {
			t.Errorf("%v should be component scoped", c)
		}
	}
}

func TestTargets(t *testing.T) {
	a, b := fmri.MustParse("library/a"), fmri.MustParse("library/b")

	tests := []struct {
		name string
		dep  Dependency
		want int
	}{
		{"require", Require(a), 1},
		{"require-any", RequireAny(a, b), 2},
		{"conditional", Conditional(a, b), 2},
		{"group", Group(b), 1},
	}
	for _, tt := range tests {
		if got := len(tt.dep.Targets()); got != tt.want {
			t.Errorf("%s: len(Targets()) = %d, want %d", tt.name, got, tt.want)
		}
	}

	c := Conditional(a, b).Targets()
	if c[0] != a || c[1] != b {
		t.Errorf("Conditional targets = %v, want [fmri predicate]", c)
	}
}

func TestNormalizeAndKey(t *testing.T) {
	d1 := Require(fmri.MustParse("pkg://openindiana.org/library/zlib@1.3"))
	d2 := Require(fmri.MustParse("library/zlib@1.2"))
	if d1.Key() != d2.Key() {
		t.Errorf("Key() differs for publisher/version variants: %q vs %q", d1.Key(), d2.Key())
	}
	if d1.Key() != "require library/zlib" {
		t.Errorf("Key() = %q", d1.Key())
	}

	any1 := RequireAny(fmri.MustParse("pkg://p/a@1"), fmri.MustParse("b@2"))
	if got := any1.Normalize().String(); got != "require-any a|b" {
		t.Errorf("Normalize().String() = %q", got)
	}

	cond := Conditional(fmri.MustParse("x@1"), fmri.MustParse("pkg://p/y@2"))
	if got := cond.Key(); got != "conditional x if y" {
		t.Errorf("conditional Key() = %q", got)
	}

	if Require(fmri.MustParse("a")).Key() == Optional(fmri.MustParse("a")).Key() {
		t.Error("different kinds must not share a key")
	}
}

func TestReverse(t *testing.T) {
	tests := map[Kind]RevKind{
		KindRequire:     RevRequire,
		KindOptional:    RevOptional,
		KindIncorporate: RevIncorporate,
		KindRequireAny:  RevRequireAny,
		KindConditional: RevConditionalFMRI,
		KindGroup:       RevGroup,
	}
	for k, want := range tests {
		if got := k.Reverse(); got != want {
			t.Errorf("%v.Reverse() = %v, want %v", k, got, want)
		}
	}
	for _, k := range []RevKind{RevRequire, RevConditionalPredicate, RevGroup} {
		got, err := ParseRevKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseRevKind(%q) = %v, %v", k.String(), got, err)
		}
	}
}
