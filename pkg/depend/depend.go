// Package depend defines the dependency algebra shared by the graph store,
// the problem taxonomy and the loaders: the six IPS dependency kinds, the
// five usage classes, and the reverse-dependency tags produced when edges
// are inverted.
package depend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
)

// =============================================================================
// Dependency kinds
// =============================================================================

// Kind is the IPS "type=" attribute of a depend action.
type Kind int

const (
	KindRequire Kind = iota
	KindOptional
	KindIncorporate
	KindRequireAny
	KindConditional
	KindGroup
)

var kindNames = [...]string{
	KindRequire:     "require",
	KindOptional:    "optional",
	KindIncorporate: "incorporate",
	KindRequireAny:  "require-any",
	KindConditional: "conditional",
	KindGroup:       "group",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses an IPS dependency type name such as "require-any".
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown dependency type %q", s)
}

// =============================================================================
// Dependency
// =============================================================================

// Dependency is one depend action. Which fields are meaningful depends on
// Kind: RequireAny uses Any, Conditional uses FMRI and Predicate, every
// other kind uses FMRI only.
type Dependency struct {
	Kind      Kind
	FMRI      fmri.FMRI
	Any       []fmri.FMRI
	Predicate fmri.FMRI
}

// Require returns a require dependency on f.
func Require(f fmri.FMRI) Dependency { return Dependency{Kind: KindRequire, FMRI: f} }

// Optional returns an optional dependency on f.
func Optional(f fmri.FMRI) Dependency { return Dependency{Kind: KindOptional, FMRI: f} }

// Incorporate returns an incorporate dependency on f.
func Incorporate(f fmri.FMRI) Dependency { return Dependency{Kind: KindIncorporate, FMRI: f} }

// Group returns a group dependency on f.
func Group(f fmri.FMRI) Dependency { return Dependency{Kind: KindGroup, FMRI: f} }

// RequireAny returns a require-any dependency satisfied by any of fs.
func RequireAny(fs ...fmri.FMRI) Dependency {
	return Dependency{Kind: KindRequireAny, Any: slices.Clone(fs)}
}

// Conditional returns a dependency on f that applies when predicate is installed.
func Conditional(f, predicate fmri.FMRI) Dependency {
	return Dependency{Kind: KindConditional, FMRI: f, Predicate: predicate}
}

// Targets returns every FMRI the dependency points at, predicate included.
func (d Dependency) Targets() []fmri.FMRI {
	switch d.Kind {
	case KindRequireAny:
		return slices.Clone(d.Any)
	case KindConditional:
		return []fmri.FMRI{d.FMRI, d.Predicate}
	default:
		return []fmri.FMRI{d.FMRI}
	}
}

// Normalize strips publisher and version from every FMRI in d.
func (d Dependency) Normalize() Dependency {
	out := Dependency{Kind: d.Kind}
	switch d.Kind {
	case KindRequireAny:
		out.Any = make([]fmri.FMRI, len(d.Any))
		for i, f := range d.Any {
			out.Any[i] = f.Normalize()
		}
	case KindConditional:
		out.FMRI = d.FMRI.Normalize()
		out.Predicate = d.Predicate.Normalize()
	default:
		out.FMRI = d.FMRI.Normalize()
	}
	return out
}

// Key identifies the normalized dependency for deduplication.
func (d Dependency) Key() string {
	return d.Normalize().String()
}

// String renders d in depend-action style, e.g. "require library/zlib".
func (d Dependency) String() string {
	switch d.Kind {
	case KindRequireAny:
		names := make([]string, len(d.Any))
		for i, f := range d.Any {
			names[i] = f.String()
		}
		return d.Kind.String() + " " + strings.Join(names, "|")
	case KindConditional:
		return d.Kind.String() + " " + d.FMRI.String() + " if " + d.Predicate.String()
	default:
		return d.Kind.String() + " " + d.FMRI.String()
	}
}

// =============================================================================
// Usage classes
// =============================================================================

// Class is the context a dependency is needed in. Runtime dependencies
// belong to a package version; the other four belong to the component that
// builds the package and are shared by all of its packages.
type Class int

const (
	Runtime Class = iota
	Build
	Test
	SystemBuild
	SystemTest
)

// ComponentClasses lists the four component-scoped classes in report order.
var ComponentClasses = []Class{Build, Test, SystemBuild, SystemTest}

var classNames = [...]string{
	Runtime:     "runtime",
	Build:       "build",
	Test:        "test",
	SystemBuild: "system-build",
	SystemTest:  "system-test",
}

func (c Class) String() string {
	if int(c) < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classNames[c]
}

// ParseClass parses a class name as printed by [Class.String].
func ParseClass(s string) (Class, error) {
	for c, name := range classNames {
		if name == s {
			return Class(c), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown dependency class %q", s)
}

// IsComponentScoped reports whether c is one of the four component classes.
func (c Class) IsComponentScoped() bool {
	return c >= Build && c <= SystemTest
}

// =============================================================================
// Reverse-dependency tags
// =============================================================================

// RevKind tags one entry of a package's reverse runtime multiset with the
// kind of edge that produced it.
type RevKind int

const (
	RevRequire RevKind = iota
	RevOptional
	RevIncorporate
	RevRequireAny
	RevConditionalFMRI      // the package is the conditional's target
	RevConditionalPredicate // the package is the conditional's predicate
	RevGroup
)

var revKindNames = [...]string{
	RevRequire:              "require",
	RevOptional:             "optional",
	RevIncorporate:          "incorporate",
	RevRequireAny:           "require-any",
	RevConditionalFMRI:      "conditional",
	RevConditionalPredicate: "conditional-predicate",
	RevGroup:                "group",
}

func (k RevKind) String() string {
	if int(k) < 0 || int(k) >= len(revKindNames) {
		return fmt.Sprintf("revkind(%d)", int(k))
	}
	return revKindNames[k]
}

// ParseRevKind parses a name as printed by [RevKind.String].
func ParseRevKind(s string) (RevKind, error) {
	for k, name := range revKindNames {
		if name == s {
			return RevKind(k), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown reverse dependency kind %q", s)
}

// Reverse maps a forward kind to its reverse tag. Conditional maps to
// RevConditionalFMRI; the predicate side is tagged by the distributor.
func (k Kind) Reverse() RevKind {
	switch k {
	case KindOptional:
		return RevOptional
	case KindIncorporate:
		return RevIncorporate
	case KindRequireAny:
		return RevRequireAny
	case KindConditional:
		return RevConditionalFMRI
	case KindGroup:
		return RevGroup
	default:
		return RevRequire
	}
}

// =============================================================================
// Text encoding
// =============================================================================

// MarshalText encodes k by name so reports and snapshots stay readable.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalText encodes c by name.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (c *Class) UnmarshalText(b []byte) error {
	v, err := ParseClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalText encodes k by name.
func (k RevKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (k *RevKind) UnmarshalText(b []byte) error {
	v, err := ParseRevKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
