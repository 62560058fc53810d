// Package problem defines the typed, deduplicated and priority-ordered
// problem taxonomy that the graph store, the consistency checker and the
// cycle detector report into.
//
// Problems are collected by a [Sink] that is passed explicitly through every
// pass. The sink keeps a seen-set keyed by [Problem.Key], so the same
// finding reported by two passes (or twice by one pass) appears once.
// [Sink.Problems] returns the findings ordered by [Kind], which is declared
// in priority order: ownership problems first, then dangling and stale
// references, then rename chains and cycles, then tooling failures.
package problem

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/errors"
)

// Kind identifies a problem type. Declaration order is report priority.
type Kind int

const (
	// MultiOwnership: a package is listed by more than one component.
	MultiOwnership Kind = iota
	// UnknownPackageOwned: a component lists a package no catalog publishes.
	UnknownPackageOwned
	// MissingOwner: a live package is not built by any component.
	MissingOwner
	// StaleOwnership: an obsolete or renamed package is still owned by a component.
	StaleOwnership
	// UselessComponent: nothing needs any package the component builds.
	UselessComponent
	// DanglingDependency: a dependency targets a package that does not exist.
	DanglingDependency
	// StaleDependencyObsolete: a dependency targets a fully obsoleted package.
	StaleDependencyObsolete
	// StaleDependencyPartlyObsolete: the target is flagged obsolete but an
	// older, still-valid release exists.
	StaleDependencyPartlyObsolete
	// StaleDependencyRenamed: a component dependency targets a renamed package.
	StaleDependencyRenamed
	// RenameNeedsRename: a renamed package depends on another renamed package.
	RenameNeedsRename
	// DependencyCycle: components depend on each other across a build edge.
	DependencyCycle
	// UnrunnableBuildQuery: the build tool could not report a component's
	// dependencies.
	UnrunnableBuildQuery

	numKinds
)

var kindNames = [...]string{
	MultiOwnership:                "multi-ownership",
	UnknownPackageOwned:           "unknown-package-owned",
	MissingOwner:                  "missing-owner",
	StaleOwnership:                "stale-ownership",
	UselessComponent:              "useless-component",
	DanglingDependency:            "dangling-dependency",
	StaleDependencyObsolete:       "obsolete-required",
	StaleDependencyPartlyObsolete: "partly-obsolete-required",
	StaleDependencyRenamed:        "renamed-required",
	RenameNeedsRename:             "rename-needs-rename",
	DependencyCycle:               "dependency-cycle",
	UnrunnableBuildQuery:          "unrunnable-build-query",
}

// Kinds lists every kind in priority order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses a name as printed by [Kind.String].
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown problem kind %q", s)
}

// MarshalText encodes k by name.
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

// Level is the log level a problem of this kind is reported at.
func (k Kind) Level() log.Level {
	switch k {
	case UselessComponent:
		return log.InfoLevel
	case MissingOwner, DanglingDependency, UnknownPackageOwned:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

// Stale reasons used by StaleOwnership.
const (
	ReasonObsolete = "obsolete"
	ReasonRenamed  = "renamed"
)

// Hop is one step of a dependency cycle: a node (component name, or package
// name for ownerless packages) and the edge type leaving it.
type Hop struct {
	Node string `json:"node" yaml:"node"`
	Edge string `json:"edge" yaml:"edge"`
}

// Problem is one finding. Identifiers are stored normalized (no publisher,
// no version) so that versions of the same package collapse.
//
// Which fields are set depends on Kind:
//
//	MultiOwnership               Package, Components
//	UnknownPackageOwned          Package, Component
//	MissingOwner                 Package
//	StaleOwnership               Package, Component, Reason
//	UselessComponent             Component
//	DanglingDependency           Package (target), Class, DependKind, and
//	                             Requester (runtime) or Component (others)
//	StaleDependency*             Package (target), Class, DependKind, and
//	                             Requester (runtime) or Component (others)
//	RenameNeedsRename            Requester (renamed package), Package (renamed target)
//	DependencyCycle              Route
//	UnrunnableBuildQuery         Command, Path, Component
type Problem struct {
	Kind       Kind         `json:"kind" yaml:"kind"`
	Package    string       `json:"package,omitempty" yaml:"package,omitempty"`
	Requester  string       `json:"requester,omitempty" yaml:"requester,omitempty"`
	Component  string       `json:"component,omitempty" yaml:"component,omitempty"`
	Components []string     `json:"components,omitempty" yaml:"components,omitempty"`
	Class      depend.Class `json:"class" yaml:"class"`
	DependKind depend.Kind  `json:"depend_kind" yaml:"depend_kind"`
	ByRenamed  bool         `json:"by_renamed,omitempty" yaml:"by_renamed,omitempty"`
	Reason     string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Command    string       `json:"command,omitempty" yaml:"command,omitempty"`
	Path       string       `json:"path,omitempty" yaml:"path,omitempty"`
	Route      []Hop        `json:"route,omitempty" yaml:"route,omitempty"`
}

// Key is the deduplication identity of p.
//
// Dangling references declared by a component are identified by target and
// component only: a component listing the same missing package as a build
// and as a test dependency has one problem, not two.
func (p Problem) Key() string {
	if p.Kind == DanglingDependency && p.Requester == "" && p.Component != "" {
		return strings.Join([]string{p.Kind.String(), p.Package, p.Component}, "\x1f")
	}

	route := make([]string, len(p.Route))
	for i, h := range p.Route {
		route[i] = h.Node + ">" + h.Edge
	}
	return strings.Join([]string{
		p.Kind.String(),
		p.Package,
		p.Requester,
		p.Component,
		strings.Join(p.Components, ","),
		p.Class.String(),
		p.DependKind.String(),
		fmt.Sprint(p.ByRenamed),
		p.Reason,
		p.Command,
		p.Path,
		strings.Join(route, ","),
	}, "\x1f")
}

// Message renders p as a single human-readable line.
func (p Problem) Message() string {
	switch p.Kind {
	case MultiOwnership:
		return fmt.Sprintf("package %s is owned by more than one component: %s", p.Package, strings.Join(p.Components, ", "))
	case UnknownPackageOwned:
		return fmt.Sprintf("component %s lists package %s, which doesn't exist", p.Component, p.Package)
	case MissingOwner:
		return fmt.Sprintf("missing component for %s", p.Package)
	case StaleOwnership:
		return fmt.Sprintf("%s package %s is still in component %s", p.Reason, p.Package, p.Component)
	case UselessComponent:
		return fmt.Sprintf("component %s is not needed by any package", p.Component)
	case DanglingDependency:
		return fmt.Sprintf("package %s doesn't exist, but is required by %s", p.Package, p.requiredBy())
	case StaleDependencyObsolete:
		return fmt.Sprintf("obsoleted package %s is required by %s", p.Package, p.requiredBy())
	case StaleDependencyPartlyObsolete:
		return fmt.Sprintf("partly obsoleted package %s is required by %s", p.Package, p.requiredBy())
	case StaleDependencyRenamed:
		return fmt.Sprintf("renamed package %s is required by %s", p.Package, p.requiredBy())
	case RenameNeedsRename:
		return fmt.Sprintf("renamed package %s needs renamed package %s", p.Requester, p.Package)
	case DependencyCycle:
		return "dependency cycle: " + FormatRoute(p.Route)
	case UnrunnableBuildQuery:
		return fmt.Sprintf("can't run %s in %s", p.Command, p.Path)
	default:
		return p.Kind.String()
	}
}

func (p Problem) requiredBy() string {
	var who string
	switch {
	case p.Requester != "" && p.ByRenamed:
		who = "renamed package " + p.Requester
	case p.Requester != "":
		who = "package " + p.Requester
	default:
		who = "component " + p.Component
	}
	return fmt.Sprintf("%s (%s %s)", who, p.Class, p.DependKind)
}

// FormatRoute renders a cycle as "a --build--> b --test--> a".
func FormatRoute(route []Hop) string {
	if len(route) == 0 {
		return ""
	}
	var b strings.Builder
	for _, h := range route {
		b.WriteString(h.Node)
		b.WriteString(" --")
		b.WriteString(h.Edge)
		b.WriteString("--> ")
	}
	b.WriteString(route[0].Node)
	return b.String()
}
