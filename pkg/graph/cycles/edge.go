package cycles

import (
	"fmt"
	"strings"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/errors"
)

// Edge is the type of a step in a dependency route.
type Edge uint8

const (
	// New marks the start of a walk. It is never followed.
	New Edge = iota
	RuntimeRequire
	RuntimeRequireAny
	RuntimeConditional
	Build
	Test
	SystemBuild
	SystemTest

	numEdges
)

var edgeNames = [...]string{
	New:                "new",
	RuntimeRequire:     "require",
	RuntimeRequireAny:  "require-any",
	RuntimeConditional: "conditional",
	Build:              "build",
	Test:               "test",
	SystemBuild:        "system-build",
	SystemTest:         "system-test",
}

func (e Edge) String() string {
	if e >= numEdges {
		return fmt.Sprintf("edge(%d)", int(e))
	}
	return edgeNames[e]
}

// IsRuntime reports whether e follows a package's runtime dependencies.
func (e Edge) IsRuntime() bool {
	return e >= RuntimeRequire && e <= RuntimeConditional
}

// MarshalText encodes e by name.
func (e Edge) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (e *Edge) UnmarshalText(b []byte) error {
	for i, name := range edgeNames {
		if name == string(b) {
			*e = Edge(i)
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown edge type %q", string(b))
}

func classEdge(c depend.Class) Edge {
	switch c {
	case depend.Build:
		return Build
	case depend.Test:
		return Test
	case depend.SystemBuild:
		return SystemBuild
	case depend.SystemTest:
		return SystemTest
	default:
		return New
	}
}

// EdgeSet is a set of edge types to follow.
type EdgeSet uint16

// Predefined edge sets.
const (
	RuntimeEdges   = EdgeSet(1<<RuntimeRequire | 1<<RuntimeRequireAny | 1<<RuntimeConditional)
	ComponentEdges = EdgeSet(1<<Build | 1<<Test | 1<<SystemBuild | 1<<SystemTest)
	BuildEdges     = EdgeSet(1<<Build | 1<<SystemBuild)
	AllEdges       = RuntimeEdges | ComponentEdges
)

// Edges builds a set from individual edge types.
func Edges(es ...Edge) EdgeSet {
	var s EdgeSet
	for _, e := range es {
		if e != New {
			s |= 1 << e
		}
	}
	return s
}

// Has reports whether e is in s.
func (s EdgeSet) Has(e Edge) bool { return e != New && s&(1<<e) != 0 }

func (s EdgeSet) String() string {
	var names []string
	for e := RuntimeRequire; e < numEdges; e++ {
		if s.Has(e) {
			names = append(names, e.String())
		}
	}
	return strings.Join(names, ",")
}

// ParseEdges parses a comma-separated list of edge names. The group names
// "runtime", "component", "build-only" and "all" are accepted as well.
func ParseEdges(s string) (EdgeSet, error) {
	var set EdgeSet
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		switch f {
		case "":
			continue
		case "all":
			set |= AllEdges
		case "runtime":
			set |= RuntimeEdges
		case "component":
			set |= ComponentEdges
		case "build-only":
			set |= BuildEdges
		default:
			var e Edge
			if err := e.UnmarshalText([]byte(f)); err != nil || e == New {
				return 0, errors.New(errors.ErrCodeInvalidInput, "unknown edge type %q", f)
			}
			set |= Edges(e)
		}
	}
	if set == 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "no edge types in %q", s)
	}
	return set, nil
}
