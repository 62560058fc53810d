package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrPackageNotFound is returned by lookups and lifecycle operations when
	// no package with the requested name exists in the graph.
	ErrPackageNotFound = errors.New("package not found")

	// ErrComponentNotFound is returned by lookups when no component with the
	// requested name or handle exists in the graph.
	ErrComponentNotFound = errors.New("component not found")

	// ErrVersionNotFound is returned by [Graph.MarkObsolete] and
	// [Graph.MarkRenamed] when the identifier names a version the package
	// does not have.
	ErrVersionNotFound = errors.New("version not found")

	// ErrDuplicateComponent is wrapped by [ConflictError].
	ErrDuplicateComponent = errors.New("duplicate component")

	// ErrNotResolved is returned by [Graph.DistributeReverse] when
	// [Graph.ResolveVersions] has not run yet.
	ErrNotResolved = errors.New("versions not resolved")

	// ErrResolved is returned by [Graph.AddPackage] once versions have been
	// resolved. Adding versions afterwards would break the one-version rule.
	ErrResolved = errors.New("graph already resolved")

	// ErrFlagConflict is returned by [Graph.AddPackage] when merging a
	// version would leave it both obsolete and renamed. The version is left
	// as it was.
	ErrFlagConflict = errors.New("conflicting lifecycle flags")

	// ErrInvalidPackage is returned by [Graph.AddPackage] for an identifier
	// without a name.
	ErrInvalidPackage = errors.New("invalid package identifier")
)

// ConflictError reports a component name that is already taken.
type ConflictError struct {
	Name string
	Path string // path of the component already registered under Name
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("component %q already registered from %s", e.Name, e.Path)
}

func (e *ConflictError) Unwrap() error { return ErrDuplicateComponent }
