// Package snapshot persists audit results.
//
// A [Snapshot] is a self-contained, serializable copy of a finished audit:
// the resolved packages with their active versions, the components with
// their declared dependencies, and the problems and cycles that were found.
// [Snapshot.Graph] rebuilds a queryable graph from it, so the query server
// can answer dependents/known/obsoleted/owner questions without rerunning
// the audit.
//
// Snapshots are kept in a [Store]: a directory of JSON files, Redis or
// MongoDB. Every store can return the latest snapshot.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/pkgcheck/pkg/audit"
	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/graph/cycles"
	"github.com/matzehuels/pkgcheck/pkg/problem"
)

// Snapshot is the persisted form of an audit.
type Snapshot struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	Packages   []Package         `json:"packages"`
	Components []Component       `json:"components"`
	Problems   []problem.Problem `json:"problems"`
	Counts     problem.Counts    `json:"counts"`
	Cycles     []cycles.Cycle    `json:"cycles,omitempty"`
	Stats      graph.Stats       `json:"stats"`
}

// Package is a resolved package with its active version.
type Package struct {
	Name      string `json:"name"`
	Publisher string `json:"publisher,omitempty"`
	Version   string `json:"version,omitempty"`

	// Obsolete and Renamed are the package-wide flags.
	Obsolete bool `json:"obsolete,omitempty"`
	Renamed  bool `json:"renamed,omitempty"`

	// VersionObsolete and VersionRenamed are the flags of the active version.
	VersionObsolete bool `json:"version_obsolete,omitempty"`
	VersionRenamed  bool `json:"version_renamed,omitempty"`

	RenamedTo string       `json:"renamed_to,omitempty"`
	Runtime   []Dependency `json:"runtime,omitempty"`
}

// Dependency is a runtime dependency in text form.
type Dependency struct {
	Kind      depend.Kind `json:"kind"`
	FMRI      string      `json:"fmri,omitempty"`
	Any       []string    `json:"any,omitempty"`
	Predicate string      `json:"predicate,omitempty"`
}

// Component is a component with the packages it builds and its declared
// dependencies. Components are stored in registration order, which decides
// ownership on rebuild.
type Component struct {
	Name     string                    `json:"name,omitempty"`
	Path     string                    `json:"path"`
	Packages []string                  `json:"packages,omitempty"`
	Deps     map[depend.Class][]string `json:"deps,omitempty"`
}

// Summary is the headline of a snapshot.
type Summary struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Stats     graph.Stats    `json:"stats"`
	Counts    problem.Counts `json:"counts"`
	Problems  int            `json:"problems"`
	Cycles    int            `json:"cycles"`
}

// Summary returns the headline numbers of s.
func (s *Snapshot) Summary() Summary {
	return Summary{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Stats:     s.Stats,
		Counts:    s.Counts,
		Problems:  len(s.Problems),
		Cycles:    len(s.Cycles),
	}
}

// =============================================================================
// Capture
// =============================================================================

// FromResult captures a finished audit under a fresh identifier.
func FromResult(res *audit.Result) *Snapshot {
	s := FromGraph(res.Graph)
	s.Problems = res.Problems
	s.Counts = res.Counts
	s.Cycles = res.Cycles
	return s
}

// FromGraph captures the packages and components of a resolved graph.
func FromGraph(g *graph.Graph) *Snapshot {
	s := &Snapshot{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Counts:    make(problem.Counts),
		Stats:     g.Stats(),
	}

	for _, p := range g.Packages() {
		sp := Package{
			Name:      p.Name,
			Publisher: p.Publisher,
			Obsolete:  p.Obsolete,
			Renamed:   p.Renamed,
			RenamedTo: p.RenamedTo,
		}
		if v := p.Active(); v != nil {
			sp.Version = v.Version.String()
			sp.VersionObsolete = v.Obsolete
			sp.VersionRenamed = v.Renamed
			for _, d := range v.Runtime {
				sp.Runtime = append(sp.Runtime, encodeDependency(d))
			}
		}
		s.Packages = append(s.Packages, sp)
	}

	for i := range s.Stats.Components {
		c := g.Component(graph.ComponentID(i))
		sc := Component{Name: c.Name, Path: c.Path}
		for _, pid := range c.Packages {
			sc.Packages = append(sc.Packages, g.Package(pid).Name)
		}
		for class, deps := range c.Deps {
			if len(deps) == 0 {
				continue
			}
			if sc.Deps == nil {
				sc.Deps = make(map[depend.Class][]string)
			}
			for _, f := range deps {
				sc.Deps[class] = append(sc.Deps[class], f.String())
			}
		}
		s.Components = append(s.Components, sc)
	}
	return s
}

func encodeDependency(d depend.Dependency) Dependency {
	out := Dependency{Kind: d.Kind}
	switch d.Kind {
	case depend.KindRequireAny:
		for _, f := range d.Any {
			out.Any = append(out.Any, f.String())
		}
	case depend.KindConditional:
		out.FMRI = d.FMRI.String()
		out.Predicate = d.Predicate.String()
	default:
		out.FMRI = d.FMRI.String()
	}
	return out
}

// =============================================================================
// Rebuild
// =============================================================================

// Graph rebuilds a resolved and distributed graph from s. The returned
// graph is in concurrent mode. Problems found while rebuilding are not
// reported; they are already part of s.
func (s *Snapshot) Graph() (*graph.Graph, error) {
	g := graph.New(graph.Options{Concurrent: true})

	for _, p := range s.Packages {
		id := fmri.FMRI{Publisher: p.Publisher, Name: p.Name}
		if p.Version != "" {
			v, err := fmri.ParseVersion(p.Version)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "snapshot package %s", p.Name)
			}
			id.Version = v
		}
		runtime, err := decodeDependencies(p.Runtime)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "snapshot package %s", p.Name)
		}
		if p.VersionObsolete && p.VersionRenamed {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "snapshot package %s is both obsolete and renamed", p.Name)
		}
		if _, err := g.AddPackage(id, p.VersionObsolete, p.VersionRenamed, runtime); err != nil {
			return nil, fmt.Errorf("snapshot package %s: %w", p.Name, err)
		}
	}

	for _, p := range s.Packages {
		f := fmri.FMRI{Name: p.Name}
		var err error
		switch {
		case p.Obsolete && p.Renamed:
			err = errors.New(errors.ErrCodeInvalidFormat, "snapshot package %s is both obsolete and renamed", p.Name)
		case p.Obsolete:
			err = g.MarkObsolete(f)
		case p.Renamed:
			err = g.MarkRenamed(f)
		}
		if err == nil && p.RenamedTo != "" {
			err = g.SetRenamedTo(f, fmri.FMRI{Name: p.RenamedTo})
		}
		if err != nil {
			return nil, err
		}
	}

	for _, c := range s.Components {
		owned, err := parseAll(c.Packages)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "snapshot component %s", c.Path)
		}
		cid, err := g.AddComponent(c.Name, c.Path, owned, nil)
		if err != nil {
			return nil, err
		}
		for _, class := range depend.ComponentClasses {
			deps, err := parseAll(c.Deps[class])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "snapshot component %s", c.Path)
			}
			if err := g.AddComponentDependencies(cid, class, deps, nil); err != nil {
				return nil, err
			}
		}
	}

	g.ResolveVersions()
	if err := g.DistributeReverse(nil); err != nil {
		return nil, err
	}
	return g, nil
}

func decodeDependencies(ds []Dependency) ([]depend.Dependency, error) {
	out := make([]depend.Dependency, 0, len(ds))
	for _, d := range ds {
		switch d.Kind {
		case depend.KindRequireAny:
			alts, err := parseAll(d.Any)
			if err != nil {
				return nil, err
			}
			out = append(out, depend.RequireAny(alts...))
		case depend.KindConditional:
			f, err := fmri.Parse(d.FMRI)
			if err != nil {
				return nil, err
			}
			pred, err := fmri.Parse(d.Predicate)
			if err != nil {
				return nil, err
			}
			out = append(out, depend.Conditional(f, pred))
		default:
			f, err := fmri.Parse(d.FMRI)
			if err != nil {
				return nil, err
			}
			out = append(out, depend.Dependency{Kind: d.Kind, FMRI: f})
		}
	}
	return out, nil
}

func parseAll(ss []string) ([]fmri.FMRI, error) {
	out := make([]fmri.FMRI, 0, len(ss))
	for _, s := range ss {
		f, err := fmri.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// =============================================================================
// Serialization
// =============================================================================

// Marshal encodes s as indented JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes s as indented JSON to w.
func Write(s *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode snapshot")
	}
	if s.ID == "" {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "snapshot without id")
	}
	if s.Counts == nil {
		s.Counts = problem.CountKinds(s.Problems)
	}
	return &s, nil
}

// ReadFile reads a snapshot from a JSON file.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
