package graph

import (
	"fmt"

	"github.com/matzehuels/pkgcheck/pkg/fmri"
)

// MarkObsolete flags id as obsolete. A versioned identifier flags every
// matching version; a versionless one flags the package as a whole.
//
// Returns ErrPackageNotFound for an unknown package and ErrVersionNotFound
// when no version matches. Flagging something that is already renamed
// panics; loaders check [Graph.Flags] first.
func (g *Graph) MarkObsolete(id fmri.FMRI) error {
	return g.mark(id, true)
}

// MarkRenamed flags id as renamed, with the same rules as [Graph.MarkObsolete].
func (g *Graph) MarkRenamed(id fmri.FMRI) error {
	return g.mark(id, false)
}

func (g *Graph) mark(id fmri.FMRI, obsolete bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.packageByName(id.Name)
	if err != nil {
		return err
	}

	if !id.HasVersion() {
		if (obsolete && p.Renamed) || (!obsolete && p.Obsolete) {
			panic(fmt.Sprintf("graph: package %s flagged both obsolete and renamed", p.Name))
		}
		if obsolete {
			p.Obsolete = true
		} else {
			p.Renamed = true
		}
		return nil
	}

	found := false
	for _, v := range p.Versions {
		if !versionMatches(id.Version, v.Version) {
			continue
		}
		found = true
		if (obsolete && v.Renamed) || (!obsolete && v.Obsolete) {
			panic(fmt.Sprintf("graph: version %s@%s flagged both obsolete and renamed", p.Name, v.Version))
		}
		if obsolete {
			v.Obsolete = true
		} else {
			v.Renamed = true
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", id, ErrVersionNotFound)
	}
	return nil
}

// versionMatches reports whether have satisfies want. Empty parts of want
// other than the release match anything.
func versionMatches(want, have fmri.Version) bool {
	if want.Release != have.Release {
		return false
	}
	if want.BuildRelease != "" && want.BuildRelease != have.BuildRelease {
		return false
	}
	if want.Branch != "" && want.Branch != have.Branch {
		return false
	}
	if want.Timestamp != "" && want.Timestamp != have.Timestamp {
		return false
	}
	return true
}

// Flags reports the obsolete and renamed flags id would touch: the
// package-wide flags for a versionless identifier, otherwise the union over
// matching versions.
func (g *Graph) Flags(id fmri.FMRI) (obsolete, renamed bool, err error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, err := g.packageByName(id.Name)
	if err != nil {
		return false, false, err
	}
	if !id.HasVersion() {
		return p.Obsolete, p.Renamed, nil
	}

	found := false
	for _, v := range p.Versions {
		if versionMatches(id.Version, v.Version) {
			found = true
			obsolete = obsolete || v.Obsolete
			renamed = renamed || v.Renamed
		}
	}
	if !found {
		return false, false, fmt.Errorf("%s: %w", id, ErrVersionNotFound)
	}
	return obsolete, renamed, nil
}

// SetRenamedTo records the successor of a renamed package.
func (g *Graph) SetRenamedTo(id, successor fmri.FMRI) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.packageByName(id.Name)
	if err != nil {
		return err
	}
	p.RenamedTo = successor.Name
	return nil
}

// SelectActiveVersion picks the version that represents p and drops every
// other version: the newest version that is neither obsolete nor renamed,
// or the newest version overall if all of them are. Calling it again on
// the same package returns the same version.
func (g *Graph) SelectActiveVersion(p *Package) *Version {
	g.mu.Lock()
	defer g.mu.Unlock()
	return selectActiveVersion(p)
}

func selectActiveVersion(p *Package) *Version {
	if len(p.Versions) == 0 {
		return nil
	}

	newest := p.Versions[0]
	var active *Version
	for _, v := range p.Versions {
		if v.Version.Compare(newest.Version) > 0 {
			newest = v
		}
		if v.Stale() {
			continue
		}
		if active == nil || v.Version.Compare(active.Version) > 0 {
			active = v
		}
	}
	if active == nil {
		active = newest
	}

	p.Versions = []*Version{active}
	return active
}

// ResolveVersions collapses every package to its active version, names
// unnamed single-package components after their package and marks the
// graph resolved. It must run after all catalog and history data has been
// ingested. Running it again is a no-op.
func (g *Graph) ResolveVersions() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.packages {
		selectActiveVersion(p)
	}

	for _, c := range g.components {
		if c.Name != "" || len(c.Packages) != 1 {
			continue
		}
		name := "/" + g.packages[c.Packages[0]].Name
		if _, taken := g.compIndex[name]; taken {
			continue
		}
		c.Name = name
		g.compIndex[name] = c.ID
	}

	g.resolved = true
}
