package fmri

import (
	"strings"

	"github.com/matzehuels/pkgcheck/pkg/errors"
)

// FMRI identifies a package, optionally pinned to a publisher and version.
// FMRI is comparable and can be used as a map key.
type FMRI struct {
	Publisher string
	Name      string
	Version   Version
}

// Parse parses an FMRI in any of the forms accepted by IPS:
//
//	pkg://publisher/name@version
//	pkg:/name@version
//	name@version
//	name
func Parse(s string) (FMRI, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return FMRI{}, errors.New(errors.ErrCodeInvalidFMRI, "empty FMRI")
	}

	var f FMRI
	rest := strings.TrimPrefix(raw, "pkg:")
	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		pub, after, ok := strings.Cut(rest, "/")
		if !ok || pub == "" {
			return FMRI{}, errors.New(errors.ErrCodeInvalidFMRI, "malformed publisher in %q", raw)
		}
		f.Publisher, rest = pub, after
	}
	rest = strings.TrimPrefix(rest, "/")

	name, ver, hasVersion := strings.Cut(rest, "@")
	if err := errors.ValidatePackageName(name); err != nil {
		return FMRI{}, errors.Wrap(errors.ErrCodeInvalidFMRI, err, "parse %q", raw)
	}
	f.Name = name

	if hasVersion {
		v, err := ParseVersion(ver)
		if err != nil {
			return FMRI{}, errors.Wrap(errors.ErrCodeInvalidFMRI, err, "parse %q", raw)
		}
		f.Version = v
	}
	return f, nil
}

// MustParse is like [Parse] but panics on error.
// It is intended for literals in tests and fixtures.
func MustParse(s string) FMRI {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

// String renders the FMRI. The "pkg://" scheme is only used when a
// publisher is present, so normalized FMRIs print as their bare name.
func (f FMRI) String() string {
	var b strings.Builder
	if f.Publisher != "" {
		b.WriteString("pkg://")
		b.WriteString(f.Publisher)
		b.WriteByte('/')
	}
	b.WriteString(f.Name)
	if f.HasVersion() {
		b.WriteByte('@')
		b.WriteString(f.Version.String())
	}
	return b.String()
}

// HasVersion reports whether the FMRI is pinned to a version.
func (f FMRI) HasVersion() bool {
	return !f.Version.IsZero()
}

// NameEqual reports whether f and o name the same package,
// ignoring publisher and version.
func (f FMRI) NameEqual(o FMRI) bool {
	return f.Name == o.Name
}

// Equal reports whether f and o are identical.
func (f FMRI) Equal(o FMRI) bool {
	return f == o
}

// Compare orders FMRIs by name and then by version (older first).
// Publishers do not take part in the ordering.
func (f FMRI) Compare(o FMRI) int {
	if c := strings.Compare(f.Name, o.Name); c != 0 {
		return c
	}
	return f.Version.Compare(o.Version)
}

// Normalize strips publisher and version.
func (f FMRI) Normalize() FMRI {
	return FMRI{Name: f.Name}
}

// WithVersion returns a copy of f pinned to v.
func (f FMRI) WithVersion(v Version) FMRI {
	f.Version = v
	return f
}

// WithPublisher returns a copy of f with the given publisher.
func (f FMRI) WithPublisher(p string) FMRI {
	f.Publisher = p
	return f
}

// StripPublisher returns a copy of f without its publisher.
func (f FMRI) StripPublisher() FMRI {
	f.Publisher = ""
	return f
}
