package fmri

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matzehuels/pkgcheck/pkg/errors"
)

// Version is the structured version part of an FMRI.
// The zero value means "no version".
type Version struct {
	Release      string // e.g. "1.3.1"
	BuildRelease string // e.g. "5.11"
	Branch       string // e.g. "2024.0.0.0"
	Timestamp    string // e.g. "20240101T120000Z"
}

// ParseVersion parses "release[,build-release][-branch][:timestamp]".
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, errors.New(errors.ErrCodeInvalidFMRI, "empty version")
	}

	var v Version
	rest := s
	if before, after, ok := strings.Cut(rest, ":"); ok {
		rest, v.Timestamp = before, after
		if v.Timestamp == "" {
			return Version{}, errors.New(errors.ErrCodeInvalidFMRI, "empty timestamp in version %q", s)
		}
	}
	if before, after, ok := strings.Cut(rest, "-"); ok {
		rest, v.Branch = before, after
		if v.Branch == "" {
			return Version{}, errors.New(errors.ErrCodeInvalidFMRI, "empty branch in version %q", s)
		}
	}
	if before, after, ok := strings.Cut(rest, ","); ok {
		rest, v.BuildRelease = before, after
		if v.BuildRelease == "" {
			return Version{}, errors.New(errors.ErrCodeInvalidFMRI, "empty build release in version %q", s)
		}
	}
	v.Release = rest
	if v.Release == "" {
		return Version{}, errors.New(errors.ErrCodeInvalidFMRI, "empty release in version %q", s)
	}
	for _, part := range []string{v.Release, v.BuildRelease, v.Branch} {
		if part != "" && slices.Contains(strings.Split(part, "."), "") {
			return Version{}, errors.New(errors.ErrCodeInvalidFMRI, "empty version segment in %q", s)
		}
	}
	return v, nil
}

// IsZero reports whether v carries no version at all.
func (v Version) IsZero() bool {
	return v == Version{}
}

// String renders the version in its canonical textual form.
func (v Version) String() string {
	if v.IsZero() {
		return ""
	}
	var b strings.Builder
	b.WriteString(v.Release)
	if v.BuildRelease != "" {
		b.WriteByte(',')
		b.WriteString(v.BuildRelease)
	}
	if v.Branch != "" {
		b.WriteByte('-')
		b.WriteString(v.Branch)
	}
	if v.Timestamp != "" {
		b.WriteByte(':')
		b.WriteString(v.Timestamp)
	}
	return b.String()
}

// Compare returns -1, 0 or +1 depending on whether v is older than,
// equal to, or newer than o. Parts compare in textual order: release,
// build release, branch, timestamp. A missing part sorts before a present one.
func (v Version) Compare(o Version) int {
	if c := compareDotted(v.Release, o.Release); c != 0 {
		return c
	}
	if c := compareDotted(v.BuildRelease, o.BuildRelease); c != 0 {
		return c
	}
	if c := compareDotted(v.Branch, o.Branch); c != 0 {
		return c
	}
	return strings.Compare(v.Timestamp, o.Timestamp)
}

// SortNewestFirst sorts versions in place so that index 0 is the newest.
// Equal versions keep their relative order.
func SortNewestFirst(vs []Version) {
	slices.SortStableFunc(vs, func(a, b Version) int { return b.Compare(a) })
}

func compareDotted(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := range min(len(as), len(bs)) {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// compareSegment orders all-digit segments numerically, whatever their
// length, and anything else lexically.
func compareSegment(a, b string) int {
	if !isDigits(a) || !isDigits(b) {
		return strings.Compare(a, b)
	}
	a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
