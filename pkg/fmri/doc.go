// Package fmri models IPS package identifiers (FMRIs) and their versions.
//
// # Overview
//
// An FMRI names a package published to an IPS repository:
//
//	pkg://openindiana.org/library/zlib@1.3.1,5.11-2024.0.0.0:20240101T120000Z
//	      └── publisher ─┘ └── name ──┘ └────────── version ─────────────┘
//
// The publisher and the version are optional. [Parse] accepts the full
// form as well as "pkg:/name@version", "name@version" and a bare "name".
//
// # Identity
//
// Two notions of equality are used throughout pkgcheck:
//
//   - [FMRI.NameEqual]: names match, publisher and version are ignored.
//     This is how a dependency on "library/zlib" finds the package.
//   - [FMRI.Equal]: publisher, name and version all match.
//
// [FMRI.Normalize] strips publisher and version. Normalized FMRIs are the
// keys of the package graph and of problem reports, so the same package is
// never reported twice just because two versions of it were seen.
//
// # Versions
//
// A [Version] is "release[,build-release][-branch][:timestamp]". Release,
// build release and branch are dot-separated sequences compared segment by
// segment: numeric segments numerically, anything else lexically, and a
// strict prefix sorts first. Timestamps compare lexically, which matches
// their fixed ISO-8601 basic format. [SortNewestFirst] orders a version list
// so that index 0 is the newest release.
package fmri
