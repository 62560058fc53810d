// Package pkg provides the libraries behind pkgcheck, an auditor for IPS
// package repositories and the oi-userland tree that builds them.
//
// # Overview
//
// pkgcheck links every published package to the component that builds it
// and reports what is broken about the result: dependencies on packages
// that do not exist or were obsoleted, packages nobody builds, components
// nothing needs, and build dependency cycles.
//
// # Architecture
//
// The data flow of one audit:
//
//	catalog.dependency.C files      oi-userland checkout
//	         ↓                               ↓
//	    [catalog] (records)     [history] + [userland] (marks, components)
//	         ↓                               ↓
//	              [graph] (arena of packages and components)
//	                       ↓
//	       [graph.Graph.ResolveVersions], [graph.Graph.DistributeReverse]
//	                       ↓
//	           [check] + [graph/cycles] → [problem.Sink]
//	                       ↓
//	         [snapshot] (file, Redis, MongoDB) → [server], CLI
//
// [audit] runs these stages and reports progress through [observability]
// hooks.
//
// # Packages
//
// Model:
//
//   - [fmri]: package identifiers and dotted versions
//   - [depend]: dependency kinds and classes
//   - [problem]: problem kinds, the deduplicating sink and reports
//   - [errors]: coded errors shared by every package
//
// Analysis:
//
//   - [graph]: the package/component store and lifecycle resolution
//   - [graph/cycles]: component-level cycle detection
//   - [check]: ownership and stale dependency checks
//
// Inputs:
//
//   - [catalog]: dependency catalog parsing
//   - [history]: the obsolete/renamed history file
//   - [userland]: component discovery and build queries
//   - [httputil]: conditional catalog downloads
//   - [cache]: file, Redis and null caches for build queries
//
// Outputs:
//
//   - [snapshot]: persisted audit results
//   - [render]: DOT/SVG rendering of cycles and dependents
//   - [server]: read-only HTTP API over the latest snapshot
//
// [fmri]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/fmri
// [depend]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/depend
// [problem]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/problem
// [problem.Sink]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/problem#Sink
// [errors]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/errors
// [graph]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/graph
// [graph.Graph.ResolveVersions]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/graph#Graph.ResolveVersions
// [graph.Graph.DistributeReverse]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/graph#Graph.DistributeReverse
// [graph/cycles]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/graph/cycles
// [check]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/check
// [catalog]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/catalog
// [history]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/history
// [userland]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/userland
// [httputil]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/httputil
// [cache]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/cache
// [audit]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/audit
// [observability]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/observability
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/snapshot
// [render]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/render
// [server]: https://pkg.go.dev/github.com/matzehuels/pkgcheck/pkg/server
package pkg
