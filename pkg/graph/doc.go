// Package graph stores the unified package/component dependency graph of an
// IPS repository and implements the passes that prepare it for analysis.
//
// # Overview
//
// A [Graph] owns every [Package] and [Component] record in an arena. Records
// reference each other through [PackageID] and [ComponentID] handles rather
// than pointers, so a package can name its owner and a component can list its
// packages without either keeping the other alive. Handles are checked at
// lookup time: [Graph.Package] and [Graph.Component] return nil for a handle
// that does not address a record.
//
// Packages and components are also indexed by name. Absence is reported with
// the sentinel errors [ErrPackageNotFound] and [ErrComponentNotFound] so that
// callers can tell "unknown" apart from "known but obsolete".
//
// # Building a Graph
//
// Graphs are built in a fixed order:
//
//	g := graph.New(graph.Options{})
//	g.AddPackage(fmri.MustParse("library/zlib@1.3"), false, false, nil)
//	id, _ := g.AddComponent("library/zlib", "components/library/zlib",
//	    []fmri.FMRI{fmri.MustParse("library/zlib")}, sink)
//	g.AddComponentDependencies(id, depend.Build, buildDeps, sink)
//
//	g.MarkObsolete(fmri.MustParse("library/old@1.0"))   // history
//	g.ResolveVersions()                                 // one version per package
//	g.DistributeReverse(sink)                           // runtime reverse index
//
// [Graph.ResolveVersions] must run after all catalog and history data has been
// ingested: it collapses every package down to its active version. The
// reverse runtime index built by [Graph.DistributeReverse] and every analysis
// pass downstream assume exactly one version per package.
//
// # Dependency Classes
//
// Runtime dependencies belong to a package version and are inverted in one
// pass by [Graph.DistributeReverse]. Build, test, system-build and system-test
// dependencies belong to the component and are mirrored onto each target
// package's per-class dependent set as they are ingested.
//
// # Concurrency
//
// [Options.Concurrent] selects the arena's locking primitive at construction
// time. The default single-owner mode does no locking at all; concurrent mode
// guards every access with a read/write mutex so that the checker and the
// cycle detector can read a finished graph from different goroutines. None of
// the passes is aware of which mode is active.
//
// # Structural Problems
//
// Conflicts discovered while building the graph (a package claimed by two
// components, a component listing an unknown package, a dependency on a
// package that does not exist) are recorded in a [problem.Sink] and do not
// abort ingestion. Violated programmer invariants, such as flagging a version
// both obsolete and renamed, panic.
package graph
