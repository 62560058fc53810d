// Package render draws audit findings as node-link diagrams.
//
// # Overview
//
// Two diagrams are supported:
//
//   - [CyclesDOT]: every reported dependency cycle, one colored cluster of
//     edges per cycle, edges labeled with their type (build, require, ...)
//   - [DependentsDOT]: everything that depends on one package, walked up to
//     a given depth; packages are rounded boxes, components plain boxes
//
// Both produce Graphviz DOT source that can be rendered in-process with
// [RenderSVG], or converted further with [ToPDF] and [ToPNG].
//
//	dot := render.CyclesDOT(res.Cycles)
//	svg, err := render.RenderSVG(dot)
//	png, err := render.ToPNG(svg, 2.0)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for SVG rendering. PDF
// and PNG conversion requires librsvg (rsvg-convert).
package render
