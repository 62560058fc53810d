package render

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/pkgcheck/pkg/depend"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/graph/cycles"
)

// cyclePalette colors the edges of successive cycles.
var cyclePalette = []string{
	"#d62728", "#1f77b4", "#2ca02c", "#ff7f0e", "#9467bd", "#8c564b", "#e377c2", "#17becf",
}

func header(buf *bytes.Buffer, rankdir string) {
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")
}

// CyclesDOT converts cycles to Graphviz DOT. Nodes shared between cycles are
// drawn once; every cycle gets its own edge color.
func CyclesDOT(cs []cycles.Cycle) string {
	var buf bytes.Buffer
	header(&buf, "LR")

	var nodes []string
	for _, c := range cs {
		for _, n := range c.Nodes() {
			if !slices.Contains(nodes, n) {
				nodes = append(nodes, n)
			}
		}
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q [label=%q];\n", n, n)
	}

	buf.WriteString("\n")
	for i, c := range cs {
		color := cyclePalette[i%len(cyclePalette)]
		for j, h := range c.Route {
			next := c.Route[(j+1)%len(c.Route)].Node
			attrs := []string{fmt.Sprintf("label=%q", h.Edge.String()), fmt.Sprintf("color=%q", color), fmt.Sprintf("fontcolor=%q", color)}
			if h.Edge.IsRuntime() {
				attrs = append(attrs, "style=dashed")
			}
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", h.Node, next, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// DependentsDOT draws everything that depends on id, following dependents
// of dependents up to depth levels (depth <= 0 means one level). A
// component dependent is expanded through the packages it builds.
func DependentsDOT(g *graph.Graph, id fmri.FMRI, depth int) (string, error) {
	if depth <= 0 {
		depth = 1
	}
	root, err := g.PackageByFMRI(id)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	header(&buf, "BT")

	var nodeLines, edgeLines []string
	seen := make(map[string]bool)
	addNode := func(key, line string) bool {
		if seen[key] {
			return false
		}
		seen[key] = true
		nodeLines = append(nodeLines, line)
		return true
	}
	addPkg := func(name string) bool {
		return addNode(pkgNode(name), fmt.Sprintf("  %q [label=%q];", pkgNode(name), name))
	}
	addNode(pkgNode(root.Name), fmt.Sprintf("  %q [label=%q, fillcolor=%q];", pkgNode(root.Name), root.Name, "#ffe9a8"))

	frontier := []string{root.Name}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		for _, name := range frontier {
			refs, err := g.DependentsOf(fmri.FMRI{Name: name})
			if err != nil {
				return "", err
			}
			for _, ref := range refs {
				if ref.Class == depend.Runtime {
					edgeLines = append(edgeLines, fmt.Sprintf("  %q -> %q [label=%q];", pkgNode(ref.Name), pkgNode(name), ref.Kind.String()))
					if addPkg(ref.Name) {
						next = append(next, ref.Name)
					}
					continue
				}

				comp := compNode(ref.Name)
				edgeLines = append(edgeLines, fmt.Sprintf("  %q -> %q [label=%q];", comp, pkgNode(name), ref.Class.String()))
				if !addNode(comp, fmt.Sprintf("  %q [label=%q, style=filled, fillcolor=%q];", comp, ref.Name, "#dbe9f6")) {
					continue
				}
				// A component is reached again through the packages it builds.
				for _, owned := range ownedPackages(g, ref.Name) {
					edgeLines = append(edgeLines, fmt.Sprintf("  %q -> %q [style=dotted, arrowhead=none];", pkgNode(owned), comp))
					if addPkg(owned) {
						next = append(next, owned)
					}
				}
			}
		}
		frontier = next
	}

	slices.Sort(edgeLines)
	edgeLines = slices.Compact(edgeLines)
	buf.WriteString(strings.Join(nodeLines, "\n"))
	buf.WriteString("\n\n")
	buf.WriteString(strings.Join(edgeLines, "\n"))
	buf.WriteString("\n}\n")
	return buf.String(), nil
}

func ownedPackages(g *graph.Graph, component string) []string {
	c, err := g.ComponentByName(component)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(c.Packages))
	for _, pid := range c.Packages {
		if p := g.Package(pid); p != nil {
			out = append(out, p.Name)
		}
	}
	return out
}

func pkgNode(name string) string  { return "pkg:" + name }
func compNode(name string) string { return "component:" + name }
