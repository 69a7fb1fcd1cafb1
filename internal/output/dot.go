// # internal/output/dot.go
package output

import (
	"fmt"
	"strings"

	"github.com/RobertRautenbach/rust-affected/internal/affected"
	"github.com/RobertRautenbach/rust-affected/internal/graph"
)

type DOTGenerator struct {
	graph *graph.Graph
}

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders the workspace member graph with the affected set
// highlighted. External (registry) packages are omitted; they would drown
// the picture and never gate CI.
func (d *DOTGenerator) Generate(res affected.Result) (string, error) {
	changed := make(map[string]bool, len(res.ChangedCrates))
	for _, name := range res.ChangedCrates {
		changed[name] = true
	}
	affectedSet := make(map[string]bool, len(res.AffectedLibraryMembers))
	for _, name := range res.AffectedLibraryMembers {
		affectedSet[name] = true
	}

	var buf strings.Builder
	buf.WriteString("digraph workspace {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8];\n\n")

	members := d.graph.Members()
	for _, pkg := range members {
		label := pkg.Name
		if pkg.HasKind(graph.KindBinary) {
			label += "\\n(bin)"
		}
		switch {
		case changed[pkg.Name]:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", pkg.Name, label))
		case affectedSet[pkg.Name]:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"lightyellow\", color=\"darkorange\"];\n", pkg.Name, label))
		default:
			buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\", fillcolor=\"white\", color=\"darkslategrey\"];\n", pkg.Name, label))
		}
	}
	buf.WriteString("\n")

	for _, pkg := range members {
		for _, depID := range d.graph.Dependencies(pkg.ID) {
			dep, ok := d.graph.Package(depID)
			if !ok || !d.graph.IsMember(depID) {
				continue
			}
			if affectedSet[pkg.Name] && affectedSet[dep.Name] {
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"darkorange\", penwidth=1.8];\n", pkg.Name, dep.Name))
			} else {
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"grey\"];\n", pkg.Name, dep.Name))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}
