package affected

import (
	"sort"
	"strings"

	"github.com/RobertRautenbach/rust-affected/internal/graph"
)

// mapChangedFiles returns the ids of workspace members that own at least
// one changed file. Ownership is a component-wise path prefix check: the
// file's leading components must equal the member directory's components
// exactly, so a change under lib-core-ext/ never lands in lib-core.
func mapChangedFiles(g *graph.Graph, changedFiles []string) []string {
	files := make([][]string, 0, len(changedFiles))
	for _, f := range changedFiles {
		files = append(files, pathComponents(f))
	}

	ids := make([]string, 0)
	for _, pkg := range g.Members() {
		dir := pathComponents(pkg.Dir)
		for _, file := range files {
			if hasComponentPrefix(file, dir) {
				ids = append(ids, pkg.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// pathComponents splits a slash path into components, dropping empty runs
// and bare "." segments. A leading "/" is kept as its own component so an
// absolute path never prefix-matches a relative directory.
func pathComponents(p string) []string {
	out := make([]string, 0, 8)
	if strings.HasPrefix(p, "/") {
		out = append(out, "/")
	}
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." {
			continue
		}
		out = append(out, part)
	}
	return out
}

func hasComponentPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, comp := range prefix {
		if path[i] != comp {
			return false
		}
	}
	return true
}
