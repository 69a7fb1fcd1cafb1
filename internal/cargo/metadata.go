package cargo

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/RobertRautenbach/rust-affected/internal/graph"
)

// Metadata mirrors the parts of `cargo metadata --format-version 1` output
// the dependency graph needs. Everything else in the JSON is ignored.
type Metadata struct {
	Packages         []Package `json:"packages"`
	WorkspaceMembers []string  `json:"workspace_members"`
	Resolve          *Resolve  `json:"resolve"`
	WorkspaceRoot    string    `json:"workspace_root"`
}

type Package struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ManifestPath string   `json:"manifest_path"`
	Targets      []Target `json:"targets"`
}

type Target struct {
	Kind []string `json:"kind"`
	Name string   `json:"name"`
}

type Resolve struct {
	Nodes []Node `json:"nodes"`
}

type Node struct {
	ID           string   `json:"id"`
	Dependencies []string `json:"dependencies"`
}

// Load runs `cargo metadata` in workspaceRoot and builds the dependency
// graph from its output. Any cargo failure is returned before a graph
// exists; there is no partial result.
func Load(ctx context.Context, workspaceRoot string, locked bool) (*graph.Graph, error) {
	args := []string{"metadata", "--format-version", "1"}
	if locked {
		args = append(args, "--locked")
	}
	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Dir = workspaceRoot
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("cargo metadata failed in %s: %w\n%s", workspaceRoot, err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("cargo metadata failed in %s: %w", workspaceRoot, err)
	}
	return Parse(out)
}

// Parse decodes cargo metadata JSON and builds the dependency graph.
// Split from Load so tests and other hosts can feed captured output.
func Parse(data []byte) (*graph.Graph, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding cargo metadata: %w", err)
	}
	return buildGraph(&meta)
}

func buildGraph(meta *Metadata) (*graph.Graph, error) {
	if meta.Resolve == nil {
		return nil, fmt.Errorf("cargo metadata carries no resolve graph; was it produced with --no-deps?")
	}

	g := graph.New()
	for _, pkg := range meta.Packages {
		g.AddPackage(graph.Package{
			ID:    pkg.ID,
			Name:  pkg.Name,
			Dir:   relativeDir(meta.WorkspaceRoot, pkg.ManifestPath),
			Kinds: targetKinds(pkg.Targets),
		})
	}
	for _, id := range meta.WorkspaceMembers {
		g.MarkMember(id)
	}
	for _, node := range meta.Resolve.Nodes {
		for _, dep := range node.Dependencies {
			g.AddDependency(node.ID, dep)
		}
	}
	return g, nil
}

// relativeDir turns a manifest path into the package directory relative to
// the workspace root. Directories outside the root (registry checkouts,
// path deps above the workspace) are kept as-is. The workspace root package
// itself maps to the empty directory, which prefixes every changed path.
func relativeDir(root, manifestPath string) string {
	dir := filepath.Dir(manifestPath)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(dir)
	}
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

func targetKinds(targets []Target) []graph.TargetKind {
	seen := make(map[graph.TargetKind]bool, 3)
	kinds := make([]graph.TargetKind, 0, 2)
	for _, t := range targets {
		for _, raw := range t.Kind {
			k := mapKind(raw)
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
	}
	return kinds
}

func mapKind(kind string) graph.TargetKind {
	switch kind {
	case "bin":
		return graph.KindBinary
	case "lib", "rlib", "dylib", "cdylib", "staticlib", "proc-macro":
		return graph.KindLibrary
	default:
		// test, bench, example, custom-build
		return graph.KindOther
	}
}
