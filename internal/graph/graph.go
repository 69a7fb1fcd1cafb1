// # internal/graph/graph.go
package graph

import (
	"errors"
	"fmt"
	"sort"
)

var ErrSeedNotFound = errors.New("seed package not found in graph")

type SeedError struct {
	ID string
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("%v: %s", ErrSeedNotFound, e.ID)
}

func (e *SeedError) Unwrap() error {
	return ErrSeedNotFound
}

type TargetKind int

const (
	KindOther TargetKind = iota
	KindLibrary
	KindBinary
)

func (k TargetKind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindBinary:
		return "binary"
	default:
		return "other"
	}
}

type Package struct {
	ID    string
	Name  string
	Dir   string // workspace-root relative, slash separated
	Kinds []TargetKind
}

func (p *Package) HasKind(kind TargetKind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Graph is a directed dependency graph over packages. An edge A -> B means
// "A depends on B". Populate it fully before handing it out; it is treated
// as read-only once a computation starts.
type Graph struct {
	packages map[string]*Package // id -> package
	members  map[string]bool     // workspace member ids

	dependsOn    map[string]map[string]bool // from -> to
	dependedOnBy map[string]map[string]bool // to -> from
}

func New() *Graph {
	return &Graph{
		packages:     make(map[string]*Package),
		members:      make(map[string]bool),
		dependsOn:    make(map[string]map[string]bool),
		dependedOnBy: make(map[string]map[string]bool),
	}
}

func (g *Graph) AddPackage(pkg Package) {
	p := pkg
	p.Kinds = append([]TargetKind(nil), pkg.Kinds...)
	g.packages[p.ID] = &p
}

func (g *Graph) AddDependency(fromID, toID string) {
	if fromID == toID {
		return
	}
	if g.dependsOn[fromID] == nil {
		g.dependsOn[fromID] = make(map[string]bool)
	}
	g.dependsOn[fromID][toID] = true

	if g.dependedOnBy[toID] == nil {
		g.dependedOnBy[toID] = make(map[string]bool)
	}
	g.dependedOnBy[toID][fromID] = true
}

func (g *Graph) MarkMember(id string) {
	g.members[id] = true
}

func (g *Graph) Package(id string) (*Package, bool) {
	p, ok := g.packages[id]
	return p, ok
}

func (g *Graph) IsMember(id string) bool {
	return g.members[id]
}

func (g *Graph) PackageCount() int {
	return len(g.packages)
}

func (g *Graph) MemberCount() int {
	return len(g.members)
}

func (g *Graph) MemberIDs() []string {
	ids := make([]string, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Graph) Members() []*Package {
	pkgs := make([]*Package, 0, len(g.members))
	for id := range g.members {
		if p, ok := g.packages[id]; ok {
			pkgs = append(pkgs, p)
		}
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs
}

// Dependencies returns the sorted ids a package depends on directly.
func (g *Graph) Dependencies(id string) []string {
	deps := make([]string, 0, len(g.dependsOn[id]))
	for to := range g.dependsOn[id] {
		deps = append(deps, to)
	}
	sort.Strings(deps)
	return deps
}

// ReverseClosure returns every package that is, or transitively depends on,
// one of the seeds. Seeds are part of their own closure.
func (g *Graph) ReverseClosure(seedIDs []string) ([]string, error) {
	return g.closure(seedIDs, g.dependedOnBy)
}

// ForwardClosure returns every package reachable along dependency edges from
// the seeds, seeds included.
func (g *Graph) ForwardClosure(seedIDs []string) ([]string, error) {
	return g.closure(seedIDs, g.dependsOn)
}

func (g *Graph) closure(seedIDs []string, edges map[string]map[string]bool) ([]string, error) {
	seen := make(map[string]bool, len(seedIDs))
	queue := make([]string, 0, len(seedIDs))
	for _, id := range seedIDs {
		if _, ok := g.packages[id]; !ok {
			return nil, &SeedError{ID: id}
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for next := range edges[curr] {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
