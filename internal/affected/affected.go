package affected

import (
	"sort"

	"github.com/RobertRautenbach/rust-affected/internal/graph"
)

// Result is the outcome of one affected-set computation. All three lists
// are sorted ascending and deduplicated; a fresh value is produced per
// invocation and never mutated afterwards.
type Result struct {
	ChangedCrates          []string `json:"changed_crates"`
	AffectedLibraryMembers []string `json:"affected_library_members"`
	AffectedBinaryMembers  []string `json:"affected_binary_members"`
	ForceAll               bool     `json:"force_all"`
}

// Compute is the core affected-set computation: map changed files onto
// workspace members, decide whether a force trigger fires, walk the reverse
// dependency closure (or take the whole workspace under force-all) and
// assemble the filtered name lists. Pure function of its inputs; identical
// inputs produce bit-for-bit identical results, list order included.
func Compute(g *graph.Graph, changedFiles, forceTriggers, exclusions []string) (Result, error) {
	if len(changedFiles) == 0 {
		return emptyResult(), nil
	}

	forceAll, err := matchForceTriggers(forceTriggers, changedFiles)
	if err != nil {
		return Result{}, err
	}

	directIDs := mapChangedFiles(g, changedFiles)

	var affectedIDs []string
	if forceAll {
		affectedIDs, err = g.ForwardClosure(g.MemberIDs())
	} else {
		affectedIDs, err = g.ReverseClosure(directIDs)
	}
	if err != nil {
		return Result{}, err
	}

	rules := parseExclusions(exclusions)
	return Result{
		ChangedCrates:          memberNames(g, directIDs, rules, false),
		AffectedLibraryMembers: memberNames(g, affectedIDs, rules, false),
		AffectedBinaryMembers:  memberNames(g, affectedIDs, rules, true),
		ForceAll:               forceAll,
	}, nil
}

func emptyResult() Result {
	return Result{
		ChangedCrates:          []string{},
		AffectedLibraryMembers: []string{},
		AffectedBinaryMembers:  []string{},
	}
}

// memberNames narrows ids to non-excluded workspace members and returns
// their sorted, deduplicated names. Exclusion happens here, on the output
// side only; the ids fed in still carry excluded packages so reachability
// through them is preserved.
func memberNames(g *graph.Graph, ids []string, rules exclusionRules, binaryOnly bool) []string {
	names := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !g.IsMember(id) {
			continue
		}
		pkg, ok := g.Package(id)
		if !ok {
			continue
		}
		if binaryOnly && !pkg.HasKind(graph.KindBinary) {
			continue
		}
		if rules.excludes(pkg.Name, pkg.Dir) {
			continue
		}
		if seen[pkg.Name] {
			continue
		}
		seen[pkg.Name] = true
		names = append(names, pkg.Name)
	}
	sort.Strings(names)
	return names
}
