package affected

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/RobertRautenbach/rust-affected/internal/graph"
)

// Workspace used throughout:
//
//	lib-utils <- lib-core <- {lib-core-ext, app-alpha, app-beta}
//	lib-utils <- tools/tool-alpha
//	lib-standalone <- app-beta
//	lib-with-tests (no dependents, no binary target)
//
// plus one external registry package hanging off lib-utils.
func testGraph() *graph.Graph {
	g := graph.New()
	member := func(id, name, dir string, kinds ...graph.TargetKind) {
		g.AddPackage(graph.Package{ID: id, Name: name, Dir: dir, Kinds: kinds})
		g.MarkMember(id)
	}
	member("id-lib-utils", "lib-utils", "lib-utils", graph.KindLibrary)
	member("id-lib-core", "lib-core", "lib-core", graph.KindLibrary)
	member("id-lib-core-ext", "lib-core-ext", "lib-core-ext", graph.KindLibrary)
	member("id-lib-standalone", "lib-standalone", "lib-standalone", graph.KindLibrary)
	member("id-lib-with-tests", "lib-with-tests", "lib-with-tests", graph.KindLibrary, graph.KindOther)
	member("id-app-alpha", "app-alpha", "app-alpha", graph.KindBinary)
	member("id-app-beta", "app-beta", "app-beta", graph.KindBinary)
	member("id-tool-alpha", "tool-alpha", "tools/tool-alpha", graph.KindBinary)

	g.AddPackage(graph.Package{ID: "id-serde", Name: "serde", Dir: "/registry/serde-1.0.203", Kinds: []graph.TargetKind{graph.KindLibrary}})

	g.AddDependency("id-lib-core", "id-lib-utils")
	g.AddDependency("id-lib-core-ext", "id-lib-core")
	g.AddDependency("id-app-alpha", "id-lib-core")
	g.AddDependency("id-app-beta", "id-lib-core")
	g.AddDependency("id-app-beta", "id-lib-standalone")
	g.AddDependency("id-tool-alpha", "id-lib-utils")
	g.AddDependency("id-lib-utils", "id-serde")
	return g
}

func mustCompute(t *testing.T, g *graph.Graph, changed, triggers, exclusions []string) Result {
	t.Helper()
	res, err := Compute(g, changed, triggers, exclusions)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	return res
}

func TestCompute_MidTreeChange(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"lib-utils/src/lib.rs"}, nil, nil)

	if res.ForceAll {
		t.Error("no trigger configured, force_all must be false")
	}
	if !reflect.DeepEqual(res.ChangedCrates, []string{"lib-utils"}) {
		t.Errorf("Expected changed [lib-utils], got %v", res.ChangedCrates)
	}
	wantLib := []string{"app-alpha", "app-beta", "lib-core", "lib-core-ext", "lib-utils", "tool-alpha"}
	if !reflect.DeepEqual(res.AffectedLibraryMembers, wantLib) {
		t.Errorf("Expected library members %v, got %v", wantLib, res.AffectedLibraryMembers)
	}
	wantBin := []string{"app-alpha", "app-beta", "tool-alpha"}
	if !reflect.DeepEqual(res.AffectedBinaryMembers, wantBin) {
		t.Errorf("Expected binary members %v, got %v", wantBin, res.AffectedBinaryMembers)
	}
}

func TestCompute_LeafChange(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"app-alpha/src/main.rs"}, nil, nil)

	if !reflect.DeepEqual(res.AffectedLibraryMembers, []string{"app-alpha"}) {
		t.Errorf("Expected only app-alpha, got %v", res.AffectedLibraryMembers)
	}
	if !reflect.DeepEqual(res.AffectedBinaryMembers, []string{"app-alpha"}) {
		t.Errorf("Expected only app-alpha, got %v", res.AffectedBinaryMembers)
	}
}

func TestCompute_PathPrefixRespectsComponents(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"lib-core-ext/src/lib.rs"}, nil, nil)

	if !reflect.DeepEqual(res.ChangedCrates, []string{"lib-core-ext"}) {
		t.Errorf("Expected changed [lib-core-ext], got %v", res.ChangedCrates)
	}
	// lib-core-ext has no dependents; lib-core must not leak in via the
	// shared string prefix.
	if !reflect.DeepEqual(res.AffectedLibraryMembers, []string{"lib-core-ext"}) {
		t.Errorf("Expected affected [lib-core-ext], got %v", res.AffectedLibraryMembers)
	}
}

func TestCompute_EmptyChangeSet(t *testing.T) {
	res := mustCompute(t, testGraph(), nil, []string{"infra/"}, []string{"tools/"})

	if res.ForceAll {
		t.Error("empty change set must not force")
	}
	if res.ChangedCrates == nil || res.AffectedLibraryMembers == nil || res.AffectedBinaryMembers == nil {
		t.Fatal("result lists must be empty, not nil")
	}
	if len(res.ChangedCrates)+len(res.AffectedLibraryMembers)+len(res.AffectedBinaryMembers) != 0 {
		t.Errorf("Expected empty result, got %+v", res)
	}
}

func TestCompute_EmptyChangeSetSkipsTriggerCompilation(t *testing.T) {
	// Short-circuit happens before pattern compilation, so even a broken
	// pattern cannot fail an empty run.
	if _, err := Compute(testGraph(), nil, []string{"["}, nil); err != nil {
		t.Fatalf("empty change set must short-circuit, got %v", err)
	}
}

func TestCompute_ForceTrigger(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"infra/deploy.yml"}, []string{"infra/"}, nil)

	if !res.ForceAll {
		t.Fatal("expected force_all")
	}
	wantLib := []string{"app-alpha", "app-beta", "lib-core", "lib-core-ext", "lib-standalone", "lib-utils", "lib-with-tests", "tool-alpha"}
	if !reflect.DeepEqual(res.AffectedLibraryMembers, wantLib) {
		t.Errorf("Expected all members %v, got %v", wantLib, res.AffectedLibraryMembers)
	}
	wantBin := []string{"app-alpha", "app-beta", "tool-alpha"}
	if !reflect.DeepEqual(res.AffectedBinaryMembers, wantBin) {
		t.Errorf("Expected binary members %v, got %v", wantBin, res.AffectedBinaryMembers)
	}
	// The yml file itself belongs to no package.
	if len(res.ChangedCrates) != 0 {
		t.Errorf("Expected no changed crates, got %v", res.ChangedCrates)
	}
}

func TestCompute_ForceTriggerPatternForms(t *testing.T) {
	tests := []struct {
		pattern string
		file    string
		want    bool
	}{
		{"infra/", "infra/deploy.yml", true},
		{"infra/", "infra/env/prod.yml", true},
		{"infra/", "infrastructure/deploy.yml", false},
		{"*.lock", "Cargo.lock", true},
		{"*.lock", "lib-core/Cargo.lock", false}, // single segment only
		{"**/*.lock", "lib-core/Cargo.lock", true},
		{".github/workflows/*.yml", ".github/workflows/ci.yml", true},
		{".github/workflows/*.yml", ".github/workflows/nested/ci.yml", false},
		{"rust-toolchain.tom?", "rust-toolchain.toml", true},
	}
	for _, tt := range tests {
		got, err := matchForceTriggers([]string{tt.pattern}, []string{tt.file})
		if err != nil {
			t.Fatalf("pattern %q: %v", tt.pattern, err)
		}
		if got != tt.want {
			t.Errorf("pattern %q against %q = %v, want %v", tt.pattern, tt.file, got, tt.want)
		}
	}
}

func TestCompute_NoTriggersNoCompilation(t *testing.T) {
	got, err := matchForceTriggers(nil, []string{"anything"})
	if err != nil || got {
		t.Errorf("empty trigger list must be false/nil, got %v/%v", got, err)
	}
}

func TestCompute_InvalidTriggerPattern(t *testing.T) {
	_, err := Compute(testGraph(), []string{"lib-utils/src/lib.rs"}, []string{"["}, nil)
	if err == nil {
		t.Fatal("expected error for malformed pattern")
	}
	if !strings.Contains(err.Error(), `"["`) {
		t.Errorf("error should name the offending pattern, got %v", err)
	}
}

func TestCompute_ExclusionByName(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"lib-utils/src/lib.rs"}, nil, []string{"app-beta"})

	for _, name := range res.AffectedLibraryMembers {
		if name == "app-beta" {
			t.Fatal("app-beta must be excluded from output")
		}
	}
	for _, name := range res.AffectedBinaryMembers {
		if name == "app-beta" {
			t.Fatal("app-beta must be excluded from binary output")
		}
	}
}

func TestCompute_ExclusionByPath(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"lib-utils/src/lib.rs"}, nil, []string{"tools/"})

	wantLib := []string{"app-alpha", "app-beta", "lib-core", "lib-core-ext", "lib-utils"}
	if !reflect.DeepEqual(res.AffectedLibraryMembers, wantLib) {
		t.Errorf("Expected %v, got %v", wantLib, res.AffectedLibraryMembers)
	}
	wantBin := []string{"app-alpha", "app-beta"}
	if !reflect.DeepEqual(res.AffectedBinaryMembers, wantBin) {
		t.Errorf("Expected %v, got %v", wantBin, res.AffectedBinaryMembers)
	}
}

func TestCompute_ExclusionPathRespectsBoundaries(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"lib-utils/src/lib.rs"}, nil, []string{"lib-core/"})

	foundExt := false
	for _, name := range res.AffectedLibraryMembers {
		if name == "lib-core" {
			t.Fatal("lib-core must be excluded")
		}
		if name == "lib-core-ext" {
			foundExt = true
		}
	}
	if !foundExt {
		t.Error("lib-core-ext must survive a lib-core/ exclusion")
	}
}

func TestCompute_ExclusionDoesNotPruneTraversal(t *testing.T) {
	// lib-core is excluded but directly changed; its dependents must still
	// be reached through it.
	res := mustCompute(t, testGraph(), []string{"lib-core/src/lib.rs"}, nil, []string{"lib-core"})

	if len(res.ChangedCrates) != 0 {
		t.Errorf("Expected no changed crates, got %v", res.ChangedCrates)
	}
	wantLib := []string{"app-alpha", "app-beta", "lib-core-ext"}
	if !reflect.DeepEqual(res.AffectedLibraryMembers, wantLib) {
		t.Errorf("Expected dependents %v, got %v", wantLib, res.AffectedLibraryMembers)
	}
}

func TestCompute_ForceAllRespectsExclusions(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"infra/deploy.yml"}, []string{"infra/"}, []string{"tools/", "lib-with-tests"})

	wantLib := []string{"app-alpha", "app-beta", "lib-core", "lib-core-ext", "lib-standalone", "lib-utils"}
	if !reflect.DeepEqual(res.AffectedLibraryMembers, wantLib) {
		t.Errorf("Expected %v, got %v", wantLib, res.AffectedLibraryMembers)
	}
}

func TestCompute_ManifestChangeCountsAsCrateChange(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"lib-core/Cargo.toml"}, nil, nil)

	if !reflect.DeepEqual(res.ChangedCrates, []string{"lib-core"}) {
		t.Errorf("Expected changed [lib-core], got %v", res.ChangedCrates)
	}
}

func TestCompute_UnownedFileContributesNothing(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"README.md"}, nil, nil)

	if res.ForceAll || len(res.ChangedCrates) != 0 || len(res.AffectedLibraryMembers) != 0 {
		t.Errorf("Expected empty non-forced result, got %+v", res)
	}
}

func TestCompute_NoBinaryDependents(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"lib-with-tests/src/lib.rs"}, nil, nil)

	if !reflect.DeepEqual(res.AffectedLibraryMembers, []string{"lib-with-tests"}) {
		t.Errorf("Expected [lib-with-tests], got %v", res.AffectedLibraryMembers)
	}
	if len(res.AffectedBinaryMembers) != 0 {
		t.Errorf("a test target is not a binary, got %v", res.AffectedBinaryMembers)
	}
}

func TestCompute_ExternalPackagesNeverListed(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"infra/x"}, []string{"infra/"}, nil)

	for _, name := range res.AffectedLibraryMembers {
		if name == "serde" {
			t.Fatal("registry packages must not appear in member lists")
		}
	}
}

func TestCompute_DedupAcrossFiles(t *testing.T) {
	changed := []string{
		"lib-core/src/a.rs",
		"lib-core/src/b.rs",
		"lib-core/Cargo.toml",
	}
	res := mustCompute(t, testGraph(), changed, nil, nil)

	if !reflect.DeepEqual(res.ChangedCrates, []string{"lib-core"}) {
		t.Errorf("Expected single lib-core entry, got %v", res.ChangedCrates)
	}
}

func TestCompute_Idempotence(t *testing.T) {
	g := testGraph()
	changed := []string{"lib-utils/src/lib.rs", "app-beta/src/main.rs"}
	triggers := []string{"infra/"}
	exclusions := []string{"tools/"}

	first := mustCompute(t, g, changed, triggers, exclusions)
	for i := 0; i < 5; i++ {
		if got := mustCompute(t, g, changed, triggers, exclusions); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d diverged: %+v vs %+v", i, first, got)
		}
	}
}

func TestCompute_Monotonicity(t *testing.T) {
	g := testGraph()
	changed := []string{"app-alpha/src/main.rs"}
	prev := mustCompute(t, g, changed, nil, nil)

	grow := []string{"lib-standalone/src/lib.rs", "lib-utils/src/lib.rs", "lib-with-tests/src/lib.rs"}
	for _, f := range grow {
		changed = append(changed, f)
		next := mustCompute(t, g, changed, nil, nil)
		if !containsAll(next.AffectedLibraryMembers, prev.AffectedLibraryMembers) {
			t.Fatalf("adding %q removed members: %v -> %v", f, prev.AffectedLibraryMembers, next.AffectedLibraryMembers)
		}
		prev = next
	}
}

func TestCompute_ListsSortedAndUnique(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"lib-utils/src/lib.rs", "lib-standalone/src/lib.rs"}, nil, nil)

	for _, list := range [][]string{res.ChangedCrates, res.AffectedLibraryMembers, res.AffectedBinaryMembers} {
		for i := 1; i < len(list); i++ {
			if list[i-1] >= list[i] {
				t.Errorf("list not sorted/unique at %d: %v", i, list)
			}
		}
	}
}

func TestCompute_RootPackageOwnsEverything(t *testing.T) {
	g := graph.New()
	g.AddPackage(graph.Package{ID: "id-root", Name: "root-crate", Dir: "", Kinds: []graph.TargetKind{graph.KindLibrary}})
	g.MarkMember("id-root")

	res := mustCompute(t, g, []string{"src/lib.rs"}, nil, nil)
	if !reflect.DeepEqual(res.ChangedCrates, []string{"root-crate"}) {
		t.Errorf("root package must own every relative path, got %v", res.ChangedCrates)
	}
}

func TestCompute_AbsolutePathNeverMatchesRelativeDir(t *testing.T) {
	res := mustCompute(t, testGraph(), []string{"/lib-utils/src/lib.rs"}, nil, nil)

	if len(res.ChangedCrates) != 0 {
		t.Errorf("absolute path must not match relative member dir, got %v", res.ChangedCrates)
	}
}

func TestExclusionRules(t *testing.T) {
	tests := []struct {
		rule string
		name string
		dir  string
		want bool
	}{
		{"tools/", "tool-alpha", "tools/tool-alpha", true},
		{"tools/", "x", "tools-other/x", false},
		{"tools/tool-alpha", "tool-alpha", "tools/tool-alpha", true},
		{"lib-core/", "lib-core-ext", "lib-core-ext", false},
		{"lib-core", "lib-core", "lib-core", true},
		{"lib-core", "lib-core-ext", "lib-core-ext", false},
		{"", "anything", "anything", false},
	}
	for _, tt := range tests {
		rules := parseExclusions([]string{tt.rule})
		if got := rules.excludes(tt.name, tt.dir); got != tt.want {
			t.Errorf("rule %q vs %s@%s = %v, want %v", tt.rule, tt.name, tt.dir, got, tt.want)
		}
	}
}

func TestPathComponents(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a/b/c", []string{"a", "b", "c"}},
		{"a//b/", []string{"a", "b"}},
		{"./a/b", []string{"a", "b"}},
		{"/a/b", []string{"/", "a", "b"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if got := pathComponents(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("pathComponents(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCompute_SeedErrorSurfaces(t *testing.T) {
	// A graph whose member list references a package that was never added
	// violates the construction contract; the closure must refuse loudly.
	g := graph.New()
	g.AddPackage(graph.Package{ID: "id-a", Name: "a", Dir: "a"})
	g.MarkMember("id-a")
	g.MarkMember("id-ghost")

	_, err := Compute(g, []string{"x"}, []string{"**"}, nil)
	if err == nil {
		t.Fatal("expected seed error for ghost member")
	}
	if !errors.Is(err, graph.ErrSeedNotFound) {
		t.Errorf("expected ErrSeedNotFound, got %v", err)
	}
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]bool, len(haystack))
	for _, h := range haystack {
		set[h] = true
	}
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}
