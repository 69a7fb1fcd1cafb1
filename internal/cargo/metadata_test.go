package cargo

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RobertRautenbach/rust-affected/internal/graph"
)

func loadFixture(t *testing.T) *graph.Graph {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "metadata.json"))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	g, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return g
}

func TestParse_Fixture(t *testing.T) {
	g := loadFixture(t)

	if g.PackageCount() != 9 {
		t.Errorf("Expected 9 packages, got %d", g.PackageCount())
	}
	if g.MemberCount() != 8 {
		t.Errorf("Expected 8 workspace members, got %d", g.MemberCount())
	}
	if g.IsMember("registry+https://github.com/rust-lang/crates.io-index#serde@1.0.203") {
		t.Error("registry package must not be a workspace member")
	}

	tool, ok := g.Package("path+file:///ws/tools/tool-alpha#0.1.0")
	if !ok {
		t.Fatal("tool-alpha missing from graph")
	}
	if tool.Dir != "tools/tool-alpha" {
		t.Errorf("Expected dir tools/tool-alpha, got %q", tool.Dir)
	}
	if !tool.HasKind(graph.KindBinary) {
		t.Error("tool-alpha should expose a binary target")
	}
}

func TestParse_TargetKinds(t *testing.T) {
	g := loadFixture(t)

	libWithTests, ok := g.Package("path+file:///ws/lib-with-tests#0.1.0")
	if !ok {
		t.Fatal("lib-with-tests missing from graph")
	}
	if libWithTests.HasKind(graph.KindBinary) {
		t.Error("a test target must not count as a binary")
	}
	if !libWithTests.HasKind(graph.KindLibrary) {
		t.Error("lib-with-tests should expose a library target")
	}
	if !libWithTests.HasKind(graph.KindOther) {
		t.Error("the integration-test target should map to the other kind")
	}
}

func TestParse_DependencyEdges(t *testing.T) {
	g := loadFixture(t)

	got, err := g.ReverseClosure([]string{"path+file:///ws/lib-utils#0.1.0"})
	if err != nil {
		t.Fatalf("ReverseClosure failed: %v", err)
	}
	want := []string{
		"path+file:///ws/app-alpha#0.1.0",
		"path+file:///ws/app-beta#0.1.0",
		"path+file:///ws/lib-core#0.1.0",
		"path+file:///ws/lib-core-ext#0.1.0",
		"path+file:///ws/lib-utils#0.1.0",
		"path+file:///ws/tools/tool-alpha#0.1.0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	if _, err := Parse([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParse_MissingResolve(t *testing.T) {
	data := []byte(`{"packages": [], "workspace_members": [], "workspace_root": "/ws"}`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error when resolve graph is absent")
	}
}

func TestRelativeDir(t *testing.T) {
	tests := []struct {
		root     string
		manifest string
		want     string
	}{
		{"/ws", "/ws/lib-core/Cargo.toml", "lib-core"},
		{"/ws", "/ws/tools/tool-alpha/Cargo.toml", "tools/tool-alpha"},
		{"/ws", "/ws/Cargo.toml", ""},
		{"/ws", "/home/ci/.cargo/registry/serde-1.0.203/Cargo.toml", "/home/ci/.cargo/registry/serde-1.0.203"},
	}
	for _, tt := range tests {
		if got := relativeDir(tt.root, tt.manifest); got != tt.want {
			t.Errorf("relativeDir(%q, %q) = %q, want %q", tt.root, tt.manifest, got, tt.want)
		}
	}
}

func TestTargetKinds_Dedup(t *testing.T) {
	kinds := targetKinds([]Target{
		{Kind: []string{"lib"}},
		{Kind: []string{"proc-macro"}},
		{Kind: []string{"bin"}},
		{Kind: []string{"bin"}},
	})
	want := []graph.TargetKind{graph.KindLibrary, graph.KindBinary}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("Expected %v, got %v", want, kinds)
	}
}
