// # cmd/rust-affected/app.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RobertRautenbach/rust-affected/internal/affected"
	"github.com/RobertRautenbach/rust-affected/internal/cargo"
	"github.com/RobertRautenbach/rust-affected/internal/changeset"
	"github.com/RobertRautenbach/rust-affected/internal/config"
	"github.com/RobertRautenbach/rust-affected/internal/graph"
	"github.com/RobertRautenbach/rust-affected/internal/history"
	"github.com/RobertRautenbach/rust-affected/internal/observability"
	"github.com/RobertRautenbach/rust-affected/internal/output"
	"github.com/RobertRautenbach/rust-affected/internal/util"
	"github.com/RobertRautenbach/rust-affected/internal/watcher"
)

type App struct {
	Config        *config.Config
	store         *history.Store
	obs           *observability.Server
	teaProgram    *tea.Program
	reloadLimiter *util.Limiter

	mu    sync.RWMutex
	graph *graph.Graph
}

func NewApp(cfg *config.Config) (*App, error) {
	root, err := filepath.Abs(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root %q: %w", cfg.Workspace.Root, err)
	}
	cfg.Workspace.Root = root

	a := &App{
		Config:        cfg,
		reloadLimiter: util.NewLimiter(cfg.Watch.ReloadRate, cfg.Watch.ReloadBurst),
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			if history.IsCorruptError(err) {
				slog.Warn("history database is corrupt, continuing without history", "path", cfg.History.Path, "error", err)
			} else {
				slog.Warn("failed to open history, continuing without it", "path", cfg.History.Path, "error", err)
			}
		} else {
			a.store = store
		}
	}

	return a, nil
}

func (a *App) Close() {
	if a.obs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.obs.Stop(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// LoadGraph runs cargo metadata and swaps in the fresh dependency graph.
func (a *App) LoadGraph(ctx context.Context) error {
	start := time.Now()
	g, err := cargo.Load(ctx, a.Config.Workspace.Root, a.Config.Workspace.Locked)
	if err != nil {
		return err
	}
	duration := time.Since(start)

	observability.GraphLoadDuration.Observe(duration.Seconds())
	observability.GraphPackages.Set(float64(g.PackageCount()))
	observability.GraphMembers.Set(float64(g.MemberCount()))

	a.mu.Lock()
	a.graph = g
	a.mu.Unlock()

	slog.Info("workspace graph loaded",
		"packages", g.PackageCount(),
		"members", g.MemberCount(),
		"duration", duration)
	return nil
}

func (a *App) Graph() *graph.Graph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph
}

// ResolveChangedFiles picks the change source: an explicit override, the
// CHANGED_FILES environment variable (set-but-empty still counts), then a
// git diff between the configured refs.
func (a *App) ResolveChangedFiles(ctx context.Context, override []string) ([]string, string, error) {
	if override != nil {
		return override, "flag", nil
	}
	if files, ok := changeset.FromEnvironment(); ok {
		return files, "env", nil
	}
	files, err := changeset.FromGit(ctx, a.Config.Workspace.Root, a.Config.Detection.Base, a.Config.Detection.Head)
	if err != nil {
		return nil, "", err
	}
	return files, "git", nil
}

func (a *App) forceTriggers() []string {
	return append(append([]string{}, a.Config.Triggers.Force...), changeset.TriggersFromEnvironment()...)
}

func (a *App) exclusions() []string {
	return append(append([]string{}, a.Config.Exclusions.Members...), changeset.ExclusionsFromEnvironment()...)
}

// RunOnce resolves changed files, computes the affected set, emits the
// configured output and records the run.
func (a *App) RunOnce(ctx context.Context, override []string) (affected.Result, error) {
	files, source, err := a.ResolveChangedFiles(ctx, override)
	if err != nil {
		return affected.Result{}, err
	}

	res, duration, err := a.compute(files, "cli", source)
	if err != nil {
		return affected.Result{}, err
	}

	if err := a.Emit(res); err != nil {
		return affected.Result{}, err
	}
	if err := a.WriteDOT(res); err != nil {
		slog.Error("failed to write dot graph", "error", err)
	}
	a.recordRun(res, len(files), duration)

	return res, nil
}

func (a *App) compute(files []string, trigger, source string) (affected.Result, time.Duration, error) {
	start := time.Now()
	res, err := affected.Compute(a.Graph(), files, a.forceTriggers(), a.exclusions())
	if err != nil {
		return affected.Result{}, 0, err
	}
	duration := time.Since(start)

	observability.RunsTotal.WithLabelValues(trigger).Inc()
	observability.RunDuration.Observe(duration.Seconds())
	observability.LastChangedCrates.Set(float64(len(res.ChangedCrates)))
	observability.LastAffectedMembers.Set(float64(len(res.AffectedLibraryMembers)))

	slog.Info("affected set computed",
		"source", source,
		"changed_files", len(files),
		"changed_crates", len(res.ChangedCrates),
		"affected_members", len(res.AffectedLibraryMembers),
		"binary_members", len(res.AffectedBinaryMembers),
		"force_all", res.ForceAll,
		"duration", duration)

	return res, duration, nil
}

// Emit writes the result in the configured format. "auto" resolves to github
// inside GitHub Actions and json everywhere else.
func (a *App) Emit(res affected.Result) error {
	format := a.Config.Output.Format
	if format == "" || format == "auto" {
		if os.Getenv("GITHUB_OUTPUT") != "" {
			format = "github"
		} else {
			format = "json"
		}
	}

	if format == "github" {
		path := a.Config.Output.Path
		if path == "" {
			path = os.Getenv("GITHUB_OUTPUT")
		}
		if path == "" {
			return fmt.Errorf("github output requires GITHUB_OUTPUT or output.path")
		}
		return output.AppendGitHubOutput(path, res)
	}

	w := io.Writer(os.Stdout)
	if a.Config.Output.Path != "" {
		f, err := os.Create(a.Config.Output.Path)
		if err != nil {
			return fmt.Errorf("create output file %q: %w", a.Config.Output.Path, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return output.WriteJSON(w, res)
	case "lines":
		return output.WriteLines(w, res, output.Field(a.Config.Output.Field))
	case "tsv":
		text, err := output.NewTSVGenerator(res).Generate()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (a *App) WriteDOT(res affected.Result) error {
	if a.Config.Output.DOT == "" {
		return nil
	}
	dot, err := output.NewDOTGenerator(a.Graph()).Generate(res)
	if err != nil {
		return err
	}
	return os.WriteFile(a.Config.Output.DOT, []byte(dot), 0644)
}

func (a *App) recordRun(res affected.Result, changedFileCount int, duration time.Duration) {
	if a.store == nil {
		return
	}

	run := history.Run{
		Timestamp:              time.Now().UTC(),
		WorkspaceRoot:          a.Config.Workspace.Root,
		Base:                   a.Config.Detection.Base,
		Head:                   a.Config.Detection.Head,
		CommitHash:             history.ResolveCommit(a.Config.Workspace.Root, a.Config.Detection.Head),
		ChangedFileCount:       changedFileCount,
		ForceAll:               res.ForceAll,
		ChangedCrates:          res.ChangedCrates,
		AffectedLibraryMembers: res.AffectedLibraryMembers,
		AffectedBinaryMembers:  res.AffectedBinaryMembers,
		Duration:               duration,
	}
	if err := a.store.SaveRun(run); err != nil {
		slog.Warn("failed to record run", "error", err)
		return
	}
	if a.Config.History.Keep > 0 {
		if _, err := a.store.Prune(a.Config.History.Keep); err != nil {
			slog.Warn("failed to prune history", "error", err)
		}
	}
}

func (a *App) PrintRecentRuns(w io.Writer, n int) error {
	if a.store == nil {
		return fmt.Errorf("history is disabled; enable [history] in %s", config.DefaultPath)
	}
	runs, err := a.store.RecentRuns(a.Config.Workspace.Root, n)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

func (a *App) PrintTrendReport(w io.Writer, window time.Duration) error {
	if a.store == nil {
		return fmt.Errorf("history is disabled; enable [history] in %s", config.DefaultPath)
	}
	runs, err := a.store.RunsSince(a.Config.Workspace.Root, time.Time{})
	if err != nil {
		return err
	}
	report, err := history.BuildTrendReport(runs, window)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (a *App) StartObservability(ctx context.Context) error {
	a.obs = observability.NewServer(a.Config.Observability.Addr, a)
	return a.obs.Start(ctx)
}

// Check implements observability.HealthChecker.
func (a *App) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if g := a.Graph(); g == nil {
		status.Status = "degraded"
		status.Components["graph"] = "missing"
	} else {
		status.Components["graph"] = fmt.Sprintf("ok (%d packages, %d members)", g.PackageCount(), g.MemberCount())
	}

	if a.store != nil {
		status.Components["history"] = "ok"
	} else if a.Config.History.Enabled {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	}

	return status
}

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Watch.ExcludeDirs,
		a.Config.Watch.ExcludeFiles,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	w.SetFileFilters(a.Config.Watch.Extensions, []string{"Cargo.lock"})
	// Note: We don't close here, it should run forever
	return w.Watch([]string{a.Config.Workspace.Root})
}

func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))

	a.maybeReloadGraph(paths)

	files := a.workspaceRelative(paths)
	if len(files) == 0 {
		return
	}

	res, duration, err := a.compute(files, "watch", "watcher")
	if err != nil {
		slog.Error("affected computation failed", "error", err)
		return
	}

	if a.Config.Output.Path != "" {
		if err := a.Emit(res); err != nil {
			slog.Error("failed to refresh output file", "error", err)
		}
	}
	if err := a.WriteDOT(res); err != nil {
		slog.Error("failed to write dot graph", "error", err)
	}
	a.recordRun(res, len(files), duration)

	if a.teaProgram != nil {
		g := a.Graph()
		a.teaProgram.Send(updateMsg{
			result:       res,
			packageCount: g.PackageCount(),
			memberCount:  g.MemberCount(),
		})
		return
	}

	a.printSummary(res, len(files), duration)
}

// maybeReloadGraph refreshes the graph when a manifest or lockfile changed.
// Reloads shell out to cargo, so they go through the rate limiter.
func (a *App) maybeReloadGraph(paths []string) {
	if !manifestChanged(paths) {
		return
	}
	if !a.reloadLimiter.Allow(1) {
		slog.Debug("graph reload suppressed by rate limit")
		return
	}
	observability.GraphReloadsTotal.Inc()
	if err := a.LoadGraph(context.Background()); err != nil {
		slog.Error("graph reload failed, keeping previous graph", "error", err)
	}
}

func manifestChanged(paths []string) bool {
	for _, p := range paths {
		switch filepath.Base(p) {
		case "Cargo.toml", "Cargo.lock":
			return true
		}
	}
	return false
}

// workspaceRelative maps watcher paths onto workspace-relative slash paths,
// dropping anything outside the workspace root.
func (a *App) workspaceRelative(paths []string) []string {
	root := a.Config.Workspace.Root
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		files = append(files, filepath.ToSlash(rel))
	}
	sort.Strings(files)
	return files
}

func (a *App) printSummary(res affected.Result, fileCount int, duration time.Duration) {
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Update: %d files in %v\n", fileCount, duration)

	if res.ForceAll {
		fmt.Println("⚠️  Force trigger matched: every member is affected.")
	}

	if len(res.AffectedLibraryMembers) == 0 {
		fmt.Println("✅ No workspace members affected.")
	} else {
		fmt.Printf("Changed crates (%d): %s\n", len(res.ChangedCrates), strings.Join(res.ChangedCrates, ", "))
		fmt.Printf("Affected members (%d): %s\n", len(res.AffectedLibraryMembers), strings.Join(res.AffectedLibraryMembers, ", "))
		fmt.Printf("Binary members (%d): %s\n", len(res.AffectedBinaryMembers), strings.Join(res.AffectedBinaryMembers, ", "))
	}
	fmt.Println(strings.Repeat("-", 40))
}

func (a *App) RunUI() error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	// Seed the UI with the freshly loaded graph before any change arrives.
	go func() {
		g := a.Graph()
		a.teaProgram.Send(updateMsg{
			result:       affected.Result{},
			packageCount: g.PackageCount(),
			memberCount:  g.MemberCount(),
		})
	}()

	_, err := p.Run()
	return err
}
