// # cmd/rust-affected/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/RobertRautenbach/rust-affected/internal/changeset"
	"github.com/RobertRautenbach/rust-affected/internal/config"
)

var (
	configPath    = flag.String("config", config.DefaultPath, "Path to config file")
	workspaceRoot = flag.String("workspace", "", "Cargo workspace root (overrides config)")
	changedList   = flag.String("changed-files", "", "Whitespace-separated changed paths (skips env and git detection)")
	baseRef       = flag.String("base", "", "Git base ref for change detection")
	headRef       = flag.String("head", "", "Git head ref for change detection")
	outFormat     = flag.String("format", "", "Output format: auto, github, json, lines, tsv")
	outField      = flag.String("field", "", "List printed by the lines format: changed, library, binary")
	outPath       = flag.String("output", "", "Write formatted output to a file instead of GITHUB_OUTPUT/stdout")
	dotPath       = flag.String("dot", "", "Write a DOT graph with the affected set highlighted")
	watchMode     = flag.Bool("watch", false, "Recompute the affected set when workspace files change")
	noUI          = flag.Bool("no-ui", false, "Disable the terminal UI in watch mode")
	runsN         = flag.Int("runs", 0, "Print the N most recent runs from history and exit")
	trendWindow   = flag.Duration("trends", 0, "Print a trend report over history using this window (e.g. 168h) and exit")
	locked        = flag.Bool("locked", false, "Pass --locked to cargo metadata")
	verbose       = flag.Bool("verbose", false, "Enable verbose logging")
	version       = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("rust-affected v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging. Stdout carries the result, so logs go to stderr, or to
	// a state file in UI mode where stderr would corrupt the TUI.
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	if *watchMode && !*noUI {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config. The default path is optional; an explicit one is not.
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && *configPath == config.DefaultPath {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	config.ApplyEnvOverrides(cfg)
	applyFlagOverrides(cfg)

	if !*verbose {
		if level := parseLogLevel(cfg.Logging.Level); level != logLevel {
			slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
				Level: level,
			})))
		}
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *runsN > 0 {
		if err := app.PrintRecentRuns(os.Stdout, *runsN); err != nil {
			slog.Error("failed to print run history", "error", err)
			os.Exit(1)
		}
		return
	}
	if *trendWindow > 0 {
		if err := app.PrintTrendReport(os.Stdout, *trendWindow); err != nil {
			slog.Error("failed to print trend report", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	if err := app.LoadGraph(ctx); err != nil {
		slog.Error("failed to load workspace graph", "error", err)
		os.Exit(1)
	}

	if !*watchMode {
		if _, err := app.RunOnce(ctx, changedOverride()); err != nil {
			slog.Error("affected computation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Watch mode
	if cfg.Observability.Enabled {
		if err := app.StartObservability(ctx); err != nil {
			slog.Warn("failed to start observability server", "error", err)
		}
	}
	if err := app.StartWatcher(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *noUI {
		// Block forever
		select {}
	}

	if err := app.RunUI(); err != nil {
		slog.Error("failed to run UI", "error", err)
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg *config.Config) {
	if *workspaceRoot != "" {
		cfg.Workspace.Root = *workspaceRoot
	}
	if flag.NArg() > 0 {
		cfg.Workspace.Root = flag.Arg(0)
	}
	if *locked {
		cfg.Workspace.Locked = true
	}
	if *baseRef != "" {
		cfg.Detection.Base = *baseRef
	}
	if *headRef != "" {
		cfg.Detection.Head = *headRef
	}
	if *outFormat != "" {
		cfg.Output.Format = *outFormat
	}
	if *outField != "" {
		cfg.Output.Field = *outField
	}
	if *outPath != "" {
		cfg.Output.Path = *outPath
	}
	if *dotPath != "" {
		cfg.Output.DOT = *dotPath
	}
}

// changedOverride returns the -changed-files flag as a path list, or nil when
// the flag was not given so detection falls through to env and git.
func changedOverride() []string {
	if *changedList == "" {
		return nil
	}
	return changeset.Split(*changedList)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "rust-affected", "rust-affected.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "rust-affected", "rust-affected.log")
	}

	return "rust-affected.log"
}
