// # internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the tool looks for a config file when -config is
// not given. A missing default file is not an error; CI runs usually
// configure everything through the environment.
const DefaultPath = "rust-affected.toml"

type Config struct {
	Workspace     Workspace     `toml:"workspace"`
	Triggers      Triggers      `toml:"triggers"`
	Exclusions    Exclusions    `toml:"exclusions"`
	Detection     Detection     `toml:"detection"`
	Output        Output        `toml:"output"`
	Watch         Watch         `toml:"watch"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
	Logging       Logging       `toml:"logging"`
}

type Workspace struct {
	Root   string `toml:"root"`
	Locked bool   `toml:"locked"` // pass --locked to cargo metadata
}

type Triggers struct {
	Force []string `toml:"force"`
}

type Exclusions struct {
	Members []string `toml:"members"`
}

// Detection configures the git fallback used when neither -changed-files
// nor CHANGED_FILES supplies the change set.
type Detection struct {
	Base string `toml:"base"`
	Head string `toml:"head"`
}

type Output struct {
	Format string `toml:"format"` // auto, json, github, lines, tsv
	Field  string `toml:"field"`  // changed, library, binary (lines format)
	Path   string `toml:"path"`   // github output file; $GITHUB_OUTPUT when empty
	DOT    string `toml:"dot"`    // optional graph dump target
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	Extensions   []string      `toml:"extensions"`
	ExcludeDirs  []string      `toml:"exclude_dirs"`
	ExcludeFiles []string      `toml:"exclude_files"`
	ReloadRate   float64       `toml:"reload_rate"` // graph reloads per second
	ReloadBurst  int           `toml:"reload_burst"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Keep    int    `toml:"keep"` // newest rows retained; 0 keeps everything
}

type Observability struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type Logging struct {
	Level string `toml:"level"` // debug, info, warn, error
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateOutput(&cfg); err != nil {
		return nil, err
	}
	if err := validateDetection(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateHistory(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}
	if err := validateLogging(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Workspace.Root) == "" {
		cfg.Workspace.Root = "."
	}

	if strings.TrimSpace(cfg.Detection.Base) == "" {
		cfg.Detection.Base = "origin/main"
	}
	if strings.TrimSpace(cfg.Detection.Head) == "" {
		cfg.Detection.Head = "HEAD"
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "auto"
	}
	if strings.TrimSpace(cfg.Output.Field) == "" {
		cfg.Output.Field = "library"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = []string{".rs", ".toml"}
	}
	if len(cfg.Watch.ExcludeDirs) == 0 {
		cfg.Watch.ExcludeDirs = []string{"target", ".git"}
	}
	if cfg.Watch.ReloadRate == 0 {
		cfg.Watch.ReloadRate = 0.5
	}
	if cfg.Watch.ReloadBurst == 0 {
		cfg.Watch.ReloadBurst = 1
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".rust-affected/history.db"
	}
	if cfg.History.Keep == 0 {
		cfg.History.Keep = 100
	}

	if strings.TrimSpace(cfg.Observability.Addr) == "" {
		cfg.Observability.Addr = "127.0.0.1:9090"
	}

	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}

func validateOutput(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Output.Format)) {
	case "auto", "json", "github", "lines", "tsv":
	default:
		return fmt.Errorf("output.format must be one of: auto, json, github, lines, tsv; got %q", cfg.Output.Format)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Output.Field)) {
	case "changed", "library", "binary":
	default:
		return fmt.Errorf("output.field must be one of: changed, library, binary; got %q", cfg.Output.Field)
	}
	return nil
}

func validateDetection(cfg *Config) error {
	if strings.TrimSpace(cfg.Detection.Base) == "" {
		return fmt.Errorf("detection.base must not be empty")
	}
	if strings.TrimSpace(cfg.Detection.Head) == "" {
		return fmt.Errorf("detection.head must not be empty")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.ReloadRate <= 0 {
		return fmt.Errorf("watch.reload_rate must be positive, got %v", cfg.Watch.ReloadRate)
	}
	if cfg.Watch.ReloadBurst < 1 {
		return fmt.Errorf("watch.reload_burst must be >= 1, got %d", cfg.Watch.ReloadBurst)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history.enabled=true")
	}
	if cfg.History.Keep < 0 {
		return fmt.Errorf("history.keep must be >= 0, got %d", cfg.History.Keep)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Enabled && strings.TrimSpace(cfg.Observability.Addr) == "" {
		return fmt.Errorf("observability.addr must not be empty when observability.enabled=true")
	}
	return nil
}

func validateLogging(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	return nil
}
