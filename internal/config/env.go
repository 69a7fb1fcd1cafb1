// # internal/config/env.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: RUST_AFFECTED_[SECTION]_[KEY].
//
// FORCE_TRIGGERS and EXCLUDED_MEMBERS are not handled here; those are
// per-run inputs that union with the config lists inside the app.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Workspace.Root, "RUST_AFFECTED_WORKSPACE_ROOT")
	setEnvBool(&cfg.Workspace.Locked, "RUST_AFFECTED_WORKSPACE_LOCKED")

	setEnvString(&cfg.Detection.Base, "RUST_AFFECTED_DETECTION_BASE")
	setEnvString(&cfg.Detection.Head, "RUST_AFFECTED_DETECTION_HEAD")

	setEnvString(&cfg.Output.Format, "RUST_AFFECTED_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Field, "RUST_AFFECTED_OUTPUT_FIELD")
	setEnvString(&cfg.Output.Path, "RUST_AFFECTED_OUTPUT_PATH")
	setEnvString(&cfg.Output.DOT, "RUST_AFFECTED_OUTPUT_DOT")

	setEnvDuration(&cfg.Watch.Debounce, "RUST_AFFECTED_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.ReloadRate, "RUST_AFFECTED_WATCH_RELOAD_RATE")
	setEnvInt(&cfg.Watch.ReloadBurst, "RUST_AFFECTED_WATCH_RELOAD_BURST")

	setEnvBool(&cfg.History.Enabled, "RUST_AFFECTED_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "RUST_AFFECTED_HISTORY_PATH")
	setEnvInt(&cfg.History.Keep, "RUST_AFFECTED_HISTORY_KEEP")

	setEnvBool(&cfg.Observability.Enabled, "RUST_AFFECTED_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Addr, "RUST_AFFECTED_OBSERVABILITY_ADDR")

	setEnvString(&cfg.Logging.Level, "RUST_AFFECTED_LOGGING_LEVEL")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
