package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: RELINK_[SECTION]_[KEY] (e.g., RELINK_CASE_CHECK).
func ApplyEnvOverrides(cfg *Config) {
	// Project
	setEnvString(&cfg.Project.Root, "RELINK_PROJECT_ROOT")
	setEnvString(&cfg.Project.RenameMap, "RELINK_PROJECT_RENAME_MAP")
	setEnvInt(&cfg.Project.Workers, "RELINK_PROJECT_WORKERS")

	// Routes
	setEnvInt(&cfg.Routes.MaxDepth, "RELINK_ROUTES_MAX_DEPTH")

	// Case policies
	setEnvString(&cfg.Case.Resolve, "RELINK_CASE_RESOLVE")
	setEnvString(&cfg.Case.Check, "RELINK_CASE_CHECK")

	// Database
	setEnvBool(&cfg.DB.Enabled, "RELINK_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "RELINK_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "RELINK_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "RELINK_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "RELINK_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "RELINK_OBSERVABILITY_OTLP_ENDPOINT")

	normalizeProject(cfg)
	normalizeCase(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
