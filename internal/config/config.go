package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"bookkeeper/internal/core"
)

// Backend names accepted in BOOKKEEPER_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Logging
	LogLevel string

	// Budget refresher
	RefreshInterval time.Duration
	MetricsFile     string

	// Categories
	RootCategory string

	// Default budget limits, applied only when a period has none yet
	DayLimit   int64
	WeekLimit  int64
	MonthLimit int64
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("BOOKKEEPER_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("BOOKKEEPER_DB_PATH", "./data/bookkeeper.db"),

		LogLevel: getEnv("BOOKKEEPER_LOG_LEVEL", "info"),

		RefreshInterval: getEnvDuration("BOOKKEEPER_REFRESH_INTERVAL", 30*time.Second),
		MetricsFile:     getEnv("BOOKKEEPER_METRICS_FILE", ""),

		RootCategory: getEnv("BOOKKEEPER_ROOT_CATEGORY", core.DefaultRootCategory),

		DayLimit:   getEnvInt64("BOOKKEEPER_DAY_LIMIT", 1000),
		WeekLimit:  getEnvInt64("BOOKKEEPER_WEEK_LIMIT", 7000),
		MonthLimit: getEnvInt64("BOOKKEEPER_MONTH_LIMIT", 30000),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if c.SQLiteDBPath != ":memory:" {
			dir := filepath.Dir(c.SQLiteDBPath)
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				errors = append(errors, fmt.Sprintf("SQLite database directory '%s' is not a directory", dir))
			}
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	// The node exporter textfile collector only reads *.prom files
	if c.MetricsFile != "" && filepath.Ext(c.MetricsFile) != ".prom" {
		errors = append(errors, fmt.Sprintf("invalid metrics file '%s': must end in .prom", c.MetricsFile))
	}

	if core.NormalizeName(c.RootCategory) == "" {
		errors = append(errors, "root category name cannot be empty")
	}

	for name, limit := range map[string]int64{"day": c.DayLimit, "week": c.WeekLimit, "month": c.MonthLimit} {
		if limit < 0 {
			errors = append(errors, fmt.Sprintf("invalid %s limit %d: must not be negative", name, limit))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DefaultLimits maps period lengths to the configured default limits.
func (c *Config) DefaultLimits() map[int]int64 {
	return map[int]int64{
		core.PeriodDay:   c.DayLimit,
		core.PeriodWeek:  c.WeekLimit,
		core.PeriodMonth: c.MonthLimit,
	}
}

// ParseLevel maps debug, info, warn or error onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
