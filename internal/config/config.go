// Package config handles the optional oqlc.toml configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the configuration file looked up in the working directory
// when no explicit path is given.
const DefaultFile = "oqlc.toml"

// Config represents the compiler configuration.
type Config struct {
	// Schema is the directory holding the CUE mapping schema. A relative
	// path is resolved against the directory of the configuration file.
	Schema string `toml:"schema"`

	// Dialect selects the SQL dialect: "sqlite" (default) or "ansi".
	Dialect string `toml:"dialect"`

	// LogLevel is one of debug, info, warn, error. Default: warn.
	LogLevel string `toml:"log_level"`

	// Check configures the SQLite database used by the check command.
	Check CheckConfig `toml:"check"`
}

// CheckConfig configures prepare-only validation.
type CheckConfig struct {
	// Database is a SQLite file path. Empty means an in-memory database.
	Database string `toml:"database"`
}

// Load loads the configuration from path, or from DefaultFile in the
// working directory when path is empty. A missing default file yields the
// default configuration; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); os.IsNotExist(err) {
			return &Config{}, nil
		}
		path = DefaultFile
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from a specific path. Unknown keys are
// rejected.
func LoadFrom(path string) (*Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	dir := filepath.Dir(path)
	if config.Schema != "" && !filepath.IsAbs(config.Schema) {
		config.Schema = filepath.Join(dir, config.Schema)
	}
	if config.Check.Database != "" && !filepath.IsAbs(config.Check.Database) {
		config.Check.Database = filepath.Join(dir, config.Check.Database)
	}
	return &config, nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
}
