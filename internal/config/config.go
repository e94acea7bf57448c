package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// Driver is the database/sql driver name: "sqlserver" for the live
	// application database, "sqlite" for a local snapshot database.
	Driver string `json:"driver"`

	// DSN is the data source name passed to the driver.
	DSN string `json:"dsn"`

	// ServerName and Database identify the target for the development
	// client; both are appended to every client command line.
	ServerName string `json:"server_name"`
	Database   string `json:"database"`

	// FinSQLPath is the development client executable.
	FinSQLPath string `json:"finsql_path"`

	// WorkingCopy is the root of the exported object tree.
	WorkingCopy string `json:"working_copy"`

	// CacheFile is the cache artifact path. Empty means
	// <baseDir>/objects.json, resolved by the caller.
	CacheFile string `json:"cache_file,omitempty"`

	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string `json:"log_level,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:      "sqlite",
		FinSQLPath:  "finsql.exe",
		WorkingCopy: ".",
	}
}

// Validate checks the fields every run needs.
func (c *Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("driver must be set")
	}
	if c.ServerName == "" {
		return fmt.Errorf("server_name must be set")
	}
	if c.Database == "" {
		return fmt.Errorf("database must be set")
	}
	if c.WorkingCopy == "" {
		return fmt.Errorf("working_copy must be set")
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of
// ~/.navsync.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the global (~/.navsync)
// and repo (.navsync) directories. Repo config is found by walking
// upward from startDir; it takes precedence for scalar values, and
// arrays are merged. Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest
// .navsync/config.json. Returns the path if found, or empty string.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".navsync", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs. Overlay values take
// precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	for _, field := range []struct {
		dst           *string
		base, overlay string
	}{
		{&result.Driver, base.Driver, overlay.Driver},
		{&result.DSN, base.DSN, overlay.DSN},
		{&result.ServerName, base.ServerName, overlay.ServerName},
		{&result.Database, base.Database, overlay.Database},
		{&result.FinSQLPath, base.FinSQLPath, overlay.FinSQLPath},
		{&result.WorkingCopy, base.WorkingCopy, overlay.WorkingCopy},
		{&result.CacheFile, base.CacheFile, overlay.CacheFile},
		{&result.LogLevel, base.LogLevel, overlay.LogLevel},
	} {
		*field.dst = field.overlay
		if *field.dst == "" {
			*field.dst = field.base
		}
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes
// duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
