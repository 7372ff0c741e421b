// Package config provides configuration loading and structs for kotae.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Ranking RankingConfig `yaml:"ranking"`
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
	Watch   WatchConfig   `yaml:"watch"`
}

// CorpusConfig controls which files are loaded and how.
type CorpusConfig struct {
	// Extensions limits loading to these file extensions. An explicit empty list loads every file.
	Extensions       []string `yaml:"extensions"`
	MaxParallelReads int      `yaml:"max_parallel_reads"`
	// Strict fails loading on the first unreadable document instead of skipping it.
	Strict bool `yaml:"strict"`
}

// RankingConfig holds the per-stage result counts.
type RankingConfig struct {
	FileMatches     int `yaml:"file_matches"`
	SentenceMatches int `yaml:"sentence_matches"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string  `yaml:"host"`
	Port              int     `yaml:"port"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HistoryConfig holds the answer journal location. An empty path disables it.
type HistoryConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// Enabled reports whether answers should be recorded.
func (h HistoryConfig) Enabled() bool {
	return h.DatabasePath != ""
}

// WatchConfig holds corpus watch settings.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

// Debounce returns the debounce interval as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if cfg.History.DatabasePath != "" {
		cfg.History.DatabasePath = expandPath(cfg.History.DatabasePath, filepath.Dir(path))
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		ApplyDefaults(cfg)
		return cfg, nil
	}
	return cfg, err
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
