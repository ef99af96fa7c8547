// Package config loads the optional .sslrun YAML file and resolves which
// executable the invoker runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/sslrun/internal/invoker"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up from the working directory upward.
const FileName = ".sslrun"

// EnvBinary overrides the executable for every call that does not name one.
const EnvBinary = "OPENSSL_PATH"

// Defaults for the caller-facing surfaces.
const (
	DefaultMaxOutput = 64 << 10 // 64 KiB
	DefaultHistory   = 16
)

// Config holds the parsed .sslrun configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int       `yaml:"version"`
	Binary       string    `yaml:"binary"`     // path or name of the openssl executable
	RawTimeout   string    `yaml:"timeout"`    // e.g. "30s"; empty means no deadline
	RawMaxOutput int       `yaml:"max_output"` // bytes returned inline by the MCP server
	RawHistory   int       `yaml:"history"`    // number of runs kept in memory
	Log          LogConfig `yaml:"log"`
}

// LogConfig controls the zap logger built by the CLI.
type LogConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // console or json
}

// Timeout returns the configured per-call deadline, or 0 for none.
// Invalid durations are treated as unset.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured inline output cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// HistorySize returns the configured run-history capacity or the default.
func (c *Config) HistorySize() int {
	if c.RawHistory > 0 {
		return c.RawHistory
	}
	return DefaultHistory
}

// ResolveBinary picks the executable to run. The first non-empty value
// wins, in this order:
//
//  1. override, the explicit per-call value
//  2. the OPENSSL_PATH environment variable
//  3. binary from the .sslrun file
//  4. invoker.DefaultBinary
//
// lookupEnv is normally os.LookupEnv. cfg may be nil.
func ResolveBinary(override string, lookupEnv func(string) (string, bool), cfg *Config) string {
	if override != "" {
		return override
	}
	if lookupEnv != nil {
		if v, ok := lookupEnv(EnvBinary); ok && v != "" {
			return v
		}
	}
	if cfg != nil && cfg.Binary != "" {
		return cfg.Binary
	}
	return invoker.DefaultBinary
}

// LoadResult holds the parsed config and where it came from.
type LoadResult struct {
	Config *Config
	Path   string // empty when no file was found
}

// Load looks for a .sslrun file in dir and each of its parents. If none
// exists, a default Config is returned.
func Load(dir string) (*LoadResult, error) {
	path, err := findConfig(dir)
	if err != nil {
		return &LoadResult{Config: &Config{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

// findConfig walks upward from dir looking for FileName.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
