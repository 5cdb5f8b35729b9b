// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/fluxkit/lib/vfo"
)

// Config is the complete fluxkit configuration tree. Every field has
// a working default; a config file only overrides what it names.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Decode   DecodeConfig   `yaml:"decode"`
}

// PathsConfig locates fluxkit's on-disk state.
type PathsConfig struct {
	// Root anchors the default locations of everything else. Other
	// paths may reference it as ${FLUXKIT_ROOT}.
	Root string `yaml:"root"`

	// Captures is where capture containers land by default.
	Captures string `yaml:"captures"`

	// Profiles is an optional JSONC file of platform profile
	// overrides, loaded on top of the builtin set. Empty means
	// builtins only.
	Profiles string `yaml:"profiles"`
}

// CatalogConfig configures the SQLite capture catalog.
type CatalogConfig struct {
	// Path is the database file, created on first use.
	Path string `yaml:"path"`

	// PoolSize is the connection pool size. Zero picks the catalog
	// package's default.
	PoolSize int `yaml:"pool_size"`
}

// AnalysisConfig sets protection analysis defaults. Zero values defer
// to the protection package's own defaults.
type AnalysisConfig struct {
	// Workers caps concurrent track analysis in image batch runs.
	Workers int `yaml:"workers"`

	// WeakBitThreshold is the cross-revolution disagreement ratio
	// above which a bit counts as weak, 0..1.
	WeakBitThreshold float64 `yaml:"weak_bit_threshold"`

	// TimingTolerancePct is the track length deviation tolerated
	// before a length anomaly is flagged, in percent.
	TimingTolerancePct float64 `yaml:"timing_tolerance_pct"`
}

// DecodeConfig sets clock recovery defaults for the decode command.
type DecodeConfig struct {
	// Algorithm names the VFO tracking algorithm.
	Algorithm string `yaml:"algorithm"`

	// SyncThreshold is the consecutive valid pulse count that locks
	// the VFO.
	SyncThreshold int `yaml:"sync_threshold"`

	// Fluctuation adds deterministic cell jitter for protection
	// schemes that measure it, 0..0.5.
	Fluctuation float64 `yaml:"fluctuation"`
}

// Default returns the default configuration. The defaults are a
// complete working setup; a config file is optional.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "fluxkit")

	return &Config{
		Paths: PathsConfig{
			Root:     defaultRoot,
			Captures: filepath.Join(defaultRoot, "captures"),
			Profiles: "",
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(defaultRoot, "catalog.db"),
		},
		Analysis: AnalysisConfig{
			Workers: 0, // protection package picks CPU count
		},
		Decode: DecodeConfig{
			Algorithm:     "pid2",
			SyncThreshold: vfo.DefaultSyncThreshold,
		},
	}
}

// Load resolves the configuration for a CLI invocation. The
// FLUXKIT_CONFIG environment variable names an explicit file and must
// exist when set; otherwise ~/.config/fluxkit/fluxkit.yaml is loaded
// when present, and pure defaults apply when it is not.
func Load() (*Config, error) {
	if path := os.Getenv("FLUXKIT_CONFIG"); path != "" {
		return LoadFile(path)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Default(), nil
	}
	path := filepath.Join(homeDir, ".config", "fluxkit", "fluxkit.yaml")
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// Active returns the loaded configuration, falling back to defaults
// when loading fails. Commands use it for flag defaults; anything
// that must surface configuration errors calls Load directly.
func Active() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile overlays the YAML file at path onto the defaults, expands
// path variables, and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// path fields. ${FLUXKIT_ROOT} resolves to paths.root, so a file can
// relocate the whole tree by overriding one value.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"FLUXKIT_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["FLUXKIT_ROOT"] = c.Paths.Root // update for dependent paths

	c.Paths.Captures = expandVars(c.Paths.Captures, vars)
	c.Paths.Profiles = expandVars(c.Paths.Profiles, vars)
	c.Catalog.Path = expandVars(c.Catalog.Path, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars win over the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration, aggregating every failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Catalog.Path == "" {
		errs = append(errs, fmt.Errorf("catalog.path is required"))
	}
	if c.Catalog.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("catalog.pool_size must not be negative"))
	}

	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must not be negative"))
	}
	if c.Analysis.WeakBitThreshold < 0 || c.Analysis.WeakBitThreshold > 1 {
		errs = append(errs, fmt.Errorf("analysis.weak_bit_threshold must be within 0..1, got %v", c.Analysis.WeakBitThreshold))
	}
	if c.Analysis.TimingTolerancePct < 0 || c.Analysis.TimingTolerancePct > 100 {
		errs = append(errs, fmt.Errorf("analysis.timing_tolerance_pct must be within 0..100, got %v", c.Analysis.TimingTolerancePct))
	}

	if !contains(vfo.AlgorithmNames(), c.Decode.Algorithm) {
		errs = append(errs, fmt.Errorf("decode.algorithm must be one of: %v", vfo.AlgorithmNames()))
	}
	if c.Decode.SyncThreshold < 1 {
		errs = append(errs, fmt.Errorf("decode.sync_threshold must be at least 1"))
	}
	if c.Decode.Fluctuation < 0 || c.Decode.Fluctuation > 0.5 {
		errs = append(errs, fmt.Errorf("decode.fluctuation must be within 0..0.5, got %v", c.Decode.Fluctuation))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
