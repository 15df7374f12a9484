// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/treesync/lib/compression"
	"github.com/bureau-foundation/treesync/lib/contenthash"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "TREESYNC_CONFIG"

// Config is the complete treesync configuration.
type Config struct {
	// Repository locates the source-side repository.
	Repository RepositoryConfig `yaml:"repository"`

	// Store configures the local store of reconstructed files.
	Store StoreConfig `yaml:"store"`

	// Deploy configures where trees are materialized.
	Deploy DeployConfig `yaml:"deploy"`

	// Format fixes the hash and compression kinds of a repository.
	Format FormatConfig `yaml:"format"`

	// Transfer tunes downloads.
	Transfer TransferConfig `yaml:"transfer"`

	// Log configures diagnostic output.
	Log LogConfig `yaml:"log"`
}

// RepositoryConfig locates a repository.
type RepositoryConfig struct {
	// Path is the repository directory, used when creating content.
	Path string `yaml:"path"`

	// URL is the HTTP base URL the repository is served from, used
	// when downloading.
	URL string `yaml:"url" validate:"omitempty,url"`
}

// StoreConfig configures the local store.
type StoreConfig struct {
	// Path is the directory receiving reconstructed files.
	Path string `yaml:"path"`
}

// DeployConfig configures deployment.
type DeployConfig struct {
	// Path is the directory a tree is deployed into.
	Path string `yaml:"path"`
}

// FormatConfig selects how repository content is addressed and stored.
type FormatConfig struct {
	// Hash is the content hash: blake3 (default) or xxh3.
	Hash string `yaml:"hash" validate:"oneof=blake3 xxh3"`

	// Compression is the chunk compression: zstd (default), xz, lz4,
	// or none.
	Compression string `yaml:"compression" validate:"oneof=zstd xz lz4 none"`

	// AllowWeakHash must be true to use xxh3. xxh3 is fast but not
	// collision resistant, and is only suitable when every party
	// writing to the repository is trusted.
	AllowWeakHash bool `yaml:"allow_weak_hash"`
}

// TransferConfig tunes downloads.
type TransferConfig struct {
	// Concurrency is how many files are downloaded at once.
	Concurrency int `yaml:"concurrency" validate:"min=1,max=256"`

	// Timeout bounds each HTTP request. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the default configuration. Paths are empty: they
// come from the config file or command-line flags.
func Default() *Config {
	return &Config{
		Format: FormatConfig{
			Hash:        "blake3",
			Compression: "zstd",
		},
		Transfer: TransferConfig{
			Concurrency: 4,
			Timeout:     10 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by TREESYNC_CONFIG.
// It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your treesync.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Values
// absent from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Repository.Path = expandVars(c.Repository.Path, vars)
	c.Repository.URL = expandVars(c.Repository.URL, vars)
	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Deploy.Path = expandVars(c.Deploy.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
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

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var validate = validator.New()

// Validate checks the configuration for errors. All problems are
// reported together. Format and log level names are first rewritten to
// their canonical form, so any spelling the format parsers accept
// ("XXH3", "xxh3_64", "ZSTD") validates.
func (c *Config) Validate() error {
	c.canonicalize()

	var errs []error

	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		for _, fieldErr := range validationErrs {
			errs = append(errs, fmt.Errorf("%s: failed %q constraint (value: %v)",
				yamlPath(fieldErr.Namespace()), fieldErr.Tag(), fieldErr.Value()))
		}
	}

	if c.Format.Hash == "xxh3" && !c.Format.AllowWeakHash {
		errs = append(errs, fmt.Errorf("format.hash: xxh3 is not collision resistant; " +
			"set format.allow_weak_hash: true to use it"))
	}

	return errors.Join(errs...)
}

// canonicalize rewrites names the kind parsers recognize to the
// kinds' own names. Unrecognized names are left for validation to
// report.
func (c *Config) canonicalize() {
	if kind, err := contenthash.ParseKind(c.Format.Hash); err == nil {
		c.Format.Hash = kind.String()
	}
	if kind, err := compression.ParseKind(c.Format.Compression); err == nil {
		c.Format.Compression = kind.String()
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
}

// SlogLevel returns the configured log level. Validate guarantees the
// level is one of the accepted names.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// yamlFields maps validator struct namespaces to config file keys.
var yamlFields = map[string]string{
	"Config.Repository.URL":       "repository.url",
	"Config.Format.Hash":          "format.hash",
	"Config.Format.Compression":   "format.compression",
	"Config.Transfer.Concurrency": "transfer.concurrency",
	"Config.Transfer.Timeout":     "transfer.timeout",
	"Config.Log.Level":            "log.level",
}

func yamlPath(namespace string) string {
	if path, ok := yamlFields[namespace]; ok {
		return path
	}
	return namespace
}
