// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/treesync/cmd/treesync/cli"
	"github.com/bureau-foundation/treesync/lib/compression"
	"github.com/bureau-foundation/treesync/lib/config"
	"github.com/bureau-foundation/treesync/lib/contenthash"
	"github.com/bureau-foundation/treesync/lib/netutil"
	"github.com/bureau-foundation/treesync/lib/repository"
)

// settings holds the flags shared by every repository command. Each
// flag overrides the matching config file key only when given on the
// command line, so config values are never clobbered by flag
// defaults.
type settings struct {
	configPath    string
	repositoryDir string
	url           string
	storeDir      string
	deployDir     string
	hash          string
	compression   string
	allowWeakHash bool
	concurrency   int
	timeout       time.Duration
	logLevel      string

	// flagSet is the set most recently built by newFlagSet, consulted
	// for which flags were explicitly given.
	flagSet *pflag.FlagSet
}

// Which location flags a command takes.
const (
	withRepository = 1 << iota
	withURL
	withStore
	withDeploy
)

// newFlagSet registers the format, transfer, and logging flags plus
// the location flags selected by locations.
func (s *settings) newFlagSet(name string, locations int) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&s.configPath, "config", "", "config file (default $"+config.EnvironmentVariable+")")
	if locations&withRepository != 0 {
		flagSet.StringVar(&s.repositoryDir, "repo", "", "repository directory (repository.path)")
	}
	if locations&withURL != 0 {
		flagSet.StringVar(&s.url, "url", "", "repository base URL (repository.url)")
	}
	if locations&withStore != 0 {
		flagSet.StringVar(&s.storeDir, "store", "", "local store directory (store.path)")
	}
	if locations&withDeploy != 0 {
		flagSet.StringVar(&s.deployDir, "dest", "", "deploy directory (deploy.path)")
	}
	flagSet.StringVar(&s.hash, "hash", "", "content hash: blake3 or xxh3 (format.hash)")
	flagSet.StringVar(&s.compression, "compression", "", "chunk compression: zstd, xz, lz4, or none (format.compression)")
	flagSet.BoolVar(&s.allowWeakHash, "allow-weak-hash", false, "permit xxh3, which is not collision resistant (format.allow_weak_hash)")
	if locations&withURL != 0 {
		flagSet.IntVar(&s.concurrency, "concurrency", 0, "files downloaded at once (transfer.concurrency)")
		flagSet.DurationVar(&s.timeout, "timeout", 0, "per-request timeout, 0 for none (transfer.timeout)")
	}
	flagSet.StringVar(&s.logLevel, "log-level", "", "debug, info, warn, or error (log.level)")
	s.flagSet = flagSet
	return flagSet
}

// changed reports whether a flag was given on the command line.
func (s *settings) changed(name string) bool {
	return s.flagSet != nil && s.flagSet.Changed(name)
}

// load reads the config file named by --config or TREESYNC_CONFIG, or
// starts from the defaults when neither is set, then applies the flags
// that were given and validates the result.
func (s *settings) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case s.configPath != "":
		cfg, err = config.LoadFile(s.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if s.changed("repo") {
		cfg.Repository.Path = s.repositoryDir
	}
	if s.changed("url") {
		cfg.Repository.URL = s.url
	}
	if s.changed("store") {
		cfg.Store.Path = s.storeDir
	}
	if s.changed("dest") {
		cfg.Deploy.Path = s.deployDir
	}
	if s.changed("hash") {
		cfg.Format.Hash = s.hash
	}
	if s.changed("compression") {
		cfg.Format.Compression = s.compression
	}
	if s.changed("allow-weak-hash") {
		cfg.Format.AllowWeakHash = s.allowWeakHash
	}
	if s.changed("concurrency") {
		cfg.Transfer.Concurrency = s.concurrency
	}
	if s.changed("timeout") {
		cfg.Transfer.Timeout = s.timeout
	}
	if s.changed("log-level") {
		cfg.Log.Level = s.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// repositoryFormat converts the validated format names.
func repositoryFormat(cfg *config.Config) (repository.Format, error) {
	hash, err := contenthash.ParseKind(cfg.Format.Hash)
	if err != nil {
		return repository.Format{}, err
	}
	kind, err := compression.ParseKind(cfg.Format.Compression)
	if err != nil {
		return repository.Format{}, err
	}
	return repository.Format{Hash: hash, Compression: kind}, nil
}

func commandLogger(cfg *config.Config, command string) *slog.Logger {
	return cli.NewCommandLogger(cfg.SlogLevel()).With("command", command)
}

// openRepository opens the write side at repository.path.
func openRepository(cfg *config.Config, logger *slog.Logger) (*repository.Repository, error) {
	if cfg.Repository.Path == "" {
		return nil, fmt.Errorf("repository directory required: pass --repo or set repository.path")
	}
	format, err := repositoryFormat(cfg)
	if err != nil {
		return nil, err
	}
	return repository.Open(cfg.Repository.Path, format, logger)
}

// newClient builds the read side from repository.url and store.path.
func newClient(cfg *config.Config, logger *slog.Logger) (*repository.Client, error) {
	if cfg.Repository.URL == "" {
		return nil, fmt.Errorf("repository URL required: pass --url or set repository.url")
	}
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("store directory required: pass --store or set store.path")
	}
	format, err := repositoryFormat(cfg)
	if err != nil {
		return nil, err
	}
	return repository.NewClient(repository.ClientConfig{
		URL:         cfg.Repository.URL,
		StorePath:   cfg.Store.Path,
		Format:      format,
		HTTPClient:  netutil.NewHTTPClient(cfg.Transfer.Concurrency, cfg.Transfer.Timeout),
		Concurrency: cfg.Transfer.Concurrency,
		Logger:      logger,
	})
}
