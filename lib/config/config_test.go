// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "treesync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Format.Hash != "blake3" {
		t.Errorf("expected hash=blake3, got %s", cfg.Format.Hash)
	}
	if cfg.Format.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Format.Compression)
	}
	if cfg.Transfer.Concurrency != 4 {
		t.Errorf("expected concurrency=4, got %d", cfg.Transfer.Concurrency)
	}
	if cfg.Transfer.Timeout != 10*time.Minute {
		t.Errorf("expected timeout=10m, got %v", cfg.Transfer.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when TREESYNC_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "TREESYNC_CONFIG environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `
repository:
  url: https://mirror.example.com/repo
store:
  path: /var/lib/treesync/store
format:
  compression: lz4
transfer:
  concurrency: 16
  timeout: 90s
log:
  level: debug
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Repository.URL != "https://mirror.example.com/repo" {
		t.Errorf("repository.url = %q", cfg.Repository.URL)
	}
	if cfg.Store.Path != "/var/lib/treesync/store" {
		t.Errorf("store.path = %q", cfg.Store.Path)
	}
	if cfg.Format.Compression != "lz4" {
		t.Errorf("format.compression = %q", cfg.Format.Compression)
	}
	if cfg.Format.Hash != "blake3" {
		t.Errorf("format.hash default lost: %q", cfg.Format.Hash)
	}
	if cfg.Transfer.Concurrency != 16 {
		t.Errorf("transfer.concurrency = %d", cfg.Transfer.Concurrency)
	}
	if cfg.Transfer.Timeout != 90*time.Second {
		t.Errorf("transfer.timeout = %v", cfg.Transfer.Timeout)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeConfig(t, "transfer: [this is not a mapping\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("TREESYNC_TEST_MIRROR", "https://cdn.example.com")
	path := writeConfig(t, `
repository:
  path: ${HOME}/repo
  url: ${TREESYNC_TEST_MIRROR}/trees
store:
  path: ${TREESYNC_TEST_UNSET:-/srv/store}
deploy:
  path: ${HOME}/deploy
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	tests := []struct {
		field, got, want string
	}{
		{"repository.path", cfg.Repository.Path, "/home/tester/repo"},
		{"repository.url", cfg.Repository.URL, "https://cdn.example.com/trees"},
		{"store.path", cfg.Store.Path, "/srv/store"},
		{"deploy.path", cfg.Deploy.Path, "/home/tester/deploy"},
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%s = %q, want %q", test.field, test.got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"unknown hash", func(c *Config) { c.Format.Hash = "md5" }, "format.hash"},
		{"unknown compression", func(c *Config) { c.Format.Compression = "gzip" }, "format.compression"},
		{"zero concurrency", func(c *Config) { c.Transfer.Concurrency = 0 }, "transfer.concurrency"},
		{"negative timeout", func(c *Config) { c.Transfer.Timeout = -time.Second }, "transfer.timeout"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad url", func(c *Config) { c.Repository.URL = "not a url" }, "repository.url"},
		{"weak hash without opt-in", func(c *Config) { c.Format.Hash = "xxh3" }, "allow_weak_hash"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %q", err, test.wantErr)
			}
		})
	}
}

func TestValidate_WeakHashOptIn(t *testing.T) {
	cfg := Default()
	cfg.Format.Hash = "xxh3"
	cfg.Format.AllowWeakHash = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("xxh3 with allow_weak_hash rejected: %v", err)
	}
}

func TestValidate_CanonicalizesNames(t *testing.T) {
	tests := []struct {
		hash, compression, level string
		wantHash, wantCompression string
	}{
		{"XXH3_64", "ZSTD", "DEBUG", "xxh3", "zstd"},
		{"xxh3_64", "Lz4", "info", "xxh3", "lz4"},
		{"Blake3", "XZ", "Warn", "blake3", "xz"},
	}
	for _, test := range tests {
		t.Run(test.hash+"/"+test.compression, func(t *testing.T) {
			cfg := Default()
			cfg.Format.Hash = test.hash
			cfg.Format.Compression = test.compression
			cfg.Format.AllowWeakHash = true
			cfg.Log.Level = test.level
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if cfg.Format.Hash != test.wantHash || cfg.Format.Compression != test.wantCompression {
				t.Errorf("format = %+v, want %s/%s", cfg.Format, test.wantHash, test.wantCompression)
			}
			if cfg.Log.Level != strings.ToLower(test.level) {
				t.Errorf("log level = %q", cfg.Log.Level)
			}
		})
	}
}

func TestValidate_WeakHashAliasNeedsOptIn(t *testing.T) {
	cfg := Default()
	cfg.Format.Hash = "xxh3_64"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "allow_weak_hash") {
		t.Errorf("xxh3_64 without allow_weak_hash: err = %v", err)
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Format.Compression = "gzip"
	cfg.Log.Level = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"format.compression", "log.level"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}
