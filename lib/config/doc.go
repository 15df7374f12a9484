// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for treesync.
//
// Configuration is loaded from a single file specified by either the
// TREESYNC_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search.
//
// Variable expansion is performed on path and URL fields after
// loading: ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// [Config.Validate] checks field constraints with go-playground
// validator struct tags plus rules tags cannot express. In particular
// the weak xxh3 hash is refused unless format.allow_weak_hash is set,
// so choosing it is always an explicit decision in the config file.
//
// This package depends on no other treesync packages.
package config
