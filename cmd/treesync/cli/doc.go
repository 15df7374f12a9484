// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the treesync
// binary: a tree of [Command] values dispatched by the first
// positional argument, pflag-based flag parsing with "did you mean"
// suggestions for mistyped commands and flags, structured help output,
// and [ExitError] for commands that choose their own exit status.
//
// [NewCommandLogger] builds the slog logger commands use for progress
// and diagnostics on stderr.
package cli
