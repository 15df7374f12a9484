// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for treesync packages.
//
// [Server] serves a repository directory over HTTP the way a static
// file server would in production, with hooks for tests to override
// individual paths (to simulate corruption or server errors) and to
// count requests (to verify deduplication).
//
// [Bytes] returns deterministic pseudo-random content of a given size.
// Content is incompressible enough to exercise the compression codecs
// honestly while staying reproducible across runs.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) so that individual tests do not
// need direct time.After calls.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no treesync-internal dependencies.
package testutil
