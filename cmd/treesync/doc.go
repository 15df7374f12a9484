// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Treesync publishes directory trees into a content-addressed
// repository and reconstructs them elsewhere.
//
// A repository is a plain directory: "treesync create" splits every
// file of a source tree into compressed chunks under chunks/ and
// records the tree as a CBOR manifest under trees/. Serve that
// directory over HTTP with any static file server. On the receiving
// side "treesync download" fetches and verifies the files of a tree
// into a local store, "treesync deploy" hardlinks a stored tree into
// place, and "treesync pull" does both.
//
// Settings come from a YAML file named by --config or TREESYNC_CONFIG;
// command-line flags override it.
package main
