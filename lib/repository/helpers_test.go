// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/treesync/lib/compression"
	"github.com/bureau-foundation/treesync/lib/contenthash"
	"github.com/bureau-foundation/treesync/lib/testutil"
)

// fixture is a repository served over HTTP plus a client reading it
// into a fresh store.
type fixture struct {
	repository *Repository
	server     *testutil.Server
	client     *Client
}

func newFixture(t *testing.T, format Format) *fixture {
	t.Helper()
	repository, err := Open(filepath.Join(t.TempDir(), "repo"), format, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	server := testutil.ServeDirectory(t, repository.Root())

	storePath := filepath.Join(t.TempDir(), "store")
	client, err := NewClient(ClientConfig{
		URL:         server.URL,
		StorePath:   storePath,
		Format:      format,
		HTTPClient:  server.Client(),
		Concurrency: 4,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return &fixture{repository: repository, server: server, client: client}
}

// tempDir returns a temporary directory that is made writable again
// before cleanup, so tests can leave read-only content behind.
func tempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Cleanup(func() { testutil.MakeWritable(t, dir) })
	return dir
}

// storedChunk reads a chunk file back from the repository and
// decompresses it.
func storedChunk(t *testing.T, repository *Repository, hash string) []byte {
	t.Helper()
	raw, err := os.ReadFile(repository.Format().ChunkPath(repository.Root(), hash))
	if err != nil {
		t.Fatalf("reading chunk %s: %v", hash, err)
	}
	data, err := compression.Decode(repository.Format().Compression, raw)
	if err != nil {
		t.Fatalf("decoding chunk %s: %v", hash, err)
	}
	return data
}

func assertMode(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if got := info.Mode().Perm(); got != want {
		t.Errorf("%s mode = %o, want %o", path, got, want)
	}
}

func assertAbsent(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Errorf("%s exists (err=%v), want absent", path, err)
	}
}

var (
	zstdFormat  = DefaultFormat
	lz4Format   = Format{Hash: contenthash.Blake3, Compression: compression.Lz4}
	plainFormat = Format{Hash: contenthash.Blake3, Compression: compression.None}
	xxh3Format  = Format{Hash: contenthash.Xxh3, Compression: compression.Xz}
)
