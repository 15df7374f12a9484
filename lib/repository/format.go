// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/bureau-foundation/treesync/lib/compression"
	"github.com/bureau-foundation/treesync/lib/contenthash"
)

// ChunkSize is the maximum number of file bytes in one stream chunk.
const ChunkSize = 16 << 20

// Directory names within a repository root. The same names are used
// as URL path segments under the repository URL.
const (
	chunksDir = "chunks"
	treesDir  = "trees"
)

// manifestExtension is the suffix of tree manifest files. Manifests
// are never compressed.
const manifestExtension = ".cbor"

// Format fixes how content in one repository is addressed and stored.
type Format struct {
	Hash        contenthash.Kind
	Compression compression.Kind
}

// DefaultFormat is Blake3 digests with zstd compression.
var DefaultFormat = Format{Hash: contenthash.Default, Compression: compression.Default}

func (f Format) String() string {
	return fmt.Sprintf("%s/%s", f.Hash, f.Compression)
}

// chunkName is the file name of a chunk: its digest plus the
// compression extension, if any.
func (f Format) chunkName(hash string) string {
	return hash + f.Compression.DottedExtension()
}

// ChunkPath returns where a chunk lives in a repository rooted at root.
func (f Format) ChunkPath(root, hash string) string {
	return filepath.Join(root, chunksDir, f.chunkName(hash))
}

// ChunkURLPath returns the chunk's path relative to a repository URL.
func (f Format) ChunkURLPath(hash string) string {
	return path.Join(chunksDir, f.chunkName(hash))
}

// TreePath returns where a tree manifest lives in a repository rooted
// at root.
func TreePath(root, digest string) string {
	return filepath.Join(root, treesDir, digest+manifestExtension)
}

// TreeURLPath returns the manifest's path relative to a repository URL.
func TreeURLPath(digest string) string {
	return path.Join(treesDir, digest+manifestExtension)
}
