// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/treesync/lib/atomicfs"
	"github.com/bureau-foundation/treesync/lib/codec"
	"github.com/bureau-foundation/treesync/lib/compression"
	"github.com/bureau-foundation/treesync/lib/contenthash"
	"github.com/bureau-foundation/treesync/lib/netutil"
)

// ManifestVersion is the manifest schema version this package writes
// and the only one it reads.
const ManifestVersion = 1

// MaxManifestSize bounds how much of a manifest is read.
const MaxManifestSize = 64 << 20

// ErrInvalidManifest matches manifests that decode but describe an
// impossible or unsafe tree, or an unsupported schema.
var ErrInvalidManifest = errors.New("invalid manifest")

// ErrFormatMismatch matches manifests written with a different hash or
// compression kind than the reader was configured for.
var ErrFormatMismatch = errors.New("repository format mismatch")

// Manifest is the stored form of a tree. It is addressed by the digest
// of its deterministic CBOR encoding, computed with the manifest's own
// hash kind.
type Manifest struct {
	Version     int              `json:"version"`
	Hash        contenthash.Kind `json:"hash"`
	Compression compression.Kind `json:"compression"`
	ChunkSize   uint64           `json:"chunk_size"`
	Tree        Tree             `json:"tree"`
}

// Format returns the hash and compression kinds the manifest's content
// was written with.
func (m *Manifest) Format() Format {
	return Format{Hash: m.Hash, Compression: m.Compression}
}

// WriteTree stores tree as a manifest under trees/<digest>.cbor and
// returns the digest. Writing the same tree twice is a no-op.
func (r *Repository) WriteTree(tree *Tree) (string, error) {
	if err := validateTree(tree, r.format.Hash, 0); err != nil {
		return "", err
	}
	data, err := codec.Marshal(Manifest{
		Version:     ManifestVersion,
		Hash:        r.format.Hash,
		Compression: r.format.Compression,
		ChunkSize:   ChunkSize,
		Tree:        *tree,
	})
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}

	digest := contenthash.Sum(r.format.Hash, data)
	finalPath := TreePath(r.root, digest)
	if info, err := os.Stat(finalPath); err == nil && info.Size() == int64(len(data)) {
		return digest, nil
	}

	tmpFile, err := os.CreateTemp(filepath.Join(r.root, treesDir), "."+digest+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp manifest file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("writing manifest %s: %w", digest, err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		return "", fmt.Errorf("chmod manifest %s: %w", digest, err)
	}
	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("syncing manifest %s: %w", digest, err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("closing manifest %s: %w", digest, err)
	}
	if err := atomicfs.Publish(tmpPath, finalPath); err != nil {
		return "", err
	}
	success = true

	r.logger.Info("manifest written", "digest", digest, "size", len(data))
	return digest, nil
}

// FetchTree downloads the manifest named digest, verifies it, and
// returns its tree. The manifest must match the client's format.
func (c *Client) FetchTree(ctx context.Context, digest string) (*Tree, error) {
	if !c.format.Hash.Valid(digest) {
		return nil, fmt.Errorf("%q is not a %s digest", digest, c.format.Hash)
	}

	body, err := c.get(ctx, TreeURLPath(digest))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := netutil.ReadLimited(body, MaxManifestSize)
	if err != nil {
		if errors.Is(err, netutil.ErrTooLarge) {
			return nil, fmt.Errorf("manifest %s: %w: %w", digest, ErrInvalidManifest, err)
		}
		return nil, &NetworkError{URL: c.url + "/" + TreeURLPath(digest), Err: err}
	}

	actual := contenthash.Sum(c.format.Hash, data)
	if actual != digest {
		return nil, &HashMismatchError{Subject: "manifest", Expected: digest, Actual: actual}
	}

	manifest, err := DecodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", digest, err)
	}
	if manifest.Format() != c.format {
		return nil, fmt.Errorf("manifest %s: %w: repository uses %s, client expects %s",
			digest, ErrFormatMismatch, manifest.Format(), c.format)
	}

	c.logger.Debug("manifest fetched", "digest", digest, "size", len(data))
	return &manifest.Tree, nil
}

// ReadTreeFile loads a manifest from a local file. When the file is
// named <digest>.cbor the content is verified against that digest.
func ReadTreeFile(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxManifestSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	if len(data) > MaxManifestSize {
		return nil, fmt.Errorf("manifest %s: %w: larger than %d bytes", path, ErrInvalidManifest, MaxManifestSize)
	}

	manifest, err := DecodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	expected, isDigestName := strings.CutSuffix(filepath.Base(path), manifestExtension)
	if isDigestName && manifest.Hash.Valid(expected) {
		if actual := contenthash.Sum(manifest.Hash, data); actual != expected {
			return nil, &HashMismatchError{Subject: "manifest " + path, Expected: expected, Actual: actual}
		}
	}
	return manifest, nil
}

// DecodeManifest decodes and validates manifest bytes. It does not
// check the digest; callers that know the expected digest verify it
// first.
func DecodeManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: decoding: %w", ErrInvalidManifest, err)
	}
	if manifest.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (want %d)", ErrInvalidManifest, manifest.Version, ManifestVersion)
	}
	if manifest.ChunkSize != ChunkSize {
		return nil, fmt.Errorf("%w: chunk size %d (want %d)", ErrInvalidManifest, manifest.ChunkSize, ChunkSize)
	}
	if err := validateTree(&manifest.Tree, manifest.Hash, 0); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// validateTree checks that a tree can be deployed safely: every name is
// a single path element, names are unique within a directory, digests
// have the right form, and nesting is bounded.
func validateTree(tree *Tree, kind contenthash.Kind, depth int) error {
	if depth > MaxTreeDepth {
		return fmt.Errorf("%w: directory nesting exceeds %d levels", ErrInvalidManifest, MaxTreeDepth)
	}
	if tree.Permissions > 0o7777 {
		return fmt.Errorf("%w: directory mode %o has non-permission bits", ErrInvalidManifest, tree.Permissions)
	}

	names := make(map[string]bool, len(tree.Streams)+len(tree.Subtrees)+len(tree.Symlinks))
	claim := func(name string) error {
		if err := validateName(name); err != nil {
			return err
		}
		if names[name] {
			return fmt.Errorf("%w: duplicate entry %q", ErrInvalidManifest, name)
		}
		names[name] = true
		return nil
	}

	for _, stream := range tree.Streams {
		if err := claim(stream.Name); err != nil {
			return err
		}
		if !kind.Valid(stream.Hash) {
			return fmt.Errorf("%w: stream %q has malformed %s digest %q", ErrInvalidManifest, stream.Name, kind, stream.Hash)
		}
		if stream.Permission > 0o7777 {
			return fmt.Errorf("%w: stream %q mode %o has non-permission bits", ErrInvalidManifest, stream.Name, stream.Permission)
		}
		for index, chunk := range stream.Chunks {
			if !kind.Valid(chunk.Hash) {
				return fmt.Errorf("%w: stream %q chunk %d has malformed %s digest %q", ErrInvalidManifest, stream.Name, index, kind, chunk.Hash)
			}
			if chunk.DiskSize > ChunkSize {
				return fmt.Errorf("%w: stream %q chunk %d is %d bytes (limit %d)", ErrInvalidManifest, stream.Name, index, chunk.DiskSize, ChunkSize)
			}
		}
	}
	for _, link := range tree.Symlinks {
		if err := claim(link.Name); err != nil {
			return err
		}
		if link.Target == "" {
			return fmt.Errorf("%w: symlink %q has an empty target", ErrInvalidManifest, link.Name)
		}
	}
	for index := range tree.Subtrees {
		subtree := &tree.Subtrees[index]
		if err := claim(subtree.Name); err != nil {
			return err
		}
		if err := validateTree(&subtree.Tree, kind, depth+1); err != nil {
			return fmt.Errorf("in %s: %w", subtree.Name, err)
		}
	}
	return nil
}

// validateName rejects names that are not exactly one path element.
func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: invalid entry name %q", ErrInvalidManifest, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: entry name %q contains a path separator or NUL", ErrInvalidManifest, name)
	}
	return nil
}
