// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bureau-foundation/treesync/lib/atomicfs"
	"github.com/bureau-foundation/treesync/lib/contenthash"
)

// Stream is one file: its chunks in order, a digest of the whole file,
// and its mode bits.
type Stream struct {
	// Hash is the digest of the complete file contents, computed
	// directly over the file bytes and not derived from chunk digests.
	Hash string `json:"hash"`

	// Permission holds the recorded Unix mode bits, always read-only.
	Permission uint32 `json:"permission"`

	// Name is the file's name within its directory.
	Name string `json:"name"`

	// Chunks concatenated in order reproduce the file exactly. Empty
	// files have no chunks.
	Chunks []Chunk `json:"chunks,omitempty"`
}

// StoreName is the file's name in a local store: the digest followed by
// the decimal mode bits. Identical content with different modes gets
// distinct store entries.
func (s Stream) StoreName() string {
	return s.Hash + strconv.FormatUint(uint64(s.Permission), 10)
}

// Size returns the file length in bytes.
func (s Stream) Size() uint64 {
	var total uint64
	for _, chunk := range s.Chunks {
		total += chunk.DiskSize
	}
	return total
}

// CreateStream splits the file at path into chunks, storing each one,
// and returns the file's stream. The file is held under an exclusive
// advisory lock while it is read.
func (r *Repository) CreateStream(path string) (Stream, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stream{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	if err := atomicfs.LockFile(file); err != nil {
		return Stream{}, err
	}

	info, err := file.Stat()
	if err != nil {
		return Stream{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Stream{}, fmt.Errorf("%s is not a regular file", path)
	}

	hasher := contenthash.New(r.format.Hash)
	reader := newChunkReader(file)
	var chunks []Chunk
	for {
		data, err := reader.next()
		if err != nil {
			return Stream{}, fmt.Errorf("reading %s: %w", path, err)
		}
		if data == nil {
			break
		}
		hasher.Update(data)
		chunk, err := r.CreateChunk(data)
		if err != nil {
			return Stream{}, fmt.Errorf("storing chunk %d of %s: %w", len(chunks), path, err)
		}
		chunks = append(chunks, chunk)
	}

	stream := Stream{
		Hash:       hasher.Finalize(),
		Permission: readOnly(modeBits(info.Mode())),
		Name:       filepath.Base(path),
		Chunks:     chunks,
	}
	r.logger.Debug("stream created",
		"path", path,
		"hash", stream.Hash,
		"chunks", len(chunks),
		"size", stream.Size(),
	)
	return stream, nil
}

// StreamPath returns where the reconstructed file for stream lives in
// the client's store.
func (c *Client) StreamPath(stream Stream) string {
	return filepath.Join(c.storePath, stream.StoreName())
}

// DownloadStream reconstructs stream into the store. Chunks are
// fetched and verified in order into <store>/<name>.tmp, the whole
// file is verified against stream.Hash, and only then is the file
// made read-only and published under its final name.
//
// If the final name already exists the call returns immediately
// without re-verifying it. Concurrent downloads of the same stream,
// from this process or another, serialize on the temporary file's
// lock; the loser finds the published file and returns.
func (c *Client) DownloadStream(ctx context.Context, stream Stream) error {
	finalPath := c.StreamPath(stream)
	if _, err := os.Lstat(finalPath); err == nil {
		c.logger.Debug("stream already in store", "name", stream.Name, "hash", stream.Hash)
		return nil
	}

	tmpPath := finalPath + ".tmp"
	file, err := c.openScratch(tmpPath)
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
		file.Close()
	}()

	// Another holder may have published while this call waited for
	// the lock.
	if _, err := os.Lstat(finalPath); err == nil {
		return nil
	}

	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating %s: %w", tmpPath, err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("rewinding %s: %w", tmpPath, err)
	}

	hasher := contenthash.New(c.format.Hash)
	for index, chunk := range stream.Chunks {
		data, err := c.DownloadChunk(ctx, chunk)
		if err != nil {
			return fmt.Errorf("stream %s chunk %d: %w", stream.Name, index, err)
		}
		if _, err := file.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", tmpPath, err)
		}
		hasher.Update(data)
	}

	actual := hasher.Finalize()
	if actual != stream.Hash {
		return &HashMismatchError{Subject: "stream " + stream.Name, Expected: stream.Hash, Actual: actual}
	}

	if err := file.Chmod(fileMode(readOnly(stream.Permission))); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}

	// A file at the final name is never replaced.
	published, err := atomicfs.PublishExclusive(tmpPath, finalPath)
	if err != nil {
		return err
	}
	if !published {
		return nil
	}
	success = true

	c.logger.Debug("stream downloaded",
		"name", stream.Name,
		"hash", stream.Hash,
		"chunks", len(stream.Chunks),
		"size", stream.Size(),
	)
	return nil
}

// openScratch opens and locks a stream's temporary file. A scratch
// file left read-only by an interrupted earlier download cannot be
// reopened for writing. It is removed under its lock, so a download
// that has just made its own scratch file read-only is waited for
// rather than disturbed, and the open is retried.
func (c *Client) openScratch(tmpPath string) (*os.File, error) {
	for attempt := 0; ; attempt++ {
		file, err := atomicfs.OpenLocked(tmpPath, 0o600)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, os.ErrPermission) || attempt == maxScratchAttempts-1 {
			return nil, fmt.Errorf("opening %s: %w", tmpPath, err)
		}
		removed, removeErr := atomicfs.RemoveLocked(tmpPath)
		if removeErr != nil {
			return nil, fmt.Errorf("opening %s: %w", tmpPath, err)
		}
		if removed {
			c.logger.Warn("removed stale temporary file", "path", tmpPath)
		}
	}
}

// maxScratchAttempts bounds how often openScratch retries after
// finding an unwritable scratch file.
const maxScratchAttempts = 3
