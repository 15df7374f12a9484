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

	"github.com/bureau-foundation/treesync/lib/atomicfs"
	"github.com/bureau-foundation/treesync/lib/compression"
	"github.com/bureau-foundation/treesync/lib/contenthash"
)

// Chunk is one content-addressed blob of file data.
type Chunk struct {
	// Hash is the digest of the uncompressed bytes.
	Hash string `json:"hash"`

	// DiskSize is the uncompressed length.
	DiskSize uint64 `json:"disk_size"`

	// NetworkSize is the length of the stored (possibly compressed)
	// chunk file.
	NetworkSize uint64 `json:"network_size"`
}

// CreateChunk stores data as a chunk and returns its descriptor. data
// is normally at most ChunkSize bytes but larger blobs are accepted.
//
// If a chunk with the same digest is already present it is left in
// place: identical digests mean identical content, and the existing
// file's size is reported as NetworkSize.
func (r *Repository) CreateChunk(data []byte) (Chunk, error) {
	hash := contenthash.Sum(r.format.Hash, data)
	finalPath := r.format.ChunkPath(r.root, hash)

	// Only uncompressed empty content is stored as an empty file. Any
	// other empty file is a publish placeholder, not a stored chunk.
	if info, err := os.Stat(finalPath); err == nil && (info.Size() > 0 || (len(data) == 0 && r.format.Compression == compression.None)) {
		r.logger.Debug("chunk already present", "hash", hash)
		return Chunk{Hash: hash, DiskSize: uint64(len(data)), NetworkSize: uint64(info.Size())}, nil
	}

	tmpFile, err := os.CreateTemp(filepath.Join(r.root, chunksDir), "."+hash+".*.tmp")
	if err != nil {
		return Chunk{}, fmt.Errorf("creating temp chunk file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	written := &countingWriter{writer: tmpFile}
	encoder, err := compression.NewWriter(r.format.Compression, written)
	if err != nil {
		return Chunk{}, err
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return Chunk{}, fmt.Errorf("writing chunk %s: %w", hash, err)
	}
	// Close flushes the encoder's final frame. Without it the stored
	// chunk would be truncated.
	if err := encoder.Close(); err != nil {
		return Chunk{}, fmt.Errorf("finishing chunk %s: %w", hash, err)
	}
	if err := tmpFile.Sync(); err != nil {
		return Chunk{}, fmt.Errorf("syncing chunk %s: %w", hash, err)
	}
	if err := tmpFile.Close(); err != nil {
		return Chunk{}, fmt.Errorf("closing chunk %s: %w", hash, err)
	}

	if err := atomicfs.Publish(tmpPath, finalPath); err != nil {
		return Chunk{}, err
	}
	success = true

	r.logger.Debug("chunk written",
		"hash", hash,
		"disk_size", len(data),
		"network_size", written.count,
	)
	return Chunk{Hash: hash, DiskSize: uint64(len(data)), NetworkSize: uint64(written.count)}, nil
}

// DownloadChunk fetches a chunk, decompresses it, and verifies it
// against chunk.Hash. The decompressed size is bounded by
// chunk.DiskSize: a body that expands past it, or stops short of it,
// is an integrity error. Unverified bytes are never returned.
func (c *Client) DownloadChunk(ctx context.Context, chunk Chunk) ([]byte, error) {
	body, err := c.get(ctx, c.format.ChunkURLPath(chunk.Hash))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	decoder, err := compression.NewReader(c.format.Compression, body)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	data, err := io.ReadAll(io.LimitReader(decoder, int64(chunk.DiskSize)+1))
	if err != nil {
		if errors.Is(err, compression.ErrMalformed) {
			return nil, fmt.Errorf("chunk %s: %w: %w", chunk.Hash, ErrIntegrity, err)
		}
		return nil, &NetworkError{URL: c.url + "/" + c.format.ChunkURLPath(chunk.Hash), Err: err}
	}
	if uint64(len(data)) != chunk.DiskSize {
		return nil, fmt.Errorf("chunk %s: %w: decoded size %s, expected %d",
			chunk.Hash, ErrIntegrity, sizeDescription(len(data), chunk.DiskSize), chunk.DiskSize)
	}

	actual := contenthash.Sum(c.format.Hash, data)
	if actual != chunk.Hash {
		return nil, &HashMismatchError{Subject: "chunk", Expected: chunk.Hash, Actual: actual}
	}
	return data, nil
}

// sizeDescription renders an observed size, marking overruns detected
// by the +1 read bound.
func sizeDescription(observed int, expected uint64) string {
	if uint64(observed) > expected {
		return fmt.Sprintf("more than %d", expected)
	}
	return fmt.Sprintf("%d", observed)
}

// countingWriter counts the bytes passed to the underlying writer.
type countingWriter struct {
	writer io.Writer
	count  int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.writer.Write(p)
	w.count += int64(n)
	return n, err
}

// chunkReader yields ChunkSize slices of a source until EOF. A
// zero-length read ends the sequence; an empty source yields nothing.
type chunkReader struct {
	source io.Reader
	buffer []byte
}

func newChunkReader(source io.Reader) *chunkReader {
	return &chunkReader{source: source, buffer: make([]byte, ChunkSize)}
}

// next returns the next chunk of data, or nil at end of input. The
// returned slice is valid until the following call.
func (r *chunkReader) next() ([]byte, error) {
	n, err := io.ReadFull(r.source, r.buffer)
	switch {
	case err == nil, errors.Is(err, io.ErrUnexpectedEOF):
		return r.buffer[:n], nil
	case errors.Is(err, io.EOF):
		return nil, nil
	default:
		return nil, err
	}
}
