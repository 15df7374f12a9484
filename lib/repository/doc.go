// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package repository implements treesync's content-addressed chunk,
// stream, and tree engine.
//
// Three layers build on each other:
//
//   - A [Chunk] is at most [ChunkSize] bytes of file data, stored
//     compressed at chunks/<hash>[.<ext>] and named by the digest of
//     its uncompressed bytes.
//   - A [Stream] is one file: an ordered list of chunks plus a digest
//     of the whole file computed independently of the chunk digests,
//     and the file's mode bits.
//   - A [Tree] is one directory: its mode bits, its files as streams,
//     its subdirectories as nested trees, and its symlinks recorded
//     verbatim.
//
// The source side is a [Repository], a directory that a static HTTP
// server can publish as-is. [Repository.CreateTree] walks a source
// directory and writes every chunk; [Repository.WriteTree] stores the
// resulting tree as a CBOR manifest under trees/<digest>.cbor.
//
// The destination side is a [Client], which fetches chunks over HTTP,
// verifies every chunk and every stream against its digest, and
// publishes each reconstructed file into a local store directory as
// <hash><permission>. [Deploy] then materializes a tree from the store
// onto a real directory using hardlinks (or copies) and symlinks.
//
// Every artifact becomes visible under its final name only after it
// has been verified, through [atomicfs.Publish]. Partially written
// data lives only under names ending in .tmp. Integrity failures are
// reported as errors matching [ErrIntegrity]; HTTP failures match
// [ErrNetwork]; filesystem failures keep their original cause.
//
// One repository uses one [Format] (hash kind and compression kind)
// for all of its content. Mixing hash kinds would make identical
// content land under different names and defeat deduplication.
package repository
