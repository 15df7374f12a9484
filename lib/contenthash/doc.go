// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contenthash provides the streaming hash functions that name
// content in a treesync repository.
//
// Two algorithms are supported:
//
//   - [Blake3]: 256-bit BLAKE3, 64 hex characters. The default, and the
//     only choice when repository content may be adversarial.
//   - [Xxh3]: 64-bit XXH3, 16 hex characters. Several times faster but
//     not collision resistant. Only suitable for trusted, non-adversarial
//     deduplication; lib/config refuses it unless the operator opts in
//     with format.allow_weak_hash.
//
// A repository uses exactly one [Kind] for every chunk, stream, and
// manifest digest. Mixing kinds silently breaks deduplication because
// the same bytes get two different names.
//
// A [Hasher] is a tagged union over the algorithm states. Feed it with
// [Hasher.Update] (or use it as an [io.Writer]) and call
// [Hasher.Finalize] exactly once. Chunking boundaries are irrelevant:
// the same byte sequence always produces the same digest.
package contenthash
