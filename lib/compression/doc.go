// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compression provides streaming compress/decompress adapters
// for repository chunks.
//
// [NewWriter] wraps any [io.Writer] in an encoder and [NewReader] wraps
// any [io.Reader] in a decoder, so stages compose as a pipeline:
//
//	file -> counting writer -> NewWriter(kind, ...) -> caller
//
// Encoders buffer internally. The caller must Close the returned writer
// before treating the underlying sink as complete; an unclosed encoder
// leaves a truncated stream that cannot be decoded. Closing the encoder
// never closes the underlying sink.
//
// Decoders for [Zstd], [Lz4], and [Xz] fail with an error wrapping
// [ErrMalformed] when the input is not a valid stream of that format,
// including empty input. [None] is an identity transform with no
// framing and never fails on content.
package compression
