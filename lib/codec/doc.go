// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration used for
// tree manifests and any other structured artifact treesync stores on
// disk or serves over HTTP.
//
// A manifest is content-addressed by the digest of its encoded bytes,
// so encoding must be a pure function of the logical value. The
// encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items.
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
//
// Decoding is strict: unknown struct fields and duplicate map keys are
// errors, so two readers can never disagree about what a digest names.
//
// Types that implement encoding.TextMarshaler (hash and compression
// kinds) are encoded as CBOR text strings, so manifests carry "blake3"
// rather than an opaque enum number.
//
// # Struct Tag Rules
//
// Types that are also printed as JSON by the CLI carry only `json`
// tags; fxamacker/cbor reads `json` tags when `cbor` tags are absent.
// Types that are only ever CBOR carry `cbor` tags. Never use both on
// one field.
package codec
