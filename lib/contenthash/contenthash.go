// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contenthash

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// Kind identifies a hash algorithm.
type Kind uint8

const (
	// Blake3 is 256-bit BLAKE3 rendered as 64 lowercase hex characters.
	Blake3 Kind = iota

	// Xxh3 is 64-bit XXH3 rendered as 16 lowercase hex characters. The
	// digest is encoded little-endian so repositories produced by
	// earlier tooling keep their chunk names.
	Xxh3
)

// Default is the hash kind used when configuration does not name one.
const Default = Blake3

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case Blake3:
		return "blake3"
	case Xxh3:
		return "xxh3"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// DigestLength returns the number of hex characters in a digest of
// this kind.
func (k Kind) DigestLength() int {
	switch k {
	case Blake3:
		return 64
	case Xxh3:
		return 16
	default:
		return 0
	}
}

// Weak reports whether the kind lacks collision resistance.
func (k Kind) Weak() bool {
	return k == Xxh3
}

// ParseKind parses a hash kind by name. Matching is case-insensitive,
// and "xxh3_64" is accepted as an alias for "xxh3".
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "blake3":
		return Blake3, nil
	case "xxh3", "xxh3_64":
		return Xxh3, nil
	default:
		return 0, fmt.Errorf("unknown hash kind %q (want blake3 or xxh3)", name)
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by
// name in YAML and CBOR.
func (k Kind) MarshalText() ([]byte, error) {
	if k.DigestLength() == 0 {
		return nil, fmt.Errorf("cannot marshal hash kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Hasher is a streaming hasher for one [Kind]. Only the state for the
// selected algorithm is allocated. The zero value is not usable; call
// [New].
type Hasher struct {
	kind      Kind
	blake     *blake3.Hasher
	xxh       *xxh3.Hasher
	finalized bool
}

// New returns a fresh hasher for kind. Panics on an unknown kind: kinds
// come from [ParseKind] or the package constants, so an unknown value
// is a programming error.
func New(kind Kind) *Hasher {
	switch kind {
	case Blake3:
		return &Hasher{kind: kind, blake: blake3.New()}
	case Xxh3:
		return &Hasher{kind: kind, xxh: xxh3.New()}
	default:
		panic(fmt.Sprintf("contenthash: unknown hash kind %d", uint8(kind)))
	}
}

// Kind returns the algorithm this hasher computes.
func (h *Hasher) Kind() Kind {
	return h.kind
}

// Update feeds data into the running hash.
func (h *Hasher) Update(data []byte) {
	if h.finalized {
		panic("contenthash: Update after Finalize")
	}
	switch h.kind {
	case Blake3:
		h.blake.Write(data)
	case Xxh3:
		h.xxh.Write(data)
	}
}

// Write implements io.Writer. It never returns an error.
func (h *Hasher) Write(data []byte) (int, error) {
	h.Update(data)
	return len(data), nil
}

// Finalize returns the lowercase hex digest of everything written.
// The hasher is consumed: any further Update or Finalize panics.
func (h *Hasher) Finalize() string {
	if h.finalized {
		panic("contenthash: Finalize called twice")
	}
	h.finalized = true

	switch h.kind {
	case Blake3:
		return hex.EncodeToString(h.blake.Sum(nil))
	default:
		var digest [8]byte
		binary.LittleEndian.PutUint64(digest[:], h.xxh.Sum64())
		return hex.EncodeToString(digest[:])
	}
}

// Sum hashes data in one call.
func Sum(kind Kind, data []byte) string {
	hasher := New(kind)
	hasher.Update(data)
	return hasher.Finalize()
}

// Valid reports whether digest has the length and alphabet of a kind
// digest. It does not say anything about what the digest names.
func (k Kind) Valid(digest string) bool {
	if len(digest) != k.DigestLength() || len(digest) == 0 {
		return false
	}
	for i := 0; i < len(digest); i++ {
		c := digest[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
