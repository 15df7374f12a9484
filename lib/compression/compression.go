// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Kind identifies a chunk compression format.
type Kind uint8

const (
	// None stores chunks uncompressed, with no file extension.
	None Kind = iota

	// Zstd is the zstd frame format at the default level. Chunk
	// files carry the ".zstd" extension.
	Zstd

	// Xz is the xz container format (LZMA2). Chunk files carry the
	// ".xz" extension.
	Xz

	// Lz4 is the LZ4 frame format. Chunk files carry the ".lz4"
	// extension.
	Lz4
)

// Default is the compression used when configuration does not name one.
const Default = Zstd

// ErrMalformed is wrapped by every decode error caused by input that is
// not a valid stream of the expected format.
var ErrMalformed = errors.New("malformed compressed stream")

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case Xz:
		return "xz"
	case Lz4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Extension returns the chunk file extension without a dot, or "" for
// [None].
func (k Kind) Extension() string {
	switch k {
	case Zstd:
		return "zstd"
	case Xz:
		return "xz"
	case Lz4:
		return "lz4"
	default:
		return ""
	}
}

// DottedExtension returns the extension prefixed with "." when there
// is one, and "" otherwise.
func (k Kind) DottedExtension() string {
	if extension := k.Extension(); extension != "" {
		return "." + extension
	}
	return ""
}

// ParseKind parses a compression kind by name (case-insensitive).
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "xz":
		return Xz, nil
	case "lz4":
		return Lz4, nil
	default:
		return 0, fmt.Errorf("unknown compression kind %q (want zstd, xz, lz4, or none)", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k > Lz4 {
		return nil, fmt.Errorf("cannot marshal compression kind %d", uint8(k))
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

// NewWriter returns an encoder that compresses everything written to
// it into sink. Close flushes the encoder and writes the stream
// trailer; it does not close sink.
func NewWriter(kind Kind, sink io.Writer) (io.WriteCloser, error) {
	switch kind {
	case None:
		return nopWriteCloser{sink}, nil

	case Zstd:
		// Zero frames keep empty input decodable: without one the
		// encoder emits nothing at all.
		encoder, err := zstd.NewWriter(sink,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
			zstd.WithZeroFrames(true),
		)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		return encoder, nil

	case Xz:
		encoder, err := xz.NewWriter(sink)
		if err != nil {
			return nil, fmt.Errorf("creating xz encoder: %w", err)
		}
		return encoder, nil

	case Lz4:
		return lz4.NewWriter(sink), nil

	default:
		return nil, fmt.Errorf("unsupported compression kind %d", uint8(kind))
	}
}

// NewReader returns a decoder that yields the decompressed contents of
// source. Construction never reads from source, so format errors
// surface from Read. The caller must Close the returned reader to
// release decoder resources; Close does not close source.
func NewReader(kind Kind, source io.Reader) (io.ReadCloser, error) {
	if kind == None {
		return io.NopCloser(source), nil
	}
	if kind > Lz4 {
		return nil, fmt.Errorf("unsupported compression kind %d", uint8(kind))
	}
	return &decoder{kind: kind, source: &countingReader{reader: source}}, nil
}

// Decode decompresses a complete in-memory stream.
func Decode(kind Kind, data []byte) ([]byte, error) {
	reader, err := NewReader(kind, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// countingReader records how many bytes the decoder pulled from the
// source, so a decoder that reaches EOF without seeing any input can be
// told apart from a valid empty stream. It also remembers source
// failures so they are not misreported as malformed input.
type countingReader struct {
	reader io.Reader
	count  int64
	err    error
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.count += int64(n)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

// decoder lazily constructs the format decoder on first Read and
// normalizes its errors.
type decoder struct {
	kind   Kind
	source *countingReader
	inner  io.Reader
	zstd   *zstd.Decoder
	err    error
}

func (d *decoder) init() error {
	switch d.kind {
	case Zstd:
		decoder, err := zstd.NewReader(d.source, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("creating zstd decoder: %w", err)
		}
		d.zstd = decoder
		d.inner = decoder

	case Xz:
		// xz.NewReader consumes and validates the stream header.
		reader, err := xz.NewReader(d.source)
		if err != nil {
			return d.malformed(err)
		}
		d.inner = reader

	case Lz4:
		d.inner = lz4.NewReader(d.source)
	}
	return nil
}

func (d *decoder) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	if d.inner == nil {
		if err := d.init(); err != nil {
			d.err = err
			return 0, err
		}
	}

	n, err := d.inner.Read(p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		if d.source.count == 0 {
			d.err = fmt.Errorf("%s decode: %w: empty input", d.kind, ErrMalformed)
			return n, d.err
		}
		d.err = io.EOF
		return n, io.EOF
	default:
		d.err = d.malformed(err)
		return n, d.err
	}
}

func (d *decoder) malformed(err error) error {
	if d.source.err != nil {
		return fmt.Errorf("reading %s stream: %w", d.kind, d.source.err)
	}
	if errors.Is(err, io.EOF) && d.source.count == 0 {
		return fmt.Errorf("%s decode: %w: empty input", d.kind, ErrMalformed)
	}
	return fmt.Errorf("%s decode: %w: %w", d.kind, ErrMalformed, err)
}

func (d *decoder) Close() error {
	if d.zstd != nil {
		d.zstd.Close()
		d.zstd = nil
	}
	return nil
}
