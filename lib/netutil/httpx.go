// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides the HTTP plumbing shared by treesync's
// download paths.
//
// Every body read is bounded. Chunk payloads are streamed by the
// caller and bounded by the decompressor; the helpers here cover the
// small buffered reads: manifests (bounded by the caller's limit) and
// error bodies (bounded by MaxErrorBodySize) that end up in error
// messages.
package netutil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxErrorBodySize bounds how much of a non-2xx response body is kept
// for diagnostics.
const MaxErrorBodySize int64 = 64 << 10

// ErrTooLarge is returned by ReadLimited when the body exceeds the
// caller's limit.
var ErrTooLarge = errors.New("response body exceeds size limit")

// ReadLimited reads all of body, failing with ErrTooLarge if it holds
// more than limit bytes.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// ErrorBody reads an HTTP error response body and returns it as a
// trimmed string for diagnostic error messages. Read errors are
// ignored: a partial or empty body is still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBodySize))
	return strings.TrimSpace(string(data))
}

// NewHTTPClient returns a client whose connection pool keeps up to
// concurrency idle connections per host, so a bounded worker pool
// fetching from one repository reuses connections instead of dialing
// per request. A zero timeout means no overall request deadline.
func NewHTTPClient(concurrency int, timeout time.Duration) *http.Client {
	if concurrency < 1 {
		concurrency = 1
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = concurrency
	if transport.MaxIdleConns < concurrency {
		transport.MaxIdleConns = concurrency
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
