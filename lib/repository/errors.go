// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"errors"
	"fmt"
)

// ErrNetwork matches every error caused by the HTTP transport: failed
// requests and non-2xx responses. Callers decide whether to retry.
var ErrNetwork = errors.New("network error")

// ErrIntegrity matches every error caused by content that does not
// match its expected digest or recorded size.
var ErrIntegrity = errors.New("integrity error")

// NetworkError describes a failed repository request. StatusCode is
// zero when the request failed before a response arrived, in which
// case Err holds the transport error.
type NetworkError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("fetching %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports ErrNetwork as a match.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// HashMismatchError reports content whose digest differs from the one
// it was addressed by. Subject names what was checked ("chunk", "stream
// foo.txt", "manifest").
type HashMismatchError struct {
	Subject  string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s: hash mismatch: expected %s, got %s", e.Subject, e.Expected, e.Actual)
}

// Is reports ErrIntegrity as a match.
func (e *HashMismatchError) Is(target error) bool { return target == ErrIntegrity }
