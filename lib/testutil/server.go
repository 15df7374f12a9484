// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Server serves a repository directory over HTTP. Requests are
// answered by http.FileServer unless a test has overridden the path.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	overrides map[string]override
	requests  map[string]int
}

type override struct {
	status int
	body   []byte
}

// ServeDirectory starts a Server for root. The server is closed when
// the test completes.
func ServeDirectory(t *testing.T, root string) *Server {
	t.Helper()
	server := &Server{
		overrides: make(map[string]override),
		requests:  make(map[string]int),
	}
	files := http.FileServer(http.Dir(root))
	server.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		path := strings.TrimPrefix(request.URL.Path, "/")

		server.mu.Lock()
		server.requests[path]++
		replacement, overridden := server.overrides[path]
		server.mu.Unlock()

		if overridden {
			writer.WriteHeader(replacement.status)
			writer.Write(replacement.body)
			return
		}
		files.ServeHTTP(writer, request)
	}))
	t.Cleanup(server.Close)
	return server
}

// Override makes the server answer requests for path (relative to the
// repository root, e.g. "chunks/<hash>.zstd") with status and body.
func (s *Server) Override(path string, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[path] = override{status: status, body: body}
}

// Requests returns how many times path has been requested.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// TotalRequests returns the number of requests whose path starts with
// prefix.
func (s *Server) TotalRequests(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for path, count := range s.requests {
		if strings.HasPrefix(path, prefix) {
			total += count
		}
	}
	return total
}
