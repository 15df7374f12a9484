// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/treesync/lib/netutil"
)

// Repository is the writable source side: a directory of chunks and
// tree manifests that a static file server can publish unchanged.
//
// Concurrent writers are safe. Every artifact is written under a
// unique temporary name and published atomically, and two writers of
// the same content produce identical bytes.
type Repository struct {
	root   string
	format Format
	logger *slog.Logger
}

// Open returns a Repository rooted at root, creating its directory
// structure if needed. A nil logger discards log output.
func Open(root string, format Format, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, dir := range []string{
		root,
		filepath.Join(root, chunksDir),
		filepath.Join(root, treesDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating repository directory %s: %w", dir, err)
		}
	}
	return &Repository{root: root, format: format, logger: logger}, nil
}

// Root returns the repository directory.
func (r *Repository) Root() string { return r.root }

// Format returns the repository's hash and compression kinds.
func (r *Repository) Format() Format { return r.format }

// ClientConfig configures a [Client].
type ClientConfig struct {
	// URL is the base URL of the repository. Chunks are fetched from
	// URL/chunks/<hash>[.<ext>] and manifests from URL/trees/<digest>.cbor.
	URL string

	// StorePath is the local directory that receives reconstructed
	// files, named <hash><permission>.
	StorePath string

	// Format must match the format the repository was written with.
	Format Format

	// HTTPClient performs the requests. If nil, a client from
	// netutil.NewHTTPClient sized for Concurrency is used.
	HTTPClient *http.Client

	// Concurrency bounds how many streams DownloadTree fetches at
	// once. Values below 1 mean 1.
	Concurrency int

	// Logger receives per-stream and per-tree progress. Nil discards.
	Logger *slog.Logger
}

// Client is the read side: it fetches and verifies repository content
// and reconstructs files into a local store. A Client is safe for
// concurrent use.
type Client struct {
	http        *http.Client
	url         string
	storePath   string
	format      Format
	concurrency int
	logger      *slog.Logger
}

// NewClient validates config and creates the store directory.
func NewClient(config ClientConfig) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("repository URL is required")
	}
	if config.StorePath == "" {
		return nil, fmt.Errorf("store path is required")
	}
	concurrency := max(config.Concurrency, 1)
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = netutil.NewHTTPClient(concurrency, 0)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(config.StorePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", config.StorePath, err)
	}
	return &Client{
		http:        httpClient,
		url:         strings.TrimRight(config.URL, "/"),
		storePath:   config.StorePath,
		format:      config.Format,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// StorePath returns the local store directory.
func (c *Client) StorePath() string { return c.storePath }

// Format returns the format the client expects the repository to use.
func (c *Client) Format() Format { return c.format }

// get issues a GET for a path relative to the repository URL and
// returns the response body. Any transport failure or non-2xx status
// is returned as a *NetworkError. The caller closes the body.
func (c *Client) get(ctx context.Context, relative string) (io.ReadCloser, error) {
	url := c.url + "/" + relative
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	response, err := c.http.Do(request)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		body := netutil.ErrorBody(response.Body)
		response.Body.Close()
		return nil, &NetworkError{URL: url, StatusCode: response.StatusCode, Body: body}
	}
	return response.Body, nil
}
