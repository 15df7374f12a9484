// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// DownloadTree reconstructs every stream in tree into the store.
//
// Streams are collected depth first and deduplicated by store name, so
// a file that appears many times in the tree is fetched once. Up to
// the client's concurrency limit are fetched at once. The first
// failure cancels the remaining downloads and is returned; streams
// already published stay in the store, since each was verified on its
// own.
func (c *Client) DownloadTree(ctx context.Context, tree *Tree) error {
	type pending struct {
		path   string
		stream Stream
	}

	var work []pending
	seen := make(map[string]bool)
	tree.walkStreams("", func(relative string, stream Stream) {
		name := stream.StoreName()
		if seen[name] {
			return
		}
		seen[name] = true
		work = append(work, pending{path: filepath.Join(relative, stream.Name), stream: stream})
	})

	start := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)
	for _, item := range work {
		group.Go(func() error {
			if err := c.DownloadStream(groupCtx, item.stream); err != nil {
				return fmt.Errorf("downloading %s: %w", item.path, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	stats := tree.Stats()
	c.logger.Info("tree downloaded",
		"streams", len(work),
		"files", stats.Files,
		"disk_size", stats.DiskSize,
		"duration", time.Since(start),
	)
	return nil
}
