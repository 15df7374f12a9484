// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// MaxTreeDepth bounds directory nesting accepted by CreateTree and by
// manifest validation.
const MaxTreeDepth = 256

// Tree is an immutable snapshot of one directory. Entries of each kind
// are ordered by name.
type Tree struct {
	// Permissions holds the directory's Unix mode bits.
	Permissions uint32 `json:"permissions"`

	Streams  []Stream  `json:"streams,omitempty"`
	Subtrees []Subtree `json:"subtrees,omitempty"`
	Symlinks []Symlink `json:"symlinks,omitempty"`
}

// Subtree is a named child directory. Each Tree owns its subtrees
// outright; no two parents share one.
type Subtree struct {
	Name string `json:"name"`
	Tree Tree   `json:"tree"`
}

// Symlink is a symbolic link recorded by its target, verbatim. The
// target is never followed or hashed.
type Symlink struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

// CreateTree snapshots the directory at path: regular files become
// streams (storing their chunks), directories become subtrees, and
// symlinks are recorded without being followed. Other entry types
// (sockets, FIFOs, devices) are skipped with a warning.
func (r *Repository) CreateTree(path string) (*Tree, error) {
	tree, err := r.createTree(path, 0)
	if err != nil {
		return nil, err
	}
	stats := tree.Stats()
	r.logger.Info("tree created",
		"path", path,
		"files", stats.Files,
		"directories", stats.Directories,
		"symlinks", stats.Symlinks,
		"chunks", stats.Chunks,
		"disk_size", stats.DiskSize,
		"network_size", stats.NetworkSize,
	)
	return &tree, nil
}

func (r *Repository) createTree(path string, depth int) (Tree, error) {
	if depth > MaxTreeDepth {
		return Tree{}, fmt.Errorf("%s: directory nesting exceeds %d levels", path, MaxTreeDepth)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Tree{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return Tree{}, fmt.Errorf("%s is not a directory", path)
	}

	// os.ReadDir returns entries sorted by name, so identical
	// directories always produce identical trees.
	entries, err := os.ReadDir(path)
	if err != nil {
		return Tree{}, fmt.Errorf("reading directory %s: %w", path, err)
	}

	tree := Tree{Permissions: modeBits(info.Mode())}
	for _, entry := range entries {
		entryPath := filepath.Join(path, entry.Name())
		switch entryType := entry.Type(); {
		case entryType.IsRegular():
			stream, err := r.CreateStream(entryPath)
			if err != nil {
				return Tree{}, err
			}
			tree.Streams = append(tree.Streams, stream)

		case entryType.IsDir():
			subtree, err := r.createTree(entryPath, depth+1)
			if err != nil {
				return Tree{}, err
			}
			tree.Subtrees = append(tree.Subtrees, Subtree{Name: entry.Name(), Tree: subtree})

		case entryType&fs.ModeSymlink != 0:
			target, err := os.Readlink(entryPath)
			if err != nil {
				return Tree{}, fmt.Errorf("reading symlink %s: %w", entryPath, err)
			}
			tree.Symlinks = append(tree.Symlinks, Symlink{Name: entry.Name(), Target: target})

		default:
			r.logger.Warn("skipping unsupported file type",
				"path", entryPath,
				"type", entryType.String(),
			)
		}
	}
	return tree, nil
}

// TreeStats summarizes a tree recursively. The root directory is not
// counted in Directories.
type TreeStats struct {
	Files       int    `json:"files"`
	Directories int    `json:"directories"`
	Symlinks    int    `json:"symlinks"`
	Chunks      int    `json:"chunks"`
	DiskSize    uint64 `json:"disk_size"`
	NetworkSize uint64 `json:"network_size"`
}

// Stats counts the entries and bytes in t and all of its subtrees.
// Chunks shared between files are counted once per reference.
func (t *Tree) Stats() TreeStats {
	var stats TreeStats
	t.accumulate(&stats)
	return stats
}

func (t *Tree) accumulate(stats *TreeStats) {
	for _, stream := range t.Streams {
		stats.Files++
		stats.Chunks += len(stream.Chunks)
		for _, chunk := range stream.Chunks {
			stats.DiskSize += chunk.DiskSize
			stats.NetworkSize += chunk.NetworkSize
		}
	}
	stats.Symlinks += len(t.Symlinks)
	for index := range t.Subtrees {
		stats.Directories++
		t.Subtrees[index].Tree.accumulate(stats)
	}
}

// walkStreams calls visit for every stream in t, depth first: a
// directory's own streams before those of its subtrees. relative is
// the stream's directory relative to the tree root.
func (t *Tree) walkStreams(relative string, visit func(relative string, stream Stream)) {
	for _, stream := range t.Streams {
		visit(relative, stream)
	}
	for index := range t.Subtrees {
		subtree := &t.Subtrees[index]
		subtree.Tree.walkStreams(filepath.Join(relative, subtree.Name), visit)
	}
}
