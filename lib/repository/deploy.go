// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/treesync/lib/atomicfs"
)

// DeployStats counts what Deploy placed.
type DeployStats struct {
	Linked      int `json:"linked"`
	Copied      int `json:"copied"`
	Symlinks    int `json:"symlinks"`
	Directories int `json:"directories"`
}

// Deploy materializes tree at deployPath from files already in the
// store at storePath. Each file is hardlinked from the store, or
// copied when a hardlink is impossible; each symlink is recreated with
// its recorded target. Existing entries with the same names are
// replaced.
//
// Every individual placement is atomic, but the deployment as a whole
// is not: a failure leaves deployPath partially populated. Recorded
// directory modes are applied to each subdirectory after its contents
// are in place. deployPath itself is created if needed and keeps its
// own mode. A nil logger discards log output.
func Deploy(tree *Tree, storePath, deployPath string, logger *slog.Logger) (DeployStats, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(deployPath, 0o755); err != nil {
		return DeployStats{}, fmt.Errorf("creating deploy directory %s: %w", deployPath, err)
	}

	deployer := &deployer{storePath: storePath, logger: logger}
	if err := deployer.deploy(tree, deployPath, 0); err != nil {
		return deployer.stats, err
	}
	logger.Info("tree deployed",
		"path", deployPath,
		"linked", deployer.stats.Linked,
		"copied", deployer.stats.Copied,
		"symlinks", deployer.stats.Symlinks,
		"directories", deployer.stats.Directories,
	)
	return deployer.stats, nil
}

type deployer struct {
	storePath string
	logger    *slog.Logger
	stats     DeployStats
}

func (d *deployer) deploy(tree *Tree, directory string, depth int) error {
	if depth > MaxTreeDepth {
		return fmt.Errorf("%s: directory nesting exceeds %d levels", directory, MaxTreeDepth)
	}

	for _, stream := range tree.Streams {
		if err := validateName(stream.Name); err != nil {
			return fmt.Errorf("deploying into %s: %w", directory, err)
		}
		source := filepath.Join(d.storePath, stream.StoreName())
		if _, err := os.Lstat(source); err != nil {
			return fmt.Errorf("stream %s (%s) is not in the store: %w", stream.Name, stream.StoreName(), err)
		}
		destination := filepath.Join(directory, stream.Name)
		linked, err := atomicfs.LinkOrCopy(source, destination)
		if err != nil {
			return err
		}
		if linked {
			d.stats.Linked++
		} else {
			d.stats.Copied++
			d.logger.Debug("hardlink failed, copied instead", "path", destination)
		}
	}

	for _, link := range tree.Symlinks {
		if err := validateName(link.Name); err != nil {
			return fmt.Errorf("deploying into %s: %w", directory, err)
		}
		if err := atomicfs.Symlink(link.Target, filepath.Join(directory, link.Name)); err != nil {
			return err
		}
		d.stats.Symlinks++
	}

	for index := range tree.Subtrees {
		subtree := &tree.Subtrees[index]
		if err := validateName(subtree.Name); err != nil {
			return fmt.Errorf("deploying into %s: %w", directory, err)
		}
		path := filepath.Join(directory, subtree.Name)
		if err := prepareDirectory(path); err != nil {
			return err
		}
		if err := d.deploy(&subtree.Tree, path, depth+1); err != nil {
			return err
		}
		if err := os.Chmod(path, fileMode(subtree.Tree.Permissions)); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
		d.stats.Directories++
	}
	return nil
}

// prepareDirectory makes sure path is a directory the deployer can
// write into. A directory left read-only by an earlier deployment is
// made writable again until its contents are replaced.
func prepareDirectory(path string) error {
	err := os.Mkdir(path, 0o700)
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot deploy directory over %s: existing entry is not a directory", path)
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}
