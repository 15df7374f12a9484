// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atomicfs

import (
	"fmt"
	"os"
)

// Publish atomically replaces finalPath with the file or directory at
// tmpPath. On success tmpPath no longer exists.
func Publish(tmpPath, finalPath string) error {
	info, err := os.Lstat(tmpPath)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", tmpPath, err)
	}

	exchanged, err := exchange(tmpPath, finalPath, info.IsDir())
	if err != nil {
		return fmt.Errorf("publishing %s to %s: %w", tmpPath, finalPath, err)
	}
	if exchanged {
		return nil
	}

	if err := replace(tmpPath, finalPath); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", tmpPath, finalPath, err)
	}
	return nil
}

// PublishExclusive moves the regular file at tmpPath to finalPath
// only if nothing exists at finalPath. It reports whether the file was
// published; when it was not, tmpPath is left for the caller. Unlike
// Publish there is no moment at which finalPath holds a placeholder.
func PublishExclusive(tmpPath, finalPath string) (bool, error) {
	published, err := renameNoReplace(tmpPath, finalPath)
	if err != nil {
		return false, fmt.Errorf("publishing %s to %s: %w", tmpPath, finalPath, err)
	}
	return published, nil
}

// linkNoReplace is the portable no-replace rename: link(2) fails with
// EEXIST instead of replacing, and the temporary name is removed once
// the link is in place.
func linkNoReplace(tmpPath, finalPath string) (bool, error) {
	if err := os.Link(tmpPath, finalPath); err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(tmpPath); err != nil {
		return true, err
	}
	return true, nil
}

// replace is the portable fallback: remove whatever is at finalPath,
// then rename. A file can be renamed over a file directly; a directory
// can only replace an empty directory, so existing content is removed
// first.
func replace(tmpPath, finalPath string) error {
	existing, err := os.Lstat(finalPath)
	switch {
	case err == nil && existing.IsDir():
		if err := os.RemoveAll(finalPath); err != nil {
			return err
		}
	case err == nil:
		// rename(2) replaces a non-directory atomically.
	case !os.IsNotExist(err):
		return err
	}
	return os.Rename(tmpPath, finalPath)
}

// removeAny removes a file or directory tree, treating an absent path
// as success.
func removeAny(path string, isDir bool) error {
	var err error
	if isDir {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
