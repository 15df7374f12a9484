// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package atomicfs

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// exchange swaps tmpPath and finalPath with renameat2(RENAME_EXCHANGE)
// and removes the displaced entry. It returns false without error when
// the filesystem does not support the exchange, so the caller can fall
// back to a plain rename.
func exchange(tmpPath, finalPath string, isDir bool) (bool, error) {
	createdPlaceholder, err := ensurePlaceholder(finalPath, isDir)
	if err != nil {
		return false, err
	}

	err = unix.Renameat2(unix.AT_FDCWD, tmpPath, unix.AT_FDCWD, finalPath, unix.RENAME_EXCHANGE)
	if err != nil {
		if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EOPNOTSUPP) {
			if createdPlaceholder {
				removeAny(finalPath, isDir)
			}
			return false, nil
		}
		if createdPlaceholder {
			removeAny(finalPath, isDir)
		}
		return false, &os.LinkError{Op: "renameat2", Old: tmpPath, New: finalPath, Err: err}
	}

	// tmpPath now holds the previous artifact (or the placeholder).
	displaced, err := os.Lstat(tmpPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return true, err
	}
	return true, removeAny(tmpPath, displaced.IsDir())
}

// ensurePlaceholder creates an empty file or directory at path if
// nothing exists there. It reports whether it created one.
func ensurePlaceholder(path string, isDir bool) (bool, error) {
	if isDir {
		err := os.Mkdir(path, 0o755)
		if err == nil {
			return true, nil
		}
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		return true, file.Close()
	}
	if os.IsExist(err) {
		return false, nil
	}
	return false, err
}

// renameNoReplace renames with renameat2(RENAME_NOREPLACE), falling
// back to link-and-unlink where the flag is unsupported.
func renameNoReplace(tmpPath, finalPath string) (bool, error) {
	err := unix.Renameat2(unix.AT_FDCWD, tmpPath, unix.AT_FDCWD, finalPath, unix.RENAME_NOREPLACE)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.EEXIST):
		return false, nil
	case errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EOPNOTSUPP):
		return linkNoReplace(tmpPath, finalPath)
	default:
		return false, &os.LinkError{Op: "renameat2", Old: tmpPath, New: finalPath, Err: err}
	}
}
