// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atomicfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LinkOrCopy places source at destination, replacing any existing
// entry. It hardlinks when it can and falls back to a full copy when
// the link fails (cross-device, link count limits, filesystems without
// hardlinks). Either way the entry is built under a temporary sibling
// name and renamed into place. It reports whether a hardlink was used.
func LinkOrCopy(source, destination string) (linked bool, err error) {
	tmpPath, err := siblingTempName(destination)
	if err != nil {
		return false, err
	}

	if linkErr := os.Link(source, tmpPath); linkErr == nil {
		if err := os.Rename(tmpPath, destination); err != nil {
			os.Remove(tmpPath)
			return false, fmt.Errorf("placing %s: %w", destination, err)
		}
		// rename(2) is a no-op when both names already link the same
		// inode, which leaves the temporary name behind.
		os.Remove(tmpPath)
		return true, nil
	}

	if err := copyFile(source, tmpPath); err != nil {
		os.Remove(tmpPath)
		return false, err
	}
	if err := os.Rename(tmpPath, destination); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("placing %s: %w", destination, err)
	}
	return false, nil
}

// Symlink creates a symbolic link at path pointing at target, replacing
// any existing non-directory entry. target is stored verbatim.
func Symlink(target, path string) error {
	tmpPath, err := siblingTempName(path)
	if err != nil {
		return err
	}
	if err := os.Symlink(target, tmpPath); err != nil {
		return fmt.Errorf("creating symlink %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("placing symlink %s: %w", path, err)
	}
	return nil
}

// copyFile copies source to a new file at destination with source's
// permission and special mode bits, syncing before close.
func copyFile(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening %s: %w", source, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", source, err)
	}

	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destination, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s to %s: %w", source, destination, err)
	}
	mode := info.Mode() & (os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky)
	if err := out.Chmod(mode); err != nil {
		out.Close()
		return fmt.Errorf("chmod %s: %w", destination, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("syncing %s: %w", destination, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", destination, err)
	}
	return nil
}

// siblingTempName returns an unused name in the same directory as
// path, so a rename from it stays on one filesystem. The name is
// reserved by creating and removing a file; callers create their own
// entry there immediately.
func siblingTempName(path string) (string, error) {
	reservation, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("reserving temporary name for %s: %w", path, err)
	}
	name := reservation.Name()
	reservation.Close()
	if err := os.Remove(name); err != nil {
		return "", fmt.Errorf("reserving temporary name for %s: %w", path, err)
	}
	return name, nil
}
