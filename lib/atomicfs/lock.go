// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package atomicfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// LockFile takes an exclusive advisory flock(2) on file, blocking until
// it is granted. The lock is released when file is closed.
func LockFile(file *os.File) error {
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("locking %s: %w", file.Name(), err)
		}
		return nil
	}
}

// OpenLocked opens path for reading and writing, creating it with the
// given mode if needed, and returns it holding an exclusive lock.
//
// Another holder may unlink or publish the path while this call waits
// for the lock. After the lock is granted, OpenLocked checks that path
// still names the locked inode and starts over if it does not, so the
// returned file is always the one currently reachable at path.
func OpenLocked(path string, mode os.FileMode) (*os.File, error) {
	for {
		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, mode)
		if err != nil {
			return nil, err
		}
		if err := LockFile(file); err != nil {
			file.Close()
			return nil, err
		}

		held, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		current, err := os.Stat(path)
		if err == nil && os.SameFile(held, current) {
			return file, nil
		}
		file.Close()
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
}

// RemoveLocked removes path while holding its lock, so a file another
// holder is still working on is never removed out from under it.
//
// The file is opened read-only, which succeeds even when its mode
// forbids writing. If path no longer names the locked inode once the
// lock is granted, nothing is removed and RemoveLocked reports false;
// the same holds when path does not exist.
func RemoveLocked(path string) (bool, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer file.Close()

	if err := LockFile(file); err != nil {
		return false, err
	}
	held, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	current, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if !os.SameFile(held, current) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}
