// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package atomicfs

// exchange is unavailable outside Linux; Publish uses the
// remove-then-rename fallback.
func exchange(tmpPath, finalPath string, isDir bool) (bool, error) {
	return false, nil
}

func renameNoReplace(tmpPath, finalPath string) (bool, error) {
	return linkNoReplace(tmpPath, finalPath)
}
