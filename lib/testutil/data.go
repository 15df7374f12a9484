// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

// Bytes returns size bytes of pseudo-random content determined by seed.
func Bytes(seed uint64, size int) []byte {
	source := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	generator := rand.New(source)
	data := make([]byte, size)
	for index := 0; index < size; {
		value := generator.Uint64()
		for shift := 0; shift < 64 && index < size; shift += 8 {
			data[index] = byte(value >> shift)
			index++
		}
	}
	return data
}

// WriteFile creates path (and its parent directories) with the given
// content and permission bits, failing the test on error. The mode is
// applied with chmod so the process umask does not mask it.
func WriteFile(t *testing.T, path string, content []byte, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := os.Chmod(path, mode); err != nil {
		t.Fatalf("chmod %s: %v", path, err)
	}
}

// MakeWritable recursively adds owner write permission under root so
// t.TempDir cleanup can remove read-only directories and files.
// Register it with t.Cleanup after creating read-only content.
func MakeWritable(t *testing.T, root string) {
	t.Helper()
	filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.Type()&os.ModeSymlink != 0 {
			return nil
		}
		info, statErr := entry.Info()
		if statErr != nil {
			return nil
		}
		os.Chmod(path, info.Mode().Perm()|0o200)
		return nil
	})
}
