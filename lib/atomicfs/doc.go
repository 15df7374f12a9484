// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfs provides the crash-safe filesystem primitives that
// the repository engine builds on.
//
// [Publish] moves a finished temporary file or directory to its final
// name. On Linux it uses renameat2(RENAME_EXCHANGE): a placeholder of
// the right type is created at the final name if nothing is there, the
// two directory entries are swapped in one operation, and whatever now
// sits at the temporary name is removed. Readers of the final name see
// the complete old artifact or the complete new one, never a missing or
// torn one. Elsewhere (or on filesystems that refuse the exchange) it
// falls back to remove-then-rename, which can briefly leave the final
// name absent but never exposes a half-written file.
//
// [PublishExclusive] is the no-replace variant for regular files: it
// publishes only if the final name is free, using
// renameat2(RENAME_NOREPLACE) or link(2), and never creates a
// placeholder.
//
// [OpenLocked] creates or opens a scratch file and holds an exclusive
// flock(2) on it, re-validating after the lock is granted that the path
// still names the locked inode. [LockFile] takes the same advisory lock
// on an already-open file.
//
// [LinkOrCopy] and [Symlink] place a single entry at a destination
// path by building it under a temporary sibling name and renaming it
// into place, so each placement is atomic on its own.
package atomicfs
