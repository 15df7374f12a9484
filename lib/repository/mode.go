// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import "io/fs"

// Mode bits are recorded as the low twelve bits of a Unix st_mode
// (permission bits plus setuid, setgid, and sticky). File type bits
// are never recorded.
const (
	modeSetuid   = 0o4000
	modeSetgid   = 0o2000
	modeSticky   = 0o1000
	modePerm     = 0o777
	modeAnyWrite = 0o222
)

// modeBits converts a Go file mode to recorded Unix mode bits.
func modeBits(mode fs.FileMode) uint32 {
	bits := uint32(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		bits |= modeSetuid
	}
	if mode&fs.ModeSetgid != 0 {
		bits |= modeSetgid
	}
	if mode&fs.ModeSticky != 0 {
		bits |= modeSticky
	}
	return bits
}

// fileMode converts recorded Unix mode bits back to a Go file mode
// suitable for os.Chmod.
func fileMode(bits uint32) fs.FileMode {
	mode := fs.FileMode(bits & modePerm)
	if bits&modeSetuid != 0 {
		mode |= fs.ModeSetuid
	}
	if bits&modeSetgid != 0 {
		mode |= fs.ModeSetgid
	}
	if bits&modeSticky != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}

// readOnly clears every write bit. Recorded stream permissions and
// store files are always read-only.
func readOnly(bits uint32) uint32 {
	return bits &^ modeAnyWrite
}
