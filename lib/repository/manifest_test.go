// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/treesync/lib/codec"
	"github.com/bureau-foundation/treesync/lib/contenthash"
)

func sampleTree() *Tree {
	return &Tree{
		Permissions: 0o755,
		Streams: []Stream{{
			Hash:       contenthash.Sum(contenthash.Blake3, []byte("x")),
			Permission: 0o444,
			Name:       "x",
			Chunks: []Chunk{{
				Hash:        contenthash.Sum(contenthash.Blake3, []byte("x")),
				DiskSize:    1,
				NetworkSize: 14,
			}},
		}},
		Subtrees: []Subtree{{Name: "sub", Tree: Tree{Permissions: 0o700}}},
		Symlinks: []Symlink{{Name: "alias", Target: "x"}},
	}
}

func TestWriteTreeReadTreeFile(t *testing.T) {
	f := newFixture(t, zstdFormat)
	tree := sampleTree()

	digest, err := f.repository.WriteTree(tree)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if !contenthash.Blake3.Valid(digest) {
		t.Fatalf("digest %q is not a blake3 digest", digest)
	}

	path := TreePath(f.repository.Root(), digest)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("manifest not at %s: %v", path, err)
	}
	if actual := contenthash.Sum(contenthash.Blake3, data); actual != digest {
		t.Errorf("manifest digest %s does not match its content (%s)", digest, actual)
	}

	manifest, err := ReadTreeFile(path)
	if err != nil {
		t.Fatalf("ReadTreeFile: %v", err)
	}
	if manifest.Format() != zstdFormat {
		t.Errorf("manifest format = %s, want %s", manifest.Format(), zstdFormat)
	}
	if !reflect.DeepEqual(&manifest.Tree, tree) {
		t.Errorf("read tree = %+v, want %+v", manifest.Tree, *tree)
	}

	diagnostic, err := codec.Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"blake3"`) || !strings.Contains(diagnostic, `"zstd"`) {
		t.Errorf("manifest does not record kinds as text: %s", diagnostic)
	}
}

func TestReadTreeFileDetectsTampering(t *testing.T) {
	f := newFixture(t, zstdFormat)
	digest, err := f.repository.WriteTree(sampleTree())
	if err != nil {
		t.Fatal(err)
	}

	other := sampleTree()
	other.Symlinks[0].Target = "elsewhere"
	forged, err := codec.Marshal(Manifest{
		Version: ManifestVersion, Hash: zstdFormat.Hash, Compression: zstdFormat.Compression,
		ChunkSize: ChunkSize, Tree: *other,
	})
	if err != nil {
		t.Fatal(err)
	}
	path := TreePath(f.repository.Root(), digest)
	if err := os.WriteFile(path, forged, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = ReadTreeFile(path)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}

	// The same bytes under a name that is not a digest are not checked.
	renamed := filepath.Join(t.TempDir(), "copy.cbor")
	if err := os.WriteFile(renamed, forged, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTreeFile(renamed); err != nil {
		t.Errorf("ReadTreeFile(%s): %v", renamed, err)
	}
}

func TestFetchTreeIntegrity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, zstdFormat)
	digest, err := f.repository.WriteTree(sampleTree())
	if err != nil {
		t.Fatal(err)
	}

	f.server.Override(TreeURLPath(digest), http.StatusOK, []byte("not the manifest"))
	_, err = f.client.FetchTree(ctx, digest)
	var mismatch *HashMismatchError
	if !errors.As(err, &mismatch) || mismatch.Subject != "manifest" {
		t.Fatalf("expected manifest HashMismatchError, got %v", err)
	}
}

func TestFetchTreeFormatMismatch(t *testing.T) {
	f := newFixture(t, zstdFormat)
	digest, err := f.repository.WriteTree(sampleTree())
	if err != nil {
		t.Fatal(err)
	}

	client, err := NewClient(ClientConfig{
		URL:        f.server.URL,
		StorePath:  t.TempDir(),
		Format:     lz4Format,
		HTTPClient: f.server.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.FetchTree(context.Background(), digest)
	if !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestFetchTreeBadDigest(t *testing.T) {
	f := newFixture(t, zstdFormat)
	for _, digest := range []string{"", "../etc/passwd", strings.Repeat("A", 64), strings.Repeat("a", 16)} {
		if _, err := f.client.FetchTree(context.Background(), digest); err == nil {
			t.Errorf("FetchTree(%q) succeeded", digest)
		}
	}
	if requests := f.server.TotalRequests(""); requests != 0 {
		t.Errorf("invalid digests caused %d requests", requests)
	}
}

func TestFetchTreeMissing(t *testing.T) {
	f := newFixture(t, zstdFormat)
	_, err := f.client.FetchTree(context.Background(), strings.Repeat("0", 64))
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestDecodeManifestRejects(t *testing.T) {
	valid := func() Manifest {
		return Manifest{
			Version:     ManifestVersion,
			Hash:        contenthash.Blake3,
			Compression: zstdFormat.Compression,
			ChunkSize:   ChunkSize,
			Tree:        *sampleTree(),
		}
	}

	tests := []struct {
		name   string
		modify func(*Manifest)
	}{
		{"future version", func(m *Manifest) { m.Version = ManifestVersion + 1 }},
		{"other chunk size", func(m *Manifest) { m.ChunkSize = 1 << 20 }},
		{"empty name", func(m *Manifest) { m.Tree.Streams[0].Name = "" }},
		{"dot name", func(m *Manifest) { m.Tree.Subtrees[0].Name = "." }},
		{"parent name", func(m *Manifest) { m.Tree.Symlinks[0].Name = ".." }},
		{"slash in name", func(m *Manifest) { m.Tree.Streams[0].Name = "a/b" }},
		{"duplicate across kinds", func(m *Manifest) { m.Tree.Symlinks[0].Name = "sub" }},
		{"short stream digest", func(m *Manifest) { m.Tree.Streams[0].Hash = "abcd" }},
		{"uppercase chunk digest", func(m *Manifest) {
			m.Tree.Streams[0].Chunks[0].Hash = strings.ToUpper(m.Tree.Streams[0].Chunks[0].Hash)
		}},
		{"oversize chunk", func(m *Manifest) { m.Tree.Streams[0].Chunks[0].DiskSize = ChunkSize + 1 }},
		{"file type bits", func(m *Manifest) { m.Tree.Streams[0].Permission = 0o100444 }},
		{"empty symlink target", func(m *Manifest) { m.Tree.Symlinks[0].Target = "" }},
		{"nested bad name", func(m *Manifest) {
			m.Tree.Subtrees[0].Tree.Symlinks = []Symlink{{Name: "..", Target: "x"}}
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			manifest := valid()
			test.modify(&manifest)
			data, err := codec.Marshal(manifest)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := DecodeManifest(data); !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("expected ErrInvalidManifest, got %v", err)
			}
		})
	}

	data, err := codec.Marshal(valid())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeManifest(data); err != nil {
		t.Errorf("valid manifest rejected: %v", err)
	}
	if _, err := DecodeManifest([]byte{0xa1, 0xff}); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("garbage accepted or misclassified: %v", err)
	}
}

func TestDecodeManifestRejectsUnknownFields(t *testing.T) {
	type extended struct {
		Manifest
		Signature string `json:"signature"`
	}
	data, err := codec.Marshal(extended{
		Manifest: Manifest{
			Version:     ManifestVersion,
			Hash:        contenthash.Blake3,
			Compression: zstdFormat.Compression,
			ChunkSize:   ChunkSize,
			Tree:        *sampleTree(),
		},
		Signature: "unsigned",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeManifest(data); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("manifest with an unknown field: expected ErrInvalidManifest, got %v", err)
	}
}

func TestValidateTreeDepth(t *testing.T) {
	root := Tree{Permissions: 0o755}
	current := &root
	for range MaxTreeDepth + 1 {
		current.Subtrees = []Subtree{{Name: "d", Tree: Tree{Permissions: 0o755}}}
		current = &current.Subtrees[0].Tree
	}
	if err := validateTree(&root, contenthash.Blake3, 0); !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest for %d levels, got %v", MaxTreeDepth+1, err)
	}
}
