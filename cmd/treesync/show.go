// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/treesync/cmd/treesync/cli"
	"github.com/bureau-foundation/treesync/lib/codec"
	"github.com/bureau-foundation/treesync/lib/repository"
)

func showCommand(stdout io.Writer) *cli.Command {
	var options settings
	var output cli.JSONOutput
	var diagnose bool

	return &cli.Command{
		Name:    "show",
		Summary: "List the contents of a tree manifest",
		Usage:   "treesync show --repo DIR [flags] DIGEST | treesync show FILE.cbor",
		Description: `Print every file, directory, and symlink recorded in a tree, with
its mode and size. The manifest is read from trees/<DIGEST>.cbor in
the repository at --repo, or from a manifest file given by path.

--json prints the decoded manifest; --diagnose prints the raw CBOR in
diagnostic notation.`,
		Flags: func() *pflag.FlagSet {
			flagSet := options.newFlagSet("show", withRepository)
			output.AddFlags(flagSet)
			flagSet.BoolVar(&diagnose, "diagnose", false, "print the manifest in CBOR diagnostic notation")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, "DIGEST"); err != nil {
				return err
			}
			cfg, err := options.load()
			if err != nil {
				return err
			}

			manifestPath := args[0]
			if !strings.HasSuffix(manifestPath, ".cbor") {
				if cfg.Repository.Path == "" {
					return fmt.Errorf("repository directory required: pass --repo or set repository.path")
				}
				manifestPath = repository.TreePath(cfg.Repository.Path, args[0])
			}

			if diagnose {
				data, err := os.ReadFile(manifestPath)
				if err != nil {
					return err
				}
				notation, err := codec.Diagnose(data)
				if err != nil {
					return fmt.Errorf("diagnosing %s: %w", manifestPath, err)
				}
				fmt.Fprintln(stdout, notation)
				return nil
			}

			manifest, err := repository.ReadTreeFile(manifestPath)
			if err != nil {
				return err
			}
			if done, err := output.EmitJSON(stdout, manifest); done {
				return err
			}

			fmt.Fprintf(stdout, "format %s, %d-byte chunks\n", manifest.Format(), manifest.ChunkSize)
			tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
			listTree(tw, &manifest.Tree, "")
			tw.Flush()
			writeStats(stdout, manifest.Tree.Stats())
			return nil
		},
	}
}

// listTree writes one line per entry, directories before their
// contents.
func listTree(w io.Writer, tree *repository.Tree, prefix string) {
	for _, stream := range tree.Streams {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			fs.FileMode(stream.Permission&0o777), humanize.IBytes(stream.Size()), path.Join(prefix, stream.Name))
	}
	for _, symlink := range tree.Symlinks {
		fmt.Fprintf(w, "%s\t-\t%s -> %s\n",
			fs.ModeSymlink|0o777, path.Join(prefix, symlink.Name), symlink.Target)
	}
	for index := range tree.Subtrees {
		subtree := &tree.Subtrees[index]
		name := path.Join(prefix, subtree.Name)
		fmt.Fprintf(w, "%s\t-\t%s/\n", fs.ModeDir|fs.FileMode(subtree.Tree.Permissions&0o777), name)
		listTree(w, &subtree.Tree, name)
	}
}
