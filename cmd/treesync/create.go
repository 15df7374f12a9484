// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/treesync/cmd/treesync/cli"
	"github.com/bureau-foundation/treesync/lib/repository"
)

type createResult struct {
	Digest string               `json:"digest"`
	Stats  repository.TreeStats `json:"stats"`
}

func createCommand(stdout io.Writer) *cli.Command {
	var options settings
	var output cli.JSONOutput

	return &cli.Command{
		Name:    "create",
		Summary: "Add a directory tree to a repository",
		Usage:   "treesync create --repo DIR [flags] SOURCE",
		Description: `Snapshot SOURCE into the repository at --repo.

Every regular file is split into 16 MiB chunks, each compressed and
stored under chunks/ by the hash of its uncompressed content; chunks
already present are not rewritten. Directories and symlinks are
recorded as they are, without following links. The tree is stored as
a manifest under trees/ and its digest is printed: that digest is what
download, deploy, and pull take.`,
		Flags: func() *pflag.FlagSet {
			flagSet := options.newFlagSet("create", withRepository)
			output.AddFlags(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Publish a build directory",
				Command:     "treesync create --repo /srv/treesync ./out",
			},
			{
				Description: "Use lz4 for faster decompression on the receiving side",
				Command:     "treesync create --repo /srv/treesync --compression lz4 ./out",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, "SOURCE"); err != nil {
				return err
			}
			cfg, err := options.load()
			if err != nil {
				return err
			}
			logger := commandLogger(cfg, "create")

			repo, err := openRepository(cfg, logger)
			if err != nil {
				return err
			}
			tree, err := repo.CreateTree(args[0])
			if err != nil {
				return err
			}
			digest, err := repo.WriteTree(tree)
			if err != nil {
				return err
			}

			result := createResult{Digest: digest, Stats: tree.Stats()}
			if done, err := output.EmitJSON(stdout, result); done {
				return err
			}
			fmt.Fprintln(stdout, digest)
			writeStats(stdout, result.Stats)
			return nil
		},
	}
}

// writeStats prints a tree summary with human-readable sizes.
func writeStats(w io.Writer, stats repository.TreeStats) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  files\t%s\n", humanize.Comma(int64(stats.Files)))
	fmt.Fprintf(tw, "  directories\t%s\n", humanize.Comma(int64(stats.Directories)))
	fmt.Fprintf(tw, "  symlinks\t%s\n", humanize.Comma(int64(stats.Symlinks)))
	fmt.Fprintf(tw, "  chunks\t%s\n", humanize.Comma(int64(stats.Chunks)))
	fmt.Fprintf(tw, "  size\t%s\n", humanize.IBytes(stats.DiskSize))
	fmt.Fprintf(tw, "  compressed\t%s\n", humanize.IBytes(stats.NetworkSize))
	tw.Flush()
}
