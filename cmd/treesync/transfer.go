// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/treesync/cmd/treesync/cli"
	"github.com/bureau-foundation/treesync/lib/config"
	"github.com/bureau-foundation/treesync/lib/repository"
)

func downloadCommand(stdout, stderr io.Writer) *cli.Command {
	var options settings

	return &cli.Command{
		Name:    "download",
		Summary: "Fetch and verify a tree's files into the local store",
		Usage:   "treesync download --url URL --store DIR [flags] DIGEST",
		Description: `Fetch the manifest for DIGEST and reconstruct every file it names in
the store directory.

Each file is assembled from its chunks, verified against its content
hash, and published read-only as <hash><mode>. Files already in the
store are skipped. Any hash mismatch aborts the download with exit
code 2; network failures exit with code 3.`,
		Flags: func() *pflag.FlagSet {
			return options.newFlagSet("download", withURL|withStore)
		},
		Examples: []cli.Example{
			{
				Description: "Prefetch a tree without deploying it",
				Command:     "treesync download --url https://cache.example.com/treesync --store /var/lib/treesync <digest>",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, "DIGEST"); err != nil {
				return err
			}
			cfg, err := options.load()
			if err != nil {
				return err
			}
			tree, err := fetchAndDownload(ctx, cfg, args[0], "download")
			if err != nil {
				return classify(err, stderr)
			}
			fmt.Fprintf(stdout, "downloaded %s to %s\n", args[0], cfg.Store.Path)
			writeStats(stdout, tree.Stats())
			return nil
		},
	}
}

func deployCommand(stdout, stderr io.Writer) *cli.Command {
	var options settings

	return &cli.Command{
		Name:    "deploy",
		Summary: "Materialize a downloaded tree from the local store",
		Usage:   "treesync deploy --url URL --store DIR --dest DIR [flags] DIGEST",
		Description: `Fetch the manifest for DIGEST and lay the tree out under --dest,
hardlinking each file from the store (or copying it when the store is
on another filesystem) and recreating symlinks.

The tree's files must already be in the store: run download first, or
use pull to do both.`,
		Flags: func() *pflag.FlagSet {
			return options.newFlagSet("deploy", withURL|withStore|withDeploy)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, "DIGEST"); err != nil {
				return err
			}
			cfg, err := options.load()
			if err != nil {
				return err
			}
			if cfg.Deploy.Path == "" {
				return fmt.Errorf("deploy directory required: pass --dest or set deploy.path")
			}
			logger := commandLogger(cfg, "deploy")
			client, err := newClient(cfg, logger)
			if err != nil {
				return err
			}
			tree, err := client.FetchTree(ctx, args[0])
			if err != nil {
				return classify(err, stderr)
			}
			stats, err := repository.Deploy(tree, client.StorePath(), cfg.Deploy.Path, logger)
			if err != nil {
				return err
			}
			writeDeployStats(stdout, args[0], cfg.Deploy.Path, stats)
			return nil
		},
	}
}

func pullCommand(stdout, stderr io.Writer) *cli.Command {
	var options settings

	return &cli.Command{
		Name:    "pull",
		Summary: "Download a tree and deploy it",
		Usage:   "treesync pull --url URL --store DIR --dest DIR [flags] DIGEST",
		Description: `Equivalent to download followed by deploy. Nothing is deployed unless
every file in the tree was downloaded and verified.`,
		Flags: func() *pflag.FlagSet {
			return options.newFlagSet("pull", withURL|withStore|withDeploy)
		},
		Examples: []cli.Example{
			{
				Description: "Install a published tree into /opt/app",
				Command:     "treesync pull --url https://cache.example.com/treesync --store /var/lib/treesync --dest /opt/app <digest>",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, "DIGEST"); err != nil {
				return err
			}
			cfg, err := options.load()
			if err != nil {
				return err
			}
			if cfg.Deploy.Path == "" {
				return fmt.Errorf("deploy directory required: pass --dest or set deploy.path")
			}
			tree, err := fetchAndDownload(ctx, cfg, args[0], "pull")
			if err != nil {
				return classify(err, stderr)
			}
			stats, err := repository.Deploy(tree, cfg.Store.Path, cfg.Deploy.Path, commandLogger(cfg, "pull"))
			if err != nil {
				return err
			}
			writeDeployStats(stdout, args[0], cfg.Deploy.Path, stats)
			return nil
		},
	}
}

// fetchAndDownload fetches the manifest for digest and downloads all of
// its streams into the store.
func fetchAndDownload(ctx context.Context, cfg *config.Config, digest, command string) (*repository.Tree, error) {
	client, err := newClient(cfg, commandLogger(cfg, command))
	if err != nil {
		return nil, err
	}
	tree, err := client.FetchTree(ctx, digest)
	if err != nil {
		return nil, err
	}
	if err := client.DownloadTree(ctx, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func writeDeployStats(w io.Writer, digest, path string, stats repository.DeployStats) {
	fmt.Fprintf(w, "deployed %s to %s\n", digest, path)
	fmt.Fprintf(w, "  %d linked, %d copied, %d symlinks, %d directories\n",
		stats.Linked, stats.Copied, stats.Symlinks, stats.Directories)
}
