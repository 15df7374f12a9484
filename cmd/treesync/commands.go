// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/treesync/cmd/treesync/cli"
	"github.com/bureau-foundation/treesync/lib/repository"
	"github.com/bureau-foundation/treesync/lib/version"
)

// Exit codes for failures a script may want to tell apart. Anything
// else exits 1.
const (
	exitIntegrity = 2
	exitNetwork   = 3
)

// rootCommand builds the command tree. Command output goes to stdout;
// classified failures are reported on stderr.
func rootCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "treesync",
		Summary: "Content-addressed directory tree sync",
		Description: `Publish directory trees into a content-addressed repository and
reconstruct them on other machines.

A repository is a directory of compressed chunks and tree manifests
that can be served by any static HTTP server. Files are identified by
the hash of their content, so unchanged files are never transferred
twice and identical files share storage.`,
		Subcommands: []*cli.Command{
			createCommand(stdout),
			downloadCommand(stdout, stderr),
			deployCommand(stdout, stderr),
			pullCommand(stdout, stderr),
			showCommand(stdout),
			versionCommand(stdout),
		},
		Examples: []cli.Example{
			{
				Description: "Add a build output directory to a repository",
				Command:     "treesync create --repo /srv/treesync ./out",
			},
			{
				Description: "Fetch and deploy it on another machine",
				Command:     "treesync pull --url https://cache.example.com/treesync --store /var/lib/treesync --dest /opt/app <digest>",
			},
		},
	}
}

func versionCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(ctx context.Context, args []string) error {
			fmt.Fprintln(stdout, version.Full())
			return nil
		},
	}
}

// classify turns integrity and network failures into distinct exit
// codes, printing the error itself. Other errors pass through for main
// to print.
func classify(err error, stderr io.Writer) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrIntegrity):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return &cli.ExitError{Code: exitIntegrity}
	case errors.Is(err, repository.ErrNetwork):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return &cli.ExitError{Code: exitNetwork}
	default:
		return err
	}
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, names ...string) error {
	if len(args) != len(names) {
		return fmt.Errorf("expected %d argument(s) (%v), got %d", len(names), names, len(args))
	}
	return nil
}
