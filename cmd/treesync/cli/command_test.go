// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "treesync",
		Subcommands: []*Command{
			{
				Name: "create",
				Run: func(ctx context.Context, args []string) error {
					called = "create"
					return nil
				},
			},
			{
				Name: "pull",
				Run: func(ctx context.Context, args []string) error {
					called = "pull"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"pull"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "pull" {
		t.Errorf("dispatched to %q, want %q", called, "pull")
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var store string
	var received []string

	command := &Command{
		Name: "download",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("download", pflag.ContinueOnError)
			flagSet.StringVar(&store, "store", "", "store directory")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			received = args
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--store", "/var/store", "abc"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if store != "/var/store" {
		t.Errorf("store = %q, want %q", store, "/var/store")
	}
	if len(received) != 1 || received[0] != "abc" {
		t.Errorf("args = %v, want [abc]", received)
	}
}

func TestCommand_Execute_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var seen any
	command := &Command{
		Name: "show",
		Run: func(ctx context.Context, args []string) error {
			seen = ctx.Value(key{})
			return nil
		},
	}
	if err := command.Execute(ctx, nil); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if seen != "marker" {
		t.Errorf("context value = %v, want marker", seen)
	}
}

func TestCommand_Execute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "treesync",
		Subcommands: []*Command{
			{Name: "deploy", Run: func(ctx context.Context, args []string) error { return nil }},
			{Name: "download", Run: func(ctx context.Context, args []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"deplyo"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "deploy"`) {
		t.Errorf("error %q does not suggest deploy", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "pull",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pull", pflag.ContinueOnError)
			flagSet.String("dest", "", "deploy directory")
			flagSet.Int("concurrency", 4, "parallel downloads")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--concurency", "8"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --concurrency?") {
		t.Errorf("error %q does not suggest --concurrency", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name: "treesync",
		Subcommands: []*Command{
			{Name: "create", Run: func(ctx context.Context, args []string) error { return nil }},
		},
	}

	var help bytes.Buffer
	err := root.execute(context.Background(), nil, &help)
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Fatalf("Execute() error = %v, want subcommand required", err)
	}
	if !strings.Contains(help.String(), "create") {
		t.Errorf("help output does not list subcommands:\n%s", help.String())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	root := &Command{Name: "treesync"}
	command := &Command{
		Name:        "create",
		Summary:     "Add a directory to a repository",
		Description: "Chunk, compress, and record a directory tree.",
		Usage:       "treesync create --repo DIR SOURCE",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			flagSet.String("repo", "", "repository directory")
			return flagSet
		},
		Examples: []Example{
			{Description: "Publish a build", Command: "treesync create --repo /srv/repo ./out"},
		},
		parent: root,
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Chunk, compress, and record a directory tree.",
		"treesync create --repo DIR SOURCE",
		"--repo",
		"# Publish a build",
		"treesync create --repo /srv/repo ./out",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q:\n%s", want, output)
		}
	}
}

func TestCommand_HelpFlag(t *testing.T) {
	ran := false
	command := &Command{
		Name: "show",
		Run: func(ctx context.Context, args []string) error {
			ran = true
			return nil
		},
	}

	var help bytes.Buffer
	if err := command.execute(context.Background(), []string{"--help"}, &help); err != nil {
		t.Fatalf("execute(--help) error: %v", err)
	}
	if ran {
		t.Error("Run was called for --help")
	}
	if !strings.Contains(help.String(), "Usage:") {
		t.Errorf("help output missing usage:\n%s", help.String())
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "treesync"}
	child := &Command{Name: "pull", parent: root}
	if got := child.fullName(); got != "treesync pull" {
		t.Errorf("fullName() = %q, want %q", got, "treesync pull")
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 3}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok {
		t.Fatal("ExitError does not implement ExitCode")
	}
	if coder.ExitCode() != 3 {
		t.Errorf("ExitCode() = %d, want 3", coder.ExitCode())
	}
	if err.Error() != "exit code 3" {
		t.Errorf("Error() = %q", err.Error())
	}
}
