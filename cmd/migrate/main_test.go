package main

import (
	"strings"
	"testing"
)

func TestSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"up", "down", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected subcommand %q, got %v (%v)", name, cmd, err)
		}
	}
}

func TestUpRequiresDSN(t *testing.T) {
	t.Setenv("CONDO_REMOTE_DSN", "")
	root := newRootCmd()
	root.SetArgs([]string{"up"})
	root.SilenceErrors = true
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "missing DSN") {
		t.Fatalf("expected missing DSN error, got %v", err)
	}
}
