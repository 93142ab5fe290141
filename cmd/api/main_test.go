package main

import "testing"

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "migrate", "addr", "secret", "idle-timeout", "seed-file", "pg-dsn", "local-path", "local-quota"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("expected flag --%s", name)
		}
	}
}

func TestRootCommandRejectsMissingSecret(t *testing.T) {
	t.Setenv("CONDO_AUTH_SECRET", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--local-path", t.TempDir() + "/condo.db"})
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected validation error without a secret")
	}
}
