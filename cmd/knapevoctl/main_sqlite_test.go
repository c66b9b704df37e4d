//go:build sqlite

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunCommandSQLitePersistsRun(t *testing.T) {
	workdir := chdirTemp(t)
	dbPath := filepath.Join(workdir, "knapevo.db")

	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--store", "sqlite",
			"--db-path", dbPath,
			"--data", "items.csv",
			"--capacity", "7",
			"--pop", "20",
			"--gens", "4",
			"--seed", "5",
			"--quiet",
			"--log-level", "error",
		})
	}); err != nil {
		t.Fatalf("run command: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite db at %s: %v", dbPath, err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"fitness", "--latest", "--store", "sqlite", "--db-path", dbPath})
	})
	if err != nil {
		t.Fatalf("fitness command: %v", err)
	}
	if strings.Count(out, "generation=") != 4 {
		t.Fatalf("expected 4 generation lines, got:\n%s", out)
	}
}
