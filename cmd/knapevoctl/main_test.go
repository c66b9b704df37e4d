package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"knapevo/internal/stats"
)

const scenarioCSV = `id,value,cost,flag
1,10,5,0
2,6,4,0
3,8,3,0
4,4,2,0
`

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	if err := os.WriteFile(filepath.Join(workdir, "items.csv"), []byte(scenarioCSV), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return workdir
}

func TestRunCommandCreatesArtifacts(t *testing.T) {
	chdirTemp(t)

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--data", "items.csv",
			"--capacity", "7",
			"--pop", "50",
			"--gens", "30",
			"--seed", "11",
			"--workers", "2",
			"--log-level", "error",
			"--plot",
		})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "best fitness achieved: 14\n") {
		t.Fatalf("expected best fitness report, got:\n%s", out)
	}
	if strings.Count(out, "generation=") < 30 {
		t.Fatalf("expected per-generation lines, got:\n%s", out)
	}

	entries, err := stats.ListRunIndex("benchmarks")
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	runID := entries[0].RunID
	for _, file := range []string{"config.json", "fitness_history.json", "fitness_history.csv", "best_candidate.json", "summary.json", stats.ChartFile} {
		if _, err := os.Stat(filepath.Join("benchmarks", runID, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}
}

func TestReadCommandsUseRecordedRun(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()

	if _, err := captureStdout(func() error {
		return run(ctx, []string{"run", "--data", "items.csv", "--capacity", "7", "--pop", "20", "--gens", "6", "--seed", "3", "--quiet", "--log-level", "error"})
	}); err != nil {
		t.Fatalf("run command: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(ctx, []string{"runs", "--limit", "5"})
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(out, "dataset=items") || !strings.Contains(out, "created=\"") {
		t.Fatalf("unexpected runs output:\n%s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"fitness", "--latest", "--limit", "3"})
	})
	if err != nil {
		t.Fatalf("fitness command: %v", err)
	}
	if strings.Count(out, "generation=") != 3 {
		t.Fatalf("expected 3 generation lines, got:\n%s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"best", "--latest"})
	})
	if err != nil {
		t.Fatalf("best command: %v", err)
	}
	if !strings.Contains(out, "best fitness achieved:") || !strings.Contains(out, "bits=") {
		t.Fatalf("unexpected best output:\n%s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"plot", "--latest", "--out", filepath.Join("charts", "latest.png")})
	})
	if err != nil {
		t.Fatalf("plot command: %v", err)
	}
	if _, err := os.Stat(filepath.Join("charts", "latest.png")); err != nil {
		t.Fatalf("expected chart: %v (%s)", err, out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"export", "--latest", "--out", "exported"})
	})
	if err != nil {
		t.Fatalf("export command: %v", err)
	}
	if !strings.Contains(out, "exported run_id=") {
		t.Fatalf("unexpected export output:\n%s", out)
	}
}

func TestRunCommandWithConfigAndBadgerStore(t *testing.T) {
	workdir := chdirTemp(t)
	config := `dataset: items.csv
capacity: 7
population: 30
generations: 50
seed: 21
penalty: death
`
	if err := os.WriteFile(filepath.Join(workdir, "run.yaml"), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--config", "run.yaml",
			"--gens", "5",
			"--store", "badger",
			"--db-path", filepath.Join(workdir, "runs.badger"),
			"--quiet",
			"--log-level", "error",
		})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "pop=30 gens=5 mutation=0.25 seed=21") {
		t.Fatalf("expected config values with flag override, got:\n%s", out)
	}

	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"best", "--latest", "--store", "badger", "--db-path", filepath.Join(workdir, "runs.badger")})
	})
	if err != nil {
		t.Fatalf("best command: %v", err)
	}
	if !strings.Contains(out, "feasible=true") {
		t.Fatalf("death penalty best should be feasible, got:\n%s", out)
	}
}

func TestRunShowAndDeleteCommands(t *testing.T) {
	workdir := chdirTemp(t)
	ctx := context.Background()
	config := `{"dataset": "items.csv", "capacity": 7}`
	if err := os.WriteFile(filepath.Join(workdir, "run.json"), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(ctx, []string{"run", "--config", "run.json", "--gens", "3", "--seed", "0", "--quiet", "--log-level", "error"})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "pop=500 gens=3 mutation=0.25 seed=0 ") {
		t.Fatalf("expected resolved defaults in run line, got:\n%s", out)
	}

	entries, err := stats.ListRunIndex("benchmarks")
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d (err=%v)", len(entries), err)
	}
	runID := entries[0].RunID

	out, err = captureStdout(func() error {
		return run(ctx, []string{"show", "--latest"})
	})
	if err != nil {
		t.Fatalf("show command: %v", err)
	}
	if !strings.Contains(out, "run_id="+runID) || !strings.Contains(out, "pop=500 gens=3") || !strings.Contains(out, "final_best=") {
		t.Fatalf("unexpected show output:\n%s", out)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"delete", "--run-id", runID})
	})
	if err != nil {
		t.Fatalf("delete command: %v", err)
	}
	if !strings.Contains(out, "deleted run_id="+runID) {
		t.Fatalf("unexpected delete output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join("benchmarks", runID)); !os.IsNotExist(err) {
		t.Fatalf("expected run artifacts removed, got err=%v", err)
	}

	out, err = captureStdout(func() error {
		return run(ctx, []string{"runs"})
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(out, "no runs found") {
		t.Fatalf("expected empty run list after delete, got:\n%s", out)
	}
}

func TestBenchmarkCommand(t *testing.T) {
	chdirTemp(t)

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"benchmark",
			"--data", "items.csv",
			"--capacity", "7",
			"--pop", "30",
			"--gens", "5",
			"--runs", "3",
			"--target", "14",
			"--log-level", "error",
		})
	})
	if err != nil {
		t.Fatalf("benchmark command: %v", err)
	}
	if strings.Count(out, "run_id=") != 3 || !strings.Contains(out, "benchmark completed") || !strings.Contains(out, "success=") {
		t.Fatalf("unexpected benchmark output:\n%s", out)
	}
}

func TestGenerateCommand(t *testing.T) {
	chdirTemp(t)

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"generate", "--out", filepath.Join("data", "random.csv"), "--items", "30", "--seed", "4"})
	})
	if err != nil {
		t.Fatalf("generate command: %v", err)
	}
	if !strings.Contains(out, "items=30") || !strings.Contains(out, "suggested_capacity=") {
		t.Fatalf("unexpected generate output:\n%s", out)
	}

	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"run", "--data", filepath.Join("data", "random.csv"), "--capacity-ratio", "0.5", "--pop", "20", "--gens", "3", "--quiet", "--log-level", "error"})
	}); err != nil {
		t.Fatalf("run on generated dataset: %v", err)
	}
}

func TestCommandValidation(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()

	cases := [][]string{
		nil,
		{"unknown"},
		{"run"},
		{"run", "--data", "items.csv", "--capacity", "7", "--selection", "rank", "--log-level", "error"},
		{"fitness"},
		{"fitness", "--run-id", "x", "--latest"},
		{"best"},
		{"plot"},
		{"export"},
		{"show"},
		{"show", "--run-id", "x", "--latest"},
		{"delete"},
		{"generate"},
		{"runs", "--limit", "0"},
		{"benchmark", "--data", "items.csv", "--runs", "0"},
	}
	for _, args := range cases {
		if _, err := captureStdout(func() error { return run(ctx, args) }); err == nil {
			t.Fatalf("expected error for args %v", args)
		}
	}
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}
