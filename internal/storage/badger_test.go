package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBadgerStoreInMemoryContract(t *testing.T) {
	store := NewBadgerStore("")
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	exerciseStore(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "runs.badger")

	store := NewBadgerStore(dir)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("run-1", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewBadgerStore(dir)
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})

	run, ok, err := reopened.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || run.ID != "run-1" {
		t.Fatalf("expected persisted run after reopen, got ok=%t run=%+v", ok, run)
	}
}

func TestBadgerStoreRequiresInit(t *testing.T) {
	store := NewBadgerStore("")
	if _, _, err := store.GetRun(context.Background(), "run-1"); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
