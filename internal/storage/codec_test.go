package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"knapevo/internal/model"
)

func TestDecodeRunFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("minimal_run_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	run, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if run.ID != "run-minimal-1" {
		t.Fatalf("unexpected run id: %s", run.ID)
	}
	if run.BestFitness != 14 || run.PenaltyParam != 4 {
		t.Fatalf("unexpected run fitness fields: %+v", run)
	}
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	data, err := os.ReadFile(fixturePath("minimal_run_v0.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	_, err = DecodeRun(data)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestRunCodecRoundTrip(t *testing.T) {
	input := sampleRun("run-1", "2026-01-01T00:00:00Z")

	encoded, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRun(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != input {
		t.Fatalf("decoded run mismatch: got=%+v want=%+v", decoded, input)
	}
}

func TestStampVersion(t *testing.T) {
	run := StampVersion(model.RunRecord{ID: "run-1"})
	if run.SchemaVersion != CurrentSchemaVersion || run.CodecVersion != CurrentCodecVersion {
		t.Fatalf("expected current versions, got %+v", run.VersionedRecord)
	}
	if _, err := EncodeRun(run); err != nil {
		t.Fatalf("encode stamped run: %v", err)
	}
}

func TestDecodeFitnessHistoryRejectsGarbage(t *testing.T) {
	if _, err := DecodeFitnessHistory([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
