package batch_test

import (
	"path/filepath"
	"testing"

	"github.com/axle-run/axle/batch"
)

// TestLedger_ResumeSkipsProcessedFiles exercises crash-resume: f1 and f2
// succeed and are recorded; a second run with identical contents skips
// them but still attempts f3, and a changed f1 is reprocessed.
func TestLedger_ResumeSkipsProcessedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.jsonl")

	task := "summarize"
	f1 := []byte("file one contents")
	f2 := []byte("file two contents")
	f3 := []byte("file three contents")

	l, err := batch.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	h1 := batch.HashTaskFile(task, f1)
	h2 := batch.HashTaskFile(task, f2)
	h3 := batch.HashTaskFile(task, f3)

	if l.Skip("f1", h1) || l.Skip("f2", h2) || l.Skip("f3", h3) {
		t.Fatal("expected nothing skipped on a fresh ledger")
	}

	if err := l.Record("f1", h1); err != nil {
		t.Fatalf("record f1: %v", err)
	}
	if err := l.Record("f2", h2); err != nil {
		t.Fatalf("record f2: %v", err)
	}
	// f3 "crashes" and is never recorded.
	l.Close()

	// Second run: reload the ledger from disk.
	resumed, err := batch.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer resumed.Close()

	if !resumed.Skip("f1", h1) {
		t.Error("expected f1 to be skipped on resume")
	}
	if !resumed.Skip("f2", h2) {
		t.Error("expected f2 to be skipped on resume")
	}
	if resumed.Skip("f3", h3) {
		t.Error("expected f3 to still be attempted")
	}

	// f1's contents changed: its hash no longer matches the ledger entry,
	// so it must be reprocessed.
	changedF1 := []byte("file one contents, but edited")
	changedHash := batch.HashTaskFile(task, changedF1)
	if resumed.Skip("f1", changedHash) {
		t.Error("expected changed f1 to be reprocessed, not skipped")
	}
}

func TestHashTaskFile_DifferentTaskDifferentHash(t *testing.T) {
	content := []byte("same content")
	h1 := batch.HashTaskFile("task-a", content)
	h2 := batch.HashTaskFile("task-b", content)
	if h1 == h2 {
		t.Error("expected different tasks to hash differently for identical content")
	}
}

func TestHashTaskFile_Deterministic(t *testing.T) {
	content := []byte("same content")
	h1 := batch.HashTaskFile("task", content)
	h2 := batch.HashTaskFile("task", content)
	if h1 != h2 {
		t.Error("expected identical inputs to hash identically")
	}
}
