package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/axle-run/axle/tools"
)

func TestFileReadTool_ReadsFileUnderRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("file contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	ft := tools.NewFileReadTool(dir)
	res, err := ft.Execute(context.Background(), map[string]any{"path": "notes.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "file contents" {
		t.Errorf("got %q", res.Text)
	}
}

func TestFileReadTool_RejectsPathEscapingRoot(t *testing.T) {
	ft := tools.NewFileReadTool(t.TempDir())
	if _, err := ft.Execute(context.Background(), map[string]any{"path": "../outside.txt"}); err == nil {
		t.Error("expected a path escaping the root to be rejected")
	}
}

func TestFileReadTool_MissingPathParameter(t *testing.T) {
	ft := tools.NewFileReadTool(t.TempDir())
	if _, err := ft.Execute(context.Background(), map[string]any{}); err == nil {
		t.Error("expected an error when path is absent")
	}
}

func TestFileReadTool_MissingFileSurfacesError(t *testing.T) {
	ft := tools.NewFileReadTool(t.TempDir())
	if _, err := ft.Execute(context.Background(), map[string]any{"path": "does-not-exist.txt"}); err == nil {
		t.Error("expected an error for a nonexistent file")
	}
}
