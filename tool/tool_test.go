package tool_test

import (
	"context"
	"testing"

	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/tool"
)

type echoTool struct{ name string }

func (e *echoTool) Definition() tool.Definition { return tool.Definition{Name: e.name} }
func (e *echoTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	return tool.TextResult("ok"), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := tool.NewRegistry()
	if err := r.Register(&echoTool{name: "echo"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := r.Get("echo")
	if !ok {
		t.Fatal("expected tool to be found")
	}
	if got.Definition().Name != "echo" {
		t.Errorf("got %q", got.Definition().Name)
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := tool.NewRegistry()
	_, ok := r.Get("missing")
	if ok {
		t.Error("expected ok=false")
	}
}

func TestRegistry_RegisterEmptyNameFails(t *testing.T) {
	r := tool.NewRegistry()
	err := r.Register(&echoTool{name: ""})
	if err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestRegistry_Definitions(t *testing.T) {
	r := tool.NewRegistry()
	r.Register(&echoTool{name: "a"})
	r.Register(&echoTool{name: "b"})

	defs := r.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
}

func TestResult_ToToolResultParts_TextOnly(t *testing.T) {
	r := tool.TextResult("hello")
	parts := r.ToToolResultParts()
	if len(parts) != 1 || parts[0].Text != "hello" {
		t.Errorf("got %+v", parts)
	}
}

func TestResult_ToToolResultParts_MixedParts(t *testing.T) {
	r := tool.PartsResult(
		message.ToolResultPart{Text: "commentary"},
		message.ToolResultPart{ImageData: []byte{1, 2, 3}, ImageMime: "image/png"},
	)
	parts := r.ToToolResultParts()
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].Text != "commentary" {
		t.Errorf("part 0 = %+v", parts[0])
	}
	if parts[1].ImageMime != "image/png" {
		t.Errorf("part 1 = %+v", parts[1])
	}
}
