package trace_test

import (
	"context"
	"testing"

	"github.com/axle-run/axle/trace"
)

func TestNoop_StartReturnsUsableSpan(t *testing.T) {
	tracer := trace.Noop()
	ctx, span := tracer.Start(context.Background(), "run", trace.KindRun)
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if span == nil {
		t.Fatal("expected non-nil span")
	}
}

func TestNoop_NestedSpansDoNothing(t *testing.T) {
	tracer := trace.Noop()
	ctx, root := tracer.Start(context.Background(), "run", trace.KindRun)
	_, child := root.Start(ctx, "node", trace.KindNode)

	// None of these should panic; a Noop tracer discards everything.
	child.SetAttr("key", "value")
	child.Event("started", map[string]any{"n": 1})
	child.End(trace.StatusOK)
	root.End(trace.StatusOK)
}

func TestNoop_EndIsIdempotent(t *testing.T) {
	tracer := trace.Noop()
	_, span := tracer.Start(context.Background(), "run", trace.KindRun)
	span.End(trace.StatusOK)
	span.End(trace.StatusError) // must not panic on a second call
}
