package dag_test

// End-to-end scenarios driving the full scheduler → agent → reducer →
// parser stack through a scripted provider. The linear and fan-out/fan-in
// shapes (plus cycle rejection) live in scheduler_test.go and parse_test.go;
// this file covers the tool-loop and cancellation paths, which need richer
// provider stubs. Batch resume lives with the ledger in batch/.

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/axle-run/axle/axerr"
	"github.com/axle-run/axle/dag"
	"github.com/axle-run/axle/llm"
	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/stream"
	"github.com/axle-run/axle/tool"
)

// turnScriptProvider replays one chunk batch per Stream call, in call order,
// letting a single DAG node run a multi-turn tool conversation.
type turnScriptProvider struct {
	mu    sync.Mutex
	turns [][]stream.Chunk
	calls int
}

func (p *turnScriptProvider) Name() string { return "turn-script" }

func (p *turnScriptProvider) Generate(ctx context.Context, model string, req llm.Request) (*llm.ModelResponse, error) {
	return nil, fmt.Errorf("turnScriptProvider: Generate not used")
}

func (p *turnScriptProvider) Stream(ctx context.Context, model string, req llm.Request) (<-chan stream.Chunk, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.mu.Unlock()

	if idx >= len(p.turns) {
		return nil, fmt.Errorf("turnScriptProvider: no script for turn %d", idx)
	}
	ch := make(chan stream.Chunk, len(p.turns[idx]))
	for _, c := range p.turns[idx] {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// calcTool is a calculator stub recording the arguments it was called with.
type calcTool struct {
	mu       sync.Mutex
	lastArgs map[string]any
}

func (c *calcTool) Definition() tool.Definition {
	return tool.Definition{Name: "calc", Description: "adds two numbers"}
}

func (c *calcTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	c.mu.Lock()
	c.lastArgs = args
	c.mu.Unlock()
	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)
	return tool.TextResult(fmt.Sprintf("%g", a+b)), nil
}

// TestExecute_ToolLoopNode drives a single-node DAG whose instruction needs
// one tool round-trip: turn 1 ends in function_call with a calc invocation,
// the tool returns "5", turn 2 produces the parseable terminal text.
func TestExecute_ToolLoopNode(t *testing.T) {
	provider := &turnScriptProvider{turns: [][]stream.Chunk{
		{
			{Type: stream.ChunkStart, MessageID: "m1", Model: "test"},
			{Type: stream.ChunkToolCallStart, PartIndex: 0, CallID: "call-1", ToolName: "calc"},
			{Type: stream.ChunkToolCallComplete, PartIndex: 0, CallID: "call-1", ToolName: "calc", ArgsJSON: `{"op":"add","a":2,"b":3}`},
			{Type: stream.ChunkComplete, FinishReason: message.FinishFunctionCall, InputTokens: 1, OutputTokens: 1},
		},
		{
			{Type: stream.ChunkStart, MessageID: "m2", Model: "test"},
			{Type: stream.ChunkTextStart, PartIndex: 0},
			{Type: stream.ChunkTextDelta, PartIndex: 0, Text: "<response>5</response>"},
			{Type: stream.ChunkTextComplete, PartIndex: 0},
			{Type: stream.ChunkComplete, FinishReason: message.FinishStop, InputTokens: 1, OutputTokens: 1},
		},
	}}

	calc := &calcTool{}
	registry := tool.NewRegistry()
	if err := registry.Register(calc); err != nil {
		t.Fatal(err)
	}

	def := dag.Definition{
		"solve": dag.Node(instrWithSchema("what is 2+3?")),
	}
	plan, err := dag.Parse(def)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	sched := &dag.Scheduler{Provider: provider, Model: "test", Tools: registry}
	res := sched.Execute(context.Background(), plan, nil)

	if !res.Success {
		t.Fatalf("expected success, got error: %+v", res.Error)
	}
	solved := res.Response["solve"].(map[string]any)
	if solved["response"] != "5" {
		t.Errorf("solve.response = %v", solved["response"])
	}
	if calc.lastArgs["op"] != "add" || calc.lastArgs["a"].(float64) != 2 || calc.lastArgs["b"].(float64) != 3 {
		t.Errorf("unexpected tool arguments: %+v", calc.lastArgs)
	}
	// Both scripted turns must have been consumed: generation, tool, generation.
	if provider.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.calls)
	}
	if res.Usage.InputTokens != 2 || res.Usage.OutputTokens != 2 {
		t.Errorf("expected usage accumulated across both turns, got %+v", res.Usage)
	}
}

// hangingStreamProvider emits a text prefix and then blocks until the
// caller's context is cancelled, never completing the turn.
type hangingStreamProvider struct {
	started chan struct{}
}

func (p *hangingStreamProvider) Name() string { return "hanging" }

func (p *hangingStreamProvider) Generate(ctx context.Context, model string, req llm.Request) (*llm.ModelResponse, error) {
	return nil, fmt.Errorf("hangingStreamProvider: Generate not used")
}

func (p *hangingStreamProvider) Stream(ctx context.Context, model string, req llm.Request) (<-chan stream.Chunk, error) {
	ch := make(chan stream.Chunk)
	go func() {
		ch <- stream.Chunk{Type: stream.ChunkStart, MessageID: "m", Model: model}
		ch <- stream.Chunk{Type: stream.ChunkTextStart, PartIndex: 0}
		ch <- stream.Chunk{Type: stream.ChunkTextDelta, PartIndex: 0, Text: "partial answer"}
		close(p.started)
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// TestExecute_CancellationSurfacesCancelledError cancels a DAG run while its
// only node's stream is in flight and verifies the scheduler surfaces a
// cancelled-kind error rather than hanging or reporting success.
func TestExecute_CancellationSurfacesCancelledError(t *testing.T) {
	provider := &hangingStreamProvider{started: make(chan struct{})}
	def := dag.Definition{
		"slow": dag.Node(instrWithSchema("never finishes")),
	}
	plan, err := dag.Parse(def)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &dag.Scheduler{Provider: provider, Model: "test"}

	resCh := make(chan dag.Result, 1)
	go func() { resCh <- sched.Execute(ctx, plan, nil) }()

	<-provider.started
	cancel()

	select {
	case res := <-resCh:
		if res.Success {
			t.Fatal("expected failure after cancellation")
		}
		if res.Error == nil || res.Error.Kind != axerr.KindCancelled {
			t.Fatalf("expected cancelled error kind, got %+v", res.Error)
		}
		if res.Usage.InputTokens != 0 || res.Usage.OutputTokens != 0 {
			t.Errorf("expected zero usage for the cancelled turn, got %+v", res.Usage)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not observe cancellation")
	}
}
