// Package axle implements a provider-neutral agent orchestration core: a
// canonical message model, a streaming chunk alphabet and reducer, a tool
// registry, an agent turn-loop, an instruction template compiler, a tagged
// response parser, and a DAG scheduler for multi-step workflows.
//
// # Quick Start
//
// Import the packages relevant to your use case:
//
//	import (
//	    "github.com/axle-run/axle/agent"
//	    "github.com/axle-run/axle/dag"
//	    "github.com/axle-run/axle/llmprovider"
//	    "github.com/axle-run/axle/tool"
//	)
//
// A single agent turn-loop against an OpenAI-compatible provider:
//
//	provider := llmprovider.NewOpenAI(llmprovider.OpenAIConfig{APIKey: key})
//	a := agent.New(provider, "gpt-4o-mini", tool.NewRegistry(), "You are concise.")
//	result := a.Run(ctx, message.NewUserText("summarize this repo"))
//
// A multi-node DAG wires several such turn-loops together, threading each
// node's output into the next node's instruction template and collapsing
// tagged terminal text into typed fields via the response parser.
//
// # Key Concepts
//
//   - Canonical message model: every provider's wire format folds into one
//     Message shape before anything downstream sees it.
//   - Streaming chunk alphabet: text/thinking/tool-call/usage deltas reduce
//     into a single terminal message regardless of provider transport.
//   - Tool registry: a name-keyed set of Tool implementations the turn-loop
//     dispatches function_call turns against, sequentially, in part order.
//   - Instruction templates: `{{name}}` placeholder substitution against a
//     node's resolved variable scope, with strict-mode and nested-field
//     rejection as documented in each package.
//   - DAG scheduler: topologically staged, bounded-concurrency execution of
//     dependent nodes with copy-on-read variable snapshots.
//
// # Status
//
// This module is under active development; APIs may still change between
// minor versions.
package axle
