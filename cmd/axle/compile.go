// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/axle-run/axle/config"
	"github.com/axle-run/axle/dag"
	"github.com/axle-run/axle/instruction"
	"github.com/axle-run/axle/llm"
	"github.com/axle-run/axle/llmprovider"
	"github.com/axle-run/axle/parser"
	"github.com/axle-run/axle/pkg/httpclient"
	"github.com/axle-run/axle/tool"
	"github.com/axle-run/axle/tools"
)

// buildProviders builds one llm.Provider per configured `llms:` entry, sharing a
// single retrying httpclient.Client.
func buildProviders(cfg *config.Config) (map[string]llm.Provider, map[string]string, error) {
	client := httpclient.New()
	providers := make(map[string]llm.Provider, len(cfg.LLMs))
	models := make(map[string]string, len(cfg.LLMs))
	for name, llmCfg := range cfg.LLMs {
		p, err := llmprovider.New(llmprovider.Settings{Type: llmCfg.Type, APIKey: llmCfg.APIKey, BaseURL: llmCfg.BaseURL}, client)
		if err != nil {
			return nil, nil, fmt.Errorf("llms.%s: %w", name, err)
		}
		providers[name] = p
		models[name] = llmCfg.Model
	}
	return providers, models, nil
}

// buildTools constructs the registry of reference tools enabled under
// `tools:`.
func buildTools(cfg *config.Config) (*tool.Registry, error) {
	reg := tool.NewRegistry()
	if cfg.Tools.Command.Enabled {
		if err := reg.Register(tools.NewCommandTool(tools.CommandConfig{
			AllowedCommands:  cfg.Tools.Command.AllowedCommands,
			WorkingDirectory: cfg.Tools.Command.WorkingDirectory,
			MaxExecutionTime: secondsToDuration(cfg.Tools.Command.TimeoutSeconds),
		})); err != nil {
			return nil, fmt.Errorf("tools.command: %w", err)
		}
	}
	if cfg.Tools.File.Enabled {
		if err := reg.Register(tools.NewFileReadTool(cfg.Tools.File.Root)); err != nil {
			return nil, fmt.Errorf("tools.file: %w", err)
		}
	}
	return reg, nil
}

// agentRuntime bundles one resolved agent's provider, model, and tool
// subset, ready to hand to agent.New or a dag.Scheduler.
type agentRuntime struct {
	provider llm.Provider
	model    string
	system   string
	tools    *tool.Registry
	maxIter  int
}

func resolveAgent(cfg *config.Config, providers map[string]llm.Provider, models map[string]string, allTools *tool.Registry, agentName string) (*agentRuntime, error) {
	agentCfg, ok := cfg.Agents[agentName]
	if !ok {
		return nil, fmt.Errorf("agent %q is not defined", agentName)
	}
	p, ok := providers[agentCfg.LLM]
	if !ok {
		return nil, fmt.Errorf("agent %q references undefined llm %q", agentName, agentCfg.LLM)
	}

	scoped := allTools
	if len(agentCfg.Tools) > 0 {
		scoped = tool.NewRegistry()
		for _, name := range agentCfg.Tools {
			t, ok := allTools.Get(name)
			if !ok {
				return nil, fmt.Errorf("agent %q references undefined tool %q", agentName, name)
			}
			if err := scoped.Register(t); err != nil {
				return nil, err
			}
		}
	}

	return &agentRuntime{
		provider: p,
		model:    models[agentCfg.LLM],
		system:   agentCfg.SystemPrompt,
		tools:    scoped,
		maxIter:  agentCfg.MaxIterations,
	}, nil
}

// compileJob translates a config.JobConfig's node map into a dag.Definition,
// compiling each node's prompt/schema/action into the shapes dag.Parse
// expects.
func compileJob(job config.JobConfig) (dag.Definition, error) {
	def := make(dag.Definition, len(job.Nodes))
	for id, node := range job.Nodes {
		steps, err := compileSteps(node)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		def[id] = dag.NodeSteps(steps...).WithDeps(node.DependsOn...)
	}
	return def, nil
}

func compileSteps(node config.NodeConfig) ([]dag.Step, error) {
	if node.Prompt != "" {
		schema, err := compileSchema(node.Schema)
		if err != nil {
			return nil, err
		}
		return []dag.Step{dag.InstructionStep(dag.Instruction{
			Template: instruction.New(node.Prompt),
			Schema:   schema,
		})}, nil
	}

	steps := make([]dag.Step, 0, len(node.Steps))
	for i, sc := range node.Steps {
		if sc.Action != "" {
			action, err := lookupAction(sc.Action, sc.With)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			steps = append(steps, dag.ActionStep(action))
			continue
		}
		schema, err := compileSchema(sc.Schema)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, dag.InstructionStep(dag.Instruction{
			Name:            sc.Name,
			Template:        instruction.New(sc.Prompt),
			Schema:          schema,
			System:          sc.System,
			StrictVariables: sc.Strict,
		}))
	}
	return steps, nil
}

// compileSchema translates the YAML-friendly string vocabulary ("string",
// "number", "boolean", "string[]", "number[]", "boolean[]", "object", and an
// "optional_" prefix on any of those) into parser.Schema's typed Field enum.
func compileSchema(raw map[string]string) (parser.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(parser.Schema, len(raw))
	for name, kindStr := range raw {
		field, err := parseKind(kindStr)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = field
	}
	return out, nil
}

func parseKind(s string) (parser.Field, error) {
	optional := strings.HasPrefix(s, "optional_")
	s = strings.TrimPrefix(s, "optional_")

	var kind parser.Kind
	switch s {
	case "string":
		kind = parser.KindString
	case "number":
		kind = parser.KindNumber
	case "boolean":
		kind = parser.KindBoolean
	case "string[]":
		kind = parser.KindStringArray
	case "number[]":
		kind = parser.KindNumberArray
	case "boolean[]":
		kind = parser.KindBooleanArray
	case "object":
		kind = parser.KindObject
	default:
		return parser.Field{}, fmt.Errorf("unrecognized schema kind %q", s)
	}

	if optional {
		return parser.Field{Kind: parser.KindOptional, Inner: kind}, nil
	}
	return parser.Field{Kind: kind}, nil
}

// lookupAction resolves a named built-in Action. write_file is the one
// reference action shipped with the CLI; additional actions are a natural
// extension point for an embedding application.
func lookupAction(name string, with map[string]any) (dag.Action, error) {
	switch name {
	case "write_file":
		path, _ := with["path"].(string)
		if path == "" {
			return nil, fmt.Errorf(`write_file action requires a "path" argument`)
		}
		return func(ctx context.Context, scope instruction.Scope) (any, error) {
			v, _ := scope.Get("response")
			if err := os.WriteFile(path, []byte(dag.Stringify(v)), 0o644); err != nil {
				return nil, fmt.Errorf("write_file: %w", err)
			}
			return map[string]any{"path": path}, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", name)
	}
}

func secondsToDuration(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
