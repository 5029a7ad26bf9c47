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

// Command axle is the CLI front-end: a thin, replaceable entrypoint
// over the core library. It loads a YAML config of providers/agents/jobs,
// then runs one instruction, one DAG job, or one job in batch mode over a
// file set.
//
// Usage:
//
//	axle run --config config.yaml <agent> "<prompt>"
//	axle dag --config config.yaml <job>
//	axle batch --config config.yaml <job> <task-name> <files...>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/axle-run/axle/agent"
	"github.com/axle-run/axle/axlelog"
	"github.com/axle-run/axle/batch"
	"github.com/axle-run/axle/config"
	"github.com/axle-run/axle/dag"
	"github.com/axle-run/axle/instruction"
	"github.com/axle-run/axle/message"
	"github.com/axle-run/axle/telemetry"
	"github.com/axle-run/axle/trace"
)

// CLI defines the command-line interface.
type CLI struct {
	Config    string `short:"c" required:"" help:"Path to YAML config file (llms, agents, jobs, tools)." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
	Trace     bool   `help:"Enable the stdout OpenTelemetry exporter."`
	Watch     bool   `help:"Watch the config file and re-validate on change (reload errors are logged, never fatal)."`

	Run     RunCmd     `cmd:"" help:"Run a single instruction against a named agent."`
	Dag     DagCmd     `cmd:"" help:"Run a named DAG job to completion."`
	Batch   BatchCmd   `cmd:"" help:"Run a named job in batch mode over a set of input files."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("axle version %s\n", version)
	return nil
}

// RunCmd runs a single instruction against one configured agent.
type RunCmd struct {
	Agent  string   `arg:"" help:"Agent name, as defined under config's llms:/agents:."`
	Prompt string   `arg:"" help:"Instruction template text."`
	Var    []string `name:"var" help:"Seed variable as key=value; repeatable." placeholder:"KEY=VALUE"`
}

func (c *RunCmd) Run(cli *CLI, cfg *config.Config) error {
	providers, models, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	allTools, err := buildTools(cfg)
	if err != nil {
		return err
	}
	rt, err := resolveAgent(cfg, providers, models, allTools, c.Agent)
	if err != nil {
		return err
	}

	vars, err := parseVars(c.Var)
	if err != nil {
		return err
	}
	rendered, err := instruction.New(c.Prompt).Render(instruction.MapScope(vars), instruction.Options{})
	if err != nil {
		return fmt.Errorf("render prompt: %w", err)
	}

	ag := agent.New(rt.provider, rt.model, rt.tools, rt.system)
	ag.MaxIterations = rt.maxIter
	ag.Tracer = tracerFromFlag(cli.Trace)

	ctx, cancel := signalContext()
	defer cancel()

	result := ag.Run(ctx, message.NewUserText(rendered))
	if result.Err != nil {
		return fmt.Errorf("run: %w", result.Err)
	}
	fmt.Println(result.Final.TextContent())
	return nil
}

// DagCmd runs a named job's DAG to completion.
type DagCmd struct {
	Job             string   `arg:"" help:"Job name, as defined under config's jobs:."`
	Var             []string `name:"var" help:"Seed variable as key=value; repeatable." placeholder:"KEY=VALUE"`
	MaxConcurrency  int      `name:"max-concurrency" help:"Override the job's configured max_concurrency."`
	ContinueOnError bool     `name:"continue-on-error" help:"Override the job's configured continue_on_error."`
}

func (c *DagCmd) Run(cli *CLI, cfg *config.Config) error {
	job, ok := cfg.GetJob(c.Job)
	if !ok {
		return fmt.Errorf("job %q is not defined", c.Job)
	}

	providers, models, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	allTools, err := buildTools(cfg)
	if err != nil {
		return err
	}
	rt, err := resolveAgent(cfg, providers, models, allTools, job.Agent)
	if err != nil {
		return err
	}

	def, err := compileJob(*job)
	if err != nil {
		return err
	}
	plan, err := dag.Parse(def)
	if err != nil {
		return fmt.Errorf("parse job %q: %w", c.Job, err)
	}

	seed, err := parseVars(c.Var)
	if err != nil {
		return err
	}

	maxConcurrency := job.MaxConcurrency
	if c.MaxConcurrency > 0 {
		maxConcurrency = c.MaxConcurrency
	}

	sched := &dag.Scheduler{
		Provider:           rt.provider,
		Model:              rt.model,
		System:             rt.system,
		Tools:              rt.tools,
		Tracer:             tracerFromFlag(cli.Trace),
		Metrics:            telemetry.NewMetrics(),
		MaxConcurrency:     maxConcurrency,
		ContinueOnError:    job.ContinueOnError || c.ContinueOnError,
		AgentMaxIterations: job.AgentMaxIterations,
	}

	ctx, cancel := signalContext()
	defer cancel()

	result := sched.Execute(ctx, plan, seed)
	if !result.Success {
		return fmt.Errorf("dag %q failed: %w", c.Job, result.Error)
	}
	out, err := json.MarshalIndent(result.Response, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// BatchCmd runs a named job's DAG once per input file, skipping files
// already recorded in the idempotency ledger.
type BatchCmd struct {
	Job        string   `arg:"" help:"Job name, as defined under config's jobs:."`
	Task       string   `arg:"" help:"Task name mixed into the ledger's content hash."`
	Files      []string `arg:"" help:"Input files to process."`
	LedgerPath string   `name:"ledger" default:".axle/batch.jsonl" help:"Path to the idempotency ledger file." type:"path"`
}

func (c *BatchCmd) Run(cli *CLI, cfg *config.Config) error {
	job, ok := cfg.GetJob(c.Job)
	if !ok {
		return fmt.Errorf("job %q is not defined", c.Job)
	}

	providers, models, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	allTools, err := buildTools(cfg)
	if err != nil {
		return err
	}
	rt, err := resolveAgent(cfg, providers, models, allTools, job.Agent)
	if err != nil {
		return err
	}

	def, err := compileJob(*job)
	if err != nil {
		return err
	}
	plan, err := dag.Parse(def)
	if err != nil {
		return fmt.Errorf("parse job %q: %w", c.Job, err)
	}

	ledger, err := batch.Load(c.LedgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	sched := &dag.Scheduler{
		Provider:        rt.provider,
		Model:           rt.model,
		System:          rt.system,
		Tools:           rt.tools,
		Tracer:          tracerFromFlag(cli.Trace),
		Metrics:         telemetry.NewMetrics(),
		MaxConcurrency:  job.MaxConcurrency,
		ContinueOnError: job.ContinueOnError,
	}

	ctx, cancel := signalContext()
	defer cancel()

	var failures int
	for _, path := range c.Files {
		contents, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: read: %v\n", path, err)
			failures++
			continue
		}
		hash := batch.HashTaskFile(c.Task, contents)
		if ledger.Skip(path, hash) {
			fmt.Printf("%s: skipped (already processed)\n", path)
			continue
		}

		seed := map[string]any{"file": path, "task": c.Task, "content": string(contents)}
		result := sched.Execute(ctx, plan, seed)
		if !result.Success {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, result.Error)
			failures++
			continue
		}
		if err := ledger.Record(path, hash); err != nil {
			fmt.Fprintf(os.Stderr, "%s: record ledger: %v\n", path, err)
		}
		fmt.Printf("%s: done\n", path)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(c.Files))
	}
	return nil
}

func parseVars(raw []string) (map[string]any, error) {
	vars := make(map[string]any, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", kv)
		}
		vars[name] = value
	}
	return vars, nil
}

func tracerFromFlag(enabled bool) trace.Tracer {
	if !enabled {
		return trace.Noop()
	}
	if _, err := telemetry.InitGlobalTracerProvider(context.Background(), telemetry.Config{
		Enabled: true, ServiceName: "axle", SamplingRate: 1,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "tracing: %v\n", err)
		return trace.Noop()
	}
	return telemetry.NewTracer("axle")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func main() {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("axle"),
		kong.Description("axle - multi-step LLM orchestration"),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	level, _ := axlelog.ParseLevel(cli.LogLevel)
	axlelog.Init(level, os.Stderr, cli.LogFormat)

	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if cli.Watch {
		// An in-flight run keeps the config it started with; the watcher
		// validates edits as they land so the next invocation doesn't fail
		// cold.
		watcher, err := config.Watch(cli.Config, func(*config.Config) {})
		if err != nil {
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			os.Exit(1)
		}
		defer watcher.Close()
	}

	ctx.FatalIfErrorf(ctx.Run(&cli, cfg))
}
