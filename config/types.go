// Package config provides the YAML configuration shapes a CLI or embedding
// application loads to build the handful of things axle needs wired
// together: which LLM provider backs each named model, how agents and DAG
// jobs are defined, which reference tools are enabled, and how logging and
// tracing are configured.
package config

import "fmt"

// ============================================================================
// LLM PROVIDERS
// ============================================================================

// LLMProviderConfig describes one named provider entry under `llms:`. Type
// selects the concrete adapter (see llmprovider.New); APIKey and BaseURL
// typically come through as `${ENV_VAR}` references expanded by
// ExpandEnvVarsInData before this struct is populated.
type LLMProviderConfig struct {
	Type    string `yaml:"type"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// Validate checks that the provider type is one llmprovider.New recognizes
// and that API-key-bearing providers have one set.
func (c *LLMProviderConfig) Validate() error {
	switch c.Type {
	case "openai", "anthropic", "ollama":
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unsupported provider type %q", c.Type)
	}
	if c.Type != "ollama" && c.APIKey == "" {
		return fmt.Errorf("api_key is required for provider type %q", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// SetDefaults fills in a provider's Type when unset.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "openai"
	}
}

// ============================================================================
// AGENTS
// ============================================================================

// AgentConfig describes one named entry under `agents:`: the provider it
// calls through, its system prompt, and the tool names it may invoke
// (matched against the keys registered in Tools).
type AgentConfig struct {
	LLM           string   `yaml:"llm"`
	SystemPrompt  string   `yaml:"system_prompt,omitempty"`
	Tools         []string `yaml:"tools,omitempty"`
	MaxIterations int      `yaml:"max_iterations,omitempty"`
}

// Validate checks that the agent references a provider.
func (c *AgentConfig) Validate() error {
	if c.LLM == "" {
		return fmt.Errorf("llm is required")
	}
	return nil
}

// SetDefaults applies the documented turn-loop default (unbounded).
func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations < 0 {
		c.MaxIterations = 0
	}
}

// ============================================================================
// DAG JOBS
// ============================================================================

// StepConfig is one step of a node's step list, serialized form. A step is
// either a prompt (compiled to a dag.Instruction) or a named built-in action
// (compiled by the CLI to a dag.Action closure); exactly one of Prompt or
// Action should be set.
type StepConfig struct {
	Name   string            `yaml:"name,omitempty"`
	Prompt string            `yaml:"prompt,omitempty"`
	Schema map[string]string `yaml:"schema,omitempty"`
	System string            `yaml:"system,omitempty"`
	Strict bool              `yaml:"strict,omitempty"`

	// Action names a built-in, non-LLM step (e.g. "write_file"); mutually
	// exclusive with Prompt.
	Action string         `yaml:"action,omitempty"`
	With   map[string]any `yaml:"with,omitempty"`
}

// Validate checks exactly one of Prompt or Action is set.
func (c *StepConfig) Validate() error {
	if c.Prompt == "" && c.Action == "" {
		return fmt.Errorf("step must set either prompt or action")
	}
	if c.Prompt != "" && c.Action != "" {
		return fmt.Errorf("step cannot set both prompt and action")
	}
	return nil
}

// NodeConfig is one entry under a job's `nodes:` map.
type NodeConfig struct {
	DependsOn []string     `yaml:"depends_on,omitempty"`
	Steps     []StepConfig `yaml:"steps,omitempty"`

	// Prompt is shorthand for a single-step node, equivalent to
	// Steps: [{prompt: ...}].
	Prompt string            `yaml:"prompt,omitempty"`
	Schema map[string]string `yaml:"schema,omitempty"`
}

// Validate checks the node has exactly one of Prompt or Steps, and that
// every step (if any) validates.
func (c *NodeConfig) Validate() error {
	if c.Prompt == "" && len(c.Steps) == 0 {
		return fmt.Errorf("node must set either prompt or steps")
	}
	if c.Prompt != "" && len(c.Steps) > 0 {
		return fmt.Errorf("node cannot set both prompt and steps")
	}
	for i, step := range c.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// JobConfig describes one named entry under `jobs:`: a DAG of nodes to run
// against an agent, plus the scheduler's concurrency and error-handling
// policy.
type JobConfig struct {
	Agent              string                `yaml:"agent"`
	Nodes              map[string]NodeConfig `yaml:"nodes"`
	MaxConcurrency     int                   `yaml:"max_concurrency,omitempty"`
	ContinueOnError    bool                  `yaml:"continue_on_error,omitempty"`
	AgentMaxIterations int                   `yaml:"agent_max_iterations,omitempty"`
}

// Validate checks the job references an agent and every node validates.
func (c *JobConfig) Validate() error {
	if c.Agent == "" {
		return fmt.Errorf("agent is required")
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}
	for id, node := range c.Nodes {
		if err := node.Validate(); err != nil {
			return fmt.Errorf("node %q: %w", id, err)
		}
	}
	return nil
}

// SetDefaults applies the scheduler's documented defaults.
func (c *JobConfig) SetDefaults() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 3
	}
}

// ============================================================================
// TOOLS
// ============================================================================

// CommandToolConfig configures the tools.CommandTool reference implementation.
type CommandToolConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedCommands  []string `yaml:"allowed_commands,omitempty"`
	WorkingDirectory string   `yaml:"working_directory,omitempty"`
	TimeoutSeconds   int      `yaml:"timeout_seconds,omitempty"`
}

// FileToolConfig configures the tools.FileReadTool reference implementation.
type FileToolConfig struct {
	Enabled bool   `yaml:"enabled"`
	Root    string `yaml:"root,omitempty"`
}

// ToolConfigs groups the reference tool implementations' settings under
// `tools:`. Each is opt-in: Enabled defaults to false.
type ToolConfigs struct {
	Command CommandToolConfig `yaml:"command,omitempty"`
	File    FileToolConfig    `yaml:"file,omitempty"`
}

// Validate is a no-op: both reference tools accept any configuration,
// falling back to their own documented defaults.
func (c *ToolConfigs) Validate() error { return nil }

// SetDefaults leaves disabled tools untouched and fills in a default
// timeout for the command tool.
func (c *ToolConfigs) SetDefaults() {
	if c.Command.TimeoutSeconds <= 0 {
		c.Command.TimeoutSeconds = 30
	}
}

// ============================================================================
// LOGGING AND TELEMETRY
// ============================================================================

// LoggingConfig controls axlelog.Init.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Validate is a no-op: axlelog.ParseLevel already falls back to a sane
// default for an unrecognized level string.
func (c *LoggingConfig) Validate() error { return nil }

// SetDefaults applies axlelog's documented defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// TelemetryConfig controls telemetry.InitGlobalTracerProvider and whether a
// telemetry.Metrics recorder is constructed.
type TelemetryConfig struct {
	TracingEnabled bool    `yaml:"tracing_enabled,omitempty"`
	ServiceName    string  `yaml:"service_name,omitempty"`
	SamplingRate   float64 `yaml:"sampling_rate,omitempty"`
	MetricsEnabled bool    `yaml:"metrics_enabled,omitempty"`
	MetricsAddr    string  `yaml:"metrics_addr,omitempty"`
}

// Validate checks the sampling rate is a valid probability.
func (c *TelemetryConfig) Validate() error {
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be between 0 and 1")
	}
	return nil
}

// SetDefaults applies a conservative always-sample default and a
// Prometheus-conventional metrics address.
func (c *TelemetryConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "axle"
	}
	if c.TracingEnabled && c.SamplingRate == 0 {
		c.SamplingRate = 1
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
}
