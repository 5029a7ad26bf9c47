// Package config provides configuration types and utilities for axle's CLI
// and embedding applications. This file contains the unified configuration
// entry point and its YAML loader.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// MAIN UNIFIED CONFIGURATION
// ============================================================================

// Config is the complete configuration a CLI loads from one YAML file: the
// providers behind each named model, the agents and DAG jobs built on top of
// them, the reference tools available to agents, and ambient logging and
// telemetry settings.
type Config struct {
	Version string `yaml:"version,omitempty"`
	Name    string `yaml:"name,omitempty"`

	Logging   LoggingConfig                `yaml:"logging,omitempty"`
	Telemetry TelemetryConfig              `yaml:"telemetry,omitempty"`
	LLMs      map[string]LLMProviderConfig `yaml:"llms,omitempty"`
	Agents    map[string]AgentConfig       `yaml:"agents,omitempty"`
	Jobs      map[string]JobConfig         `yaml:"jobs,omitempty"`
	Tools     ToolConfigs                  `yaml:"tools,omitempty"`
}

// Validate checks every section of the configuration, including that every
// agent's LLM reference and every job's Agent reference resolves.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	for name, llmCfg := range c.LLMs {
		if err := llmCfg.Validate(); err != nil {
			return fmt.Errorf("llms.%s: %w", name, err)
		}
	}
	for name, agentCfg := range c.Agents {
		if err := agentCfg.Validate(); err != nil {
			return fmt.Errorf("agents.%s: %w", name, err)
		}
		if _, ok := c.LLMs[agentCfg.LLM]; !ok {
			return fmt.Errorf("agents.%s: llm %q is not defined under llms", name, agentCfg.LLM)
		}
	}
	for name, jobCfg := range c.Jobs {
		if err := jobCfg.Validate(); err != nil {
			return fmt.Errorf("jobs.%s: %w", name, err)
		}
		if _, ok := c.Agents[jobCfg.Agent]; !ok {
			return fmt.Errorf("jobs.%s: agent %q is not defined under agents", name, jobCfg.Agent)
		}
	}
	if err := c.Tools.Validate(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	return nil
}

// SetDefaults fills in every section's defaults, initializing nil maps so
// callers can range over them unconditionally.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.Telemetry.SetDefaults()

	if c.LLMs == nil {
		c.LLMs = make(map[string]LLMProviderConfig)
	}
	if c.Agents == nil {
		c.Agents = make(map[string]AgentConfig)
	}
	if c.Jobs == nil {
		c.Jobs = make(map[string]JobConfig)
	}

	for name, llmCfg := range c.LLMs {
		llmCfg.SetDefaults()
		c.LLMs[name] = llmCfg
	}
	for name, agentCfg := range c.Agents {
		agentCfg.SetDefaults()
		c.Agents[name] = agentCfg
	}
	for name, jobCfg := range c.Jobs {
		jobCfg.SetDefaults()
		c.Jobs[name] = jobCfg
	}
	c.Tools.SetDefaults()
}

// ============================================================================
// CONFIGURATION LOADING
// ============================================================================

// LoadConfig loads the complete configuration from a YAML file via
// LoadConfigFromString: the YAML is unmarshaled into a generic tree, its
// `${VAR}`-style environment references are expanded, and the result is
// decoded into Config.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filePath, err)
	}
	cfg, err := LoadConfigFromString(string(data))
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", filePath, err)
	}
	return cfg, nil
}

// LoadConfigFromString loads configuration from a YAML string. It first
// unmarshals into a loosely-typed tree, expands `${VAR}`-style environment
// references (and, for numeric/boolean-looking expansions, converts them to
// the matching Go type), then decodes into the typed Config with
// mapstructure's weakly-typed mode, so a YAML author can write `3` or `"3"`
// for the same integer field. Finally SetDefaults and Validate run.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &raw); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	expanded := ExpandEnvVarsInData(raw)

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := decoder.Decode(expanded); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// ============================================================================
// HELPER METHODS
// ============================================================================

// GetAgent returns an agent configuration by name.
func (c *Config) GetAgent(name string) (*AgentConfig, bool) {
	agentCfg, exists := c.Agents[name]
	return &agentCfg, exists
}

// GetJob returns a job configuration by name.
func (c *Config) GetJob(name string) (*JobConfig, bool) {
	jobCfg, exists := c.Jobs[name]
	return &jobCfg, exists
}

// ListAgents returns every configured agent name.
func (c *Config) ListAgents() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	return names
}

// ListJobs returns every configured job name.
func (c *Config) ListJobs() []string {
	names := make([]string, 0, len(c.Jobs))
	for name := range c.Jobs {
		names = append(names, name)
	}
	return names
}
