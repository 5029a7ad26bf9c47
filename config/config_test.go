package config_test

import (
	"os"
	"strings"
	"testing"

	"github.com/axle-run/axle/config"
)

const validYAML = `
version: "1"
name: demo
llms:
  gpt:
    type: openai
    model: gpt-4o
    api_key: ${DEMO_API_KEY}
agents:
  writer:
    llm: gpt
jobs:
  summarize:
    agent: writer
    nodes:
      draft:
        prompt: "write a draft about {{topic}}"
`

func TestLoadConfigFromString_ExpandsEnvAndValidates(t *testing.T) {
	os.Setenv("DEMO_API_KEY", "secret-value")
	defer os.Unsetenv("DEMO_API_KEY")

	cfg, err := config.LoadConfigFromString(validYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMs["gpt"].APIKey != "secret-value" {
		t.Errorf("expected expanded api key, got %q", cfg.LLMs["gpt"].APIKey)
	}
	if cfg.Jobs["summarize"].MaxConcurrency != 3 {
		t.Errorf("expected default max_concurrency of 3, got %d", cfg.Jobs["summarize"].MaxConcurrency)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default logging level, got %q", cfg.Logging.Level)
	}
}

func TestLoadConfigFromString_UnknownAgentLLMFailsValidation(t *testing.T) {
	bad := `
llms:
  gpt:
    type: openai
    model: gpt-4o
    api_key: k
agents:
  writer:
    llm: does-not-exist
jobs:
  j:
    agent: writer
    nodes:
      n:
        prompt: "p"
`
	_, err := config.LoadConfigFromString(bad)
	if err == nil {
		t.Fatal("expected validation error for dangling llm reference")
	}
	if !strings.Contains(err.Error(), "does-not-exist") {
		t.Errorf("expected error to name the missing llm, got %v", err)
	}
}

func TestLoadConfigFromString_UnknownJobAgentFailsValidation(t *testing.T) {
	bad := `
llms:
  gpt:
    type: openai
    model: gpt-4o
    api_key: k
agents:
  writer:
    llm: gpt
jobs:
  j:
    agent: does-not-exist
    nodes:
      n:
        prompt: "p"
`
	_, err := config.LoadConfigFromString(bad)
	if err == nil {
		t.Fatal("expected validation error for dangling agent reference")
	}
}

func TestLLMProviderConfig_Validate_RequiresAPIKeyExceptOllama(t *testing.T) {
	ollama := `
llms:
  local:
    type: ollama
    model: llama3
agents:
  a:
    llm: local
jobs:
  j:
    agent: a
    nodes:
      n:
        prompt: "p"
`
	if _, err := config.LoadConfigFromString(ollama); err != nil {
		t.Errorf("ollama provider should not require api_key: %v", err)
	}

	missingKey := `
llms:
  gpt:
    type: openai
    model: gpt-4o
agents:
  a:
    llm: gpt
jobs:
  j:
    agent: a
    nodes:
      n:
        prompt: "p"
`
	if _, err := config.LoadConfigFromString(missingKey); err == nil {
		t.Error("expected error for missing api_key on openai provider")
	}
}

func TestNodeConfig_Validate_RejectsBothPromptAndSteps(t *testing.T) {
	bad := `
llms:
  gpt:
    type: openai
    model: gpt-4o
    api_key: k
agents:
  a:
    llm: gpt
jobs:
  j:
    agent: a
    nodes:
      n:
        prompt: "p"
        steps:
          - prompt: "q"
`
	if _, err := config.LoadConfigFromString(bad); err == nil {
		t.Error("expected error when a node sets both prompt and steps")
	}
}

func TestExpandEnvVarsInData_SupportsDefaultAndBareForms(t *testing.T) {
	os.Unsetenv("AXLE_TEST_UNSET")
	os.Setenv("AXLE_TEST_SET", "from-env")
	defer os.Unsetenv("AXLE_TEST_SET")

	data := map[string]interface{}{
		"withDefault": "${AXLE_TEST_UNSET:-fallback}",
		"braced":      "${AXLE_TEST_SET}",
		"bare":        "$AXLE_TEST_SET",
	}
	out := config.ExpandEnvVarsInData(data).(map[string]interface{})
	if out["withDefault"] != "fallback" {
		t.Errorf("expected fallback value, got %v", out["withDefault"])
	}
	if out["braced"] != "from-env" {
		t.Errorf("expected env value, got %v", out["braced"])
	}
	if out["bare"] != "from-env" {
		t.Errorf("expected env value for bare form, got %v", out["bare"])
	}
}
