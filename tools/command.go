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

// Package tools provides a small set of reference tool.Tool implementations
// usable out of the box by a dag.Scheduler or agent.Agent: a sandboxed shell
// command runner and a scoped file reader.
package tools

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/axle-run/axle/tool"
)

// DefaultDeniedCommands are base commands blocked regardless of the
// allowlist.
var DefaultDeniedCommands = []string{
	"rm", "rmdir", "sudo", "su", "chmod", "chown",
	"dd", "mkfs", "fdisk", "mount", "umount",
	"kill", "killall", "pkill", "reboot", "shutdown",
	"passwd", "useradd", "userdel", "groupadd",
}

// DefaultDeniedPatterns block dangerous command shapes before any other
// check runs.
var DefaultDeniedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+(-rf|-fr|--recursive)`),     // rm -rf variants
	regexp.MustCompile(`>\s*/dev/`),                      // writes to /dev
	regexp.MustCompile(`:\(\)\s*\{\s*:\|:\s*&\s*\}\s*;`), // fork bomb
	regexp.MustCompile(`wget.*\|\s*sh`),                  // wget pipe to shell
	regexp.MustCompile(`curl.*\|\s*sh`),                  // curl pipe to shell
	regexp.MustCompile(`eval\s*\$`),                      // eval with variable
	regexp.MustCompile(`\$\(.*\)\s*>\s*/`),               // command substitution to root
	regexp.MustCompile(`>\s*/etc/`),                      // writes to /etc
	regexp.MustCompile(`chmod\s+777`),                    // overly permissive chmod
	regexp.MustCompile(`--no-preserve-root`),             // dangerous flag
}

// CommandConfig restricts CommandTool to an explicit allowlist of base
// commands, a denylist and deny-patterns checked before it, a working
// directory, and an execution timeout.
type CommandConfig struct {
	AllowedCommands []string

	// DeniedCommands is checked before AllowedCommands; nil selects
	// DefaultDeniedCommands.
	DeniedCommands []string

	// DeniedPatterns match against the whole command string, before any
	// per-command check; nil selects DefaultDeniedPatterns.
	DeniedPatterns []*regexp.Regexp

	WorkingDirectory string
	MaxExecutionTime time.Duration
}

func (c *CommandConfig) setDefaults() {
	if len(c.AllowedCommands) == 0 {
		c.AllowedCommands = []string{"cat", "head", "tail", "ls", "find", "grep", "wc", "pwd", "echo", "date"}
	}
	if c.DeniedCommands == nil {
		c.DeniedCommands = DefaultDeniedCommands
	}
	if c.DeniedPatterns == nil {
		c.DeniedPatterns = DefaultDeniedPatterns
	}
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "."
	}
	if c.MaxExecutionTime == 0 {
		c.MaxExecutionTime = 30 * time.Second
	}
}

// CommandTool executes a shell command under layered checks (deny-patterns,
// then a denylist, then an allowlist applied to every command position in a
// pipe or chain), with a timeout, in the configured working directory unless
// a call supplies its own working_dir argument.
type CommandTool struct {
	cfg     CommandConfig
	allowed map[string]bool
	denied  map[string]bool
}

// NewCommandTool creates a CommandTool; a zero-value cfg gets conservative
// defaults (a read-only allowlist, the default denylist and deny-patterns,
// 30s timeout, cwd ".").
func NewCommandTool(cfg CommandConfig) *CommandTool {
	cfg.setDefaults()
	t := &CommandTool{
		cfg:     cfg,
		allowed: make(map[string]bool, len(cfg.AllowedCommands)),
		denied:  make(map[string]bool, len(cfg.DeniedCommands)),
	}
	for _, name := range cfg.AllowedCommands {
		t.allowed[name] = true
	}
	for _, name := range cfg.DeniedCommands {
		t.denied[name] = true
	}
	return t
}

// Definition implements tool.Tool.
func (t *CommandTool) Definition() tool.Definition {
	return tool.Definition{
		Name:        "execute_command",
		Description: "Execute an allowlisted shell command and return its combined output",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command":     map[string]any{"type": "string", "description": "shell command to execute"},
				"working_dir": map[string]any{"type": "string", "description": "override the tool's configured working directory"},
			},
			"required": []string{"command"},
		},
	}
}

// Execute implements tool.Tool.
func (t *CommandTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	command, _ := args["command"].(string)
	if err := t.validateCommand(command); err != nil {
		return tool.Result{}, err
	}

	workDir := t.cfg.WorkingDirectory
	if wd, ok := args["working_dir"].(string); ok && wd != "" {
		workDir = wd
	}

	runCtx, cancel := context.WithTimeout(ctx, t.cfg.MaxExecutionTime)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = workDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return tool.Result{}, fmt.Errorf("tools: command failed: %w: %s", err, string(output))
	}
	return tool.TextResult(string(output)), nil
}

// validateCommand layers the checks: deny-patterns over the whole string
// first, then the denylist and allowlist applied to the base command of
// every segment of a pipe or chain, so "echo hi; rm x" is rejected on its
// second segment, not waved through on its first.
func (t *CommandTool) validateCommand(command string) error {
	if command == "" {
		return fmt.Errorf("tools: command parameter is required")
	}

	for _, pattern := range t.cfg.DeniedPatterns {
		if pattern.MatchString(command) {
			return fmt.Errorf("tools: command matches denied pattern: %s", pattern.String())
		}
	}

	bases := baseCommands(command)
	if len(bases) == 0 {
		return fmt.Errorf("tools: could not extract base command")
	}
	for _, base := range bases {
		if t.denied[base] {
			return fmt.Errorf("tools: command not allowed: %s (in deny list)", base)
		}
		if !t.allowed[base] {
			return fmt.Errorf("tools: command not allowed: %s (not in allow list)", base)
		}
	}
	return nil
}

// baseCommands returns the leading word of every command position: segments
// split on the shell operators that start a new command (|, ;, &).
// Redirection targets stay inside their segment and are not treated as
// commands; writes to sensitive paths are the deny-patterns' concern.
func baseCommands(command string) []string {
	segments := strings.FieldsFunc(command, func(r rune) bool {
		return r == '|' || r == ';' || r == '&'
	})

	var bases []string
	for _, seg := range segments {
		fields := strings.Fields(strings.TrimSpace(seg))
		if len(fields) == 0 {
			continue
		}
		bases = append(bases, fields[0])
	}
	return bases
}

var _ tool.Tool = (*CommandTool)(nil)
