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

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/axle-run/axle/tool"
)

// FileReadTool reads a file's contents, refusing any path that escapes Root.
type FileReadTool struct {
	Root string
}

// NewFileReadTool creates a FileReadTool scoped to root; an empty root
// defaults to the process working directory.
func NewFileReadTool(root string) *FileReadTool {
	if root == "" {
		root = "."
	}
	return &FileReadTool{Root: root}
}

// Definition implements tool.Tool.
func (t *FileReadTool) Definition() tool.Definition {
	return tool.Definition{
		Name:        "read_file",
		Description: "Read the contents of a file relative to the tool's configured root",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "file path relative to root"},
			},
			"required": []string{"path"},
		},
	}
}

// Execute implements tool.Tool.
func (t *FileReadTool) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	rel, _ := args["path"].(string)
	if rel == "" {
		return tool.Result{}, fmt.Errorf("tools: path parameter is required")
	}

	root := filepath.Clean(t.Root)
	full := filepath.Join(root, rel)
	inRoot, err := filepath.Rel(root, full)
	if err != nil || inRoot == ".." || strings.HasPrefix(inRoot, ".."+string(filepath.Separator)) {
		return tool.Result{}, fmt.Errorf("tools: path escapes root: %s", rel)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return tool.Result{}, fmt.Errorf("tools: read %s: %w", rel, err)
	}
	return tool.TextResult(string(data)), nil
}

var _ tool.Tool = (*FileReadTool)(nil)
