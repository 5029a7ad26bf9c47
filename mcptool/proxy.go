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

// Package mcptool adapts a Model Context Protocol server's tools onto the
// core's tool.Tool contract. This is a thin forwarding adapter: the MCP wire
// protocol stays behind the mcp-go client, and the core only ever sees the
// tool.Tool boundary.
package mcptool

import (
	"context"
	"fmt"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/axle-run/axle/tool"
)

// Proxy implements tool.Tool by forwarding Execute to one named tool on an
// already-initialized MCP client session.
type Proxy struct {
	client   *mcpclient.Client
	toolName string
	def      tool.Definition
}

// Discover lists the tools of an already-initialized session (calling
// Initialize beforehand is the caller's responsibility; Discover does not),
// returning one Proxy per tool it advertises.
func Discover(ctx context.Context, session *mcpclient.Client) ([]*Proxy, error) {
	listed, err := session.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcptool: list tools: %w", err)
	}

	proxies := make([]*Proxy, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		proxies = append(proxies, &Proxy{
			client:   session,
			toolName: t.Name,
			def: tool.Definition{
				Name:        t.Name,
				Description: t.Description,
				Schema:      inputSchemaToMap(t.InputSchema),
			},
		})
	}
	return proxies, nil
}

// Definition implements tool.Tool.
func (p *Proxy) Definition() tool.Definition { return p.def }

// Execute implements tool.Tool by forwarding to the MCP server's tools/call,
// concatenating every returned text content block into the result.
func (p *Proxy) Execute(ctx context.Context, args map[string]any) (tool.Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = p.toolName
	req.Params.Arguments = args

	res, err := p.client.CallTool(ctx, req)
	if err != nil {
		return tool.Result{}, fmt.Errorf("mcptool: call %s: %w", p.toolName, err)
	}

	var text string
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			text += tc.Text
		}
	}
	if res.IsError {
		return tool.Result{}, fmt.Errorf("mcptool: %s returned an error: %s", p.toolName, text)
	}
	return tool.TextResult(text), nil
}

func inputSchemaToMap(s mcp.ToolInputSchema) map[string]any {
	out := map[string]any{"type": s.Type}
	if len(s.Properties) > 0 {
		out["properties"] = s.Properties
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

var _ tool.Tool = (*Proxy)(nil)
