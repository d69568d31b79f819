// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ontoforge/ontoforge/pkg/capability"
	"github.com/ontoforge/ontoforge/pkg/errors"
)

// ToolSource is the slice of the client surface the mounter needs.
// *Client satisfies it.
type ToolSource interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// Mount lists the source's tools and registers each one as a capability
// named <prefix>__<tool>. The prefix keeps external tools from colliding
// with the builtins and with other servers; it must be a valid wire-name
// fragment. Returns the mounted capability names.
//
// The remote tool's input schema becomes the capability schema, so the
// registry validates arguments before they ever cross the wire.
func Mount(ctx context.Context, registry *capability.Registry, prefix string, source ToolSource) ([]string, error) {
	tools, err := source.ListTools(ctx)
	if err != nil {
		return nil, errors.New(errors.CodeMCP,
			fmt.Sprintf("list tools from mcp server %q", prefix), err)
	}
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		c := adaptTool(prefix, tool, source)
		if err := registry.Register(c); err != nil {
			return names, err
		}
		names = append(names, c.Name)
	}
	return names, nil
}

func adaptTool(prefix string, tool mcp.Tool, source ToolSource) *capability.Capability {
	name := tool.Name
	if prefix != "" {
		name = prefix + "__" + tool.Name
	}
	return &capability.Capability{
		Name:        name,
		Description: tool.Description,
		Schema:      schemaMap(tool),
		Source:      capability.SourceMCP,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			result, err := source.CallTool(ctx, tool.Name, args)
			if err != nil {
				return nil, err
			}
			return resultOutput(result)
		},
	}
}

// schemaMap renders the tool's input schema in the registry's schema shape.
// A nil return means the capability skips argument validation.
func schemaMap(tool mcp.Tool) map[string]any {
	raw := tool.RawInputSchema
	if raw == nil {
		data, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil
		}
		raw = data
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	if len(schema) == 0 {
		return nil
	}
	return schema
}

func resultOutput(result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, fmt.Errorf("mcp tool returned no result")
	}
	if result.IsError {
		return nil, fmt.Errorf("mcp tool error: %s", textContent(result.Content))
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	if text := textContent(result.Content); text != "" {
		return text, nil
	}
	return result, nil
}

func textContent(items []mcp.Content) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}
