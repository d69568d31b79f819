// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp bridges the capability registry onto the Model Context
// Protocol: a stdio server exposing the registry's capabilities to MCP
// clients, and a client side that mounts external MCP servers' tools into
// the registry as additional capabilities.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ontoforge/ontoforge/pkg/capability"
)

// Server exposes a capability registry over the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server with the given identity.
func NewServer(name, version string) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version),
	}
}

// MountRegistry registers every capability as an MCP tool. Argument
// validation stays inside the registry, so MCP callers get the same error
// payloads the model would.
func (s *Server) MountRegistry(registry *capability.Registry) {
	for _, name := range registry.Names() {
		c, ok := registry.Get(name)
		if !ok {
			continue
		}
		s.addCapability(registry, c)
	}
}

func (s *Server) addCapability(registry *capability.Registry, c *capability.Capability) {
	tool := mcp.NewTool(c.Name, mcp.WithDescription(c.Description))
	if c.Schema != nil {
		if raw, err := json.Marshal(c.Schema); err == nil {
			tool = mcp.NewToolWithRawSchema(c.Name, c.Description, raw)
		}
	}

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsJSON := "{}"
		if args, ok := request.Params.Arguments.(map[string]any); ok && len(args) > 0 {
			if data, err := json.Marshal(args); err == nil {
				argsJSON = string(data)
			}
		}
		payload, err := registry.Execute(ctx, c.Name, argsJSON)
		if err != nil {
			// The payload already carries the error envelope.
			return mcp.NewToolResultError(payload), nil
		}
		return mcp.NewToolResultText(payload), nil
	})
}

// ServeStdio blocks serving the protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
