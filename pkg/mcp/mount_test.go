// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/ontoforge/ontoforge/pkg/capability"
)

type fakeSource struct {
	tools    []mcpgo.Tool
	listErr  error
	callErr  error
	result   *mcpgo.CallToolResult
	lastName string
	lastArgs map[string]any
}

func (f *fakeSource) ListTools(ctx context.Context) ([]mcpgo.Tool, error) {
	return f.tools, f.listErr
}

func (f *fakeSource) CallTool(ctx context.Context, name string, args map[string]any) (*mcpgo.CallToolResult, error) {
	f.lastName = name
	f.lastArgs = args
	return f.result, f.callErr
}

func lookupTool(name string) mcpgo.Tool {
	return mcpgo.NewToolWithRawSchema(name, "Look up a term definition.", json.RawMessage(`{
		"type": "object",
		"properties": {"term": {"type": "string"}},
		"required": ["term"]
	}`))
}

func TestMountRegistersPrefixedCapabilities(t *testing.T) {
	source := &fakeSource{
		tools:  []mcpgo.Tool{lookupTool("lookup"), mcpgo.NewTool("echo")},
		result: mcpgo.NewToolResultText("ok"),
	}
	registry := capability.NewRegistry()

	mounted, err := Mount(context.Background(), registry, "glossary", source)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if len(mounted) != 2 {
		t.Fatalf("expected 2 mounted tools, got %v", mounted)
	}
	c, ok := registry.Get("glossary__lookup")
	if !ok {
		t.Fatalf("prefixed capability missing, registry has %v", registry.Names())
	}
	if c.Source != capability.SourceMCP {
		t.Fatalf("unexpected source: %q", c.Source)
	}
	if c.Schema == nil {
		t.Fatal("schema should carry over from the tool definition")
	}
}

func TestMountedCapabilityCallsRemoteName(t *testing.T) {
	source := &fakeSource{
		tools:  []mcpgo.Tool{lookupTool("lookup")},
		result: mcpgo.NewToolResultText("a TBox is the schema half of an ontology"),
	}
	registry := capability.NewRegistry()
	if _, err := Mount(context.Background(), registry, "glossary", source); err != nil {
		t.Fatalf("mount: %v", err)
	}

	payload, err := registry.Execute(context.Background(), "glossary__lookup", `{"term": "TBox"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// The remote server sees its own tool name, not the prefixed one.
	if source.lastName != "lookup" {
		t.Fatalf("remote called with %q", source.lastName)
	}
	if source.lastArgs["term"] != "TBox" {
		t.Fatalf("args not forwarded: %v", source.lastArgs)
	}
	if !strings.Contains(payload, "schema half") {
		t.Fatalf("unexpected payload: %q", payload)
	}
}

func TestMountedCapabilityValidatesBeforeCalling(t *testing.T) {
	source := &fakeSource{
		tools:  []mcpgo.Tool{lookupTool("lookup")},
		result: mcpgo.NewToolResultText("ok"),
	}
	registry := capability.NewRegistry()
	if _, err := Mount(context.Background(), registry, "glossary", source); err != nil {
		t.Fatalf("mount: %v", err)
	}

	payload, err := registry.Execute(context.Background(), "glossary__lookup", `{}`)
	if err == nil {
		t.Fatal("expected schema rejection")
	}
	if !strings.Contains(payload, "Error:") {
		t.Fatalf("expected error envelope, got %q", payload)
	}
	if source.lastName != "" {
		t.Fatal("remote must not be called with invalid arguments")
	}
}

func TestMountedCapabilityErrorResult(t *testing.T) {
	source := &fakeSource{
		tools: []mcpgo.Tool{mcpgo.NewTool("flaky")},
		result: &mcpgo.CallToolResult{
			IsError: true,
			Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: "upstream exploded"}},
		},
	}
	registry := capability.NewRegistry()
	if _, err := Mount(context.Background(), registry, "srv", source); err != nil {
		t.Fatalf("mount: %v", err)
	}

	payload, err := registry.Execute(context.Background(), "srv__flaky", `{}`)
	if err == nil {
		t.Fatal("expected capability fault")
	}
	if !strings.Contains(payload, "upstream exploded") {
		t.Fatalf("remote error text lost: %q", payload)
	}
}

func TestMountListFailure(t *testing.T) {
	source := &fakeSource{listErr: fmt.Errorf("connection refused")}
	registry := capability.NewRegistry()
	if _, err := Mount(context.Background(), registry, "srv", source); err == nil {
		t.Fatal("expected error when discovery fails")
	}
	if registry.Len() != 0 {
		t.Fatal("no capabilities should be registered on failure")
	}
}

func TestMountedBareToolAcceptsEmptyArgs(t *testing.T) {
	source := &fakeSource{
		tools:  []mcpgo.Tool{mcpgo.NewTool("echo")},
		result: mcpgo.NewToolResultText("echoed"),
	}
	registry := capability.NewRegistry()
	if _, err := Mount(context.Background(), registry, "srv", source); err != nil {
		t.Fatalf("mount: %v", err)
	}

	payload, err := registry.Execute(context.Background(), "srv__echo", "")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(payload, "echoed") {
		t.Fatalf("unexpected payload: %q", payload)
	}
}
