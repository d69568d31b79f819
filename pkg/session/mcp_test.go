// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/pkg/mcp"
	ftesting "github.com/ontoforge/ontoforge/pkg/testing"
)

// stockServer serves a single warehouse lookup tool over streamable HTTP.
func stockServer(t *testing.T) string {
	t.Helper()
	srv := mcpserver.NewMCPServer("warehouse", "1.0.0")
	srv.AddTool(
		mcpgo.NewTool("stock_level",
			mcpgo.WithDescription("Look up warehouse stock for a SKU."),
			mcpgo.WithString("sku", mcpgo.Required()),
		),
		func(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultText("42 units on hand"), nil
		},
	)
	httpServer := mcpserver.NewTestStreamableHTTPServer(srv)
	t.Cleanup(httpServer.Close)
	return httpServer.URL
}

func TestBuilderRunOffersMountedTools(t *testing.T) {
	cfg := buildConfig(t)
	provider := ftesting.NewScenarioProvider().
		AddToolCallResponse(ftesting.NewToolCall("warehouse__stock_level").
			WithID("call-1").
			WithArg("sku", "GrecCurb100").
			Build()).
		AddResponse("Extraction complete.").
		AddResponse("Enrichment complete.").
		AddResponse(sampleOWL)

	builder, err := NewBuilder(cfg, provider,
		WithMCPServers(map[string]mcp.ServerSpec{"warehouse": {URL: stockServer(t)}}))
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if _, err := builder.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	requests := provider.Requests()
	if len(requests) != 4 {
		t.Fatalf("expected 4 provider calls, got %d", len(requests))
	}
	first := requests[0]
	if len(first.Tools) != 7 {
		t.Fatalf("expected 6 builtins plus the mounted tool, got %d", len(first.Tools))
	}
	found := false
	for _, tool := range first.Tools {
		if tool.Function.Name == "warehouse__stock_level" {
			found = true
		}
	}
	if !found {
		t.Fatal("mounted tool missing from the capability offer")
	}

	// The remote reply flows back into the conversation as a tool result.
	toolMsg := requests[1].Messages[len(requests[1].Messages)-1]
	if toolMsg.Role != llm.RoleTool {
		t.Fatalf("expected tool result, got role %q", toolMsg.Role)
	}
	if !strings.Contains(toolMsg.Content, "42 units on hand") {
		t.Fatalf("remote reply missing from tool result: %q", toolMsg.Content)
	}
}

func TestAskerMountsToolsOnFirstAsk(t *testing.T) {
	cfg := askConfig(t)
	provider := ftesting.NewScenarioProvider().
		AddResponse("In stock.").
		AddResponse("Still in stock.")

	asker, err := NewAsker(cfg, provider,
		WithMCPServers(map[string]mcp.ServerSpec{"warehouse": {URL: stockServer(t)}}))
	if err != nil {
		t.Fatalf("new asker: %v", err)
	}
	defer func() {
		if err := asker.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()

	if _, err := asker.Ask(context.Background(), Question{Query: "Is GrecCurb100 in stock?"}); err != nil {
		t.Fatalf("ask: %v", err)
	}
	// The second ask reuses the connections opened by the first.
	if _, err := asker.Ask(context.Background(), Question{Query: "And now?"}); err != nil {
		t.Fatalf("second ask: %v", err)
	}

	for i, req := range provider.Requests() {
		if len(req.Tools) != 3 {
			t.Fatalf("request %d: expected 2 explorer capabilities plus the mounted tool, got %d",
				i, len(req.Tools))
		}
	}
}
