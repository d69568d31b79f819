// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"github.com/ontoforge/ontoforge/pkg/capability"
	"github.com/ontoforge/ontoforge/pkg/config"
	forgemcp "github.com/ontoforge/ontoforge/pkg/mcp"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/query"
	"github.com/ontoforge/ontoforge/pkg/session"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

type mcpToolResult struct {
	Server string        `json:"server"`
	Tool   mcptypes.Tool `json:"tool"`
	Error  string        `json:"error,omitempty"`
}

func runMCP(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 {
		fatal(fmt.Errorf("usage: ontoforge mcp serve|list"))
	}
	switch args[0] {
	case "serve":
		runMCPServe(ctx, global, cfg, args[1:])
	case "list":
		ensureNoArgs(args[1:])
		runMCPList(ctx, global, cfg)
	default:
		fatal(fmt.Errorf("unknown mcp subcommand %q; use serve or list", args[0]))
	}
}

// runMCPServe exposes the capability registry to MCP clients over stdio.
// Stdout belongs to the transport, so all logging goes to stderr.
func runMCPServe(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("mcp serve", flag.ExitOnError)
	fresh := fs.Bool("fresh", false, "Start from an empty entities store")
	snapshot := fs.String("snapshot", "", "Entities snapshot to serve (default: latest outcome)")
	watch := fs.Bool("watch", false, "Watch the config file for changes")
	name := fs.String("name", "ontoforge", "Advertised MCP server name")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(fs.Args())

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	if *watch {
		if findConfigPath(global.ConfigArgs) == "" {
			logger.Warn("--watch needs an explicit --config path")
		} else {
			reloadable := config.NewReloadableConfig(cfg)
			watcher, _, err := config.WatchConfigCLI(ctx, global.ConfigArgs,
				config.WithDebounce(500*time.Millisecond),
				config.WithWatchLogger(logger),
			)
			if err != nil {
				logger.Warn("config watch unavailable", "error", err.Error())
			} else {
				// Log level and format follow the file while serving.
				watcher.OnChange(func(newCfg *config.Config) {
					reloadable.Update(newCfg)
					lg := reloadable.Log()
					telemetry.ConfigureSlog(os.Stderr, lg.Level, lg.Format)
				})
				defer watcher.Stop()
			}
		}
	}

	store := loadServeStore(cfg, *fresh, *snapshot, logger)
	registry := serveRegistry(cfg, store, logger)

	srv := forgemcp.NewServer(*name, version)
	srv.MountRegistry(registry)

	logger.Info("serving MCP over stdio",
		"name", *name,
		"capabilities", registry.Len(),
	)
	if err := srv.ServeStdio(); err != nil {
		fatal(err)
	}
}

// loadServeStore picks the entities store to serve: empty when --fresh,
// otherwise the requested or latest snapshot. With no outcome yet the
// server starts empty so clients can build from scratch.
func loadServeStore(cfg *config.Config, fresh bool, snapshot string, logger *slog.Logger) *ontology.Store {
	if fresh {
		return ontology.NewStore()
	}
	if snapshot != "" {
		cfg.Data.Snapshot = snapshot
	}
	path, err := session.ResolveSnapshot(cfg.Data)
	if err != nil {
		logger.Info("no snapshot found, serving an empty store")
		return ontology.NewStore()
	}
	store, err := ontology.FromFile(path)
	if err != nil {
		fatal(err)
	}
	logger.Info("serving snapshot", "path", path)
	return store
}

// serveRegistry combines the builder capabilities with the explorer ones so
// MCP clients can both mutate and query the same store.
func serveRegistry(cfg *config.Config, store *ontology.Store, logger *slog.Logger) *capability.Registry {
	var registry *capability.Registry
	if cfg.Memory.Enabled {
		recall, _, err := newRecall(cfg.Memory)
		if err != nil {
			fatal(err)
		}
		registry = capability.NewIndexedBuilderRegistry(store, recall, capability.WithLogger(logger))
	} else {
		registry = capability.NewBuilderRegistry(store, capability.WithLogger(logger))
	}
	registry.MustRegister(capability.NewGetEntities(store))

	eval, err := query.New(query.Config{
		Dialect:  cfg.Evaluator.Dialect,
		Endpoint: cfg.Evaluator.Endpoint,
		Timeout:  time.Duration(cfg.Evaluator.TimeoutSeconds) * time.Second,
	}, store)
	if err != nil {
		logger.Warn("query capability unavailable", "error", err.Error())
	} else {
		registry.MustRegister(capability.NewQueryOntology(eval))
	}
	return registry
}

func runMCPList(ctx context.Context, global globalFlags, cfg *config.Config) {
	if len(cfg.MCP.Servers) == 0 {
		fmt.Println("no mcp servers configured")
		return
	}

	specs := forgemcp.SpecsFromConfig(cfg.MCP.Servers)
	serverNames := make([]string, 0, len(specs))
	for name := range specs {
		serverNames = append(serverNames, name)
	}
	sort.Strings(serverNames)

	results := make([]mcpToolResult, 0)
	for _, name := range serverNames {
		client, err := forgemcp.Connect(specs[name])
		if err != nil {
			results = append(results, mcpToolResult{Server: name, Error: err.Error()})
			continue
		}
		listCtx, cancel := context.WithTimeout(ctx, global.Timeout)
		tools, err := client.ListTools(listCtx)
		cancel()
		if err != nil {
			results = append(results, mcpToolResult{Server: name, Error: err.Error()})
			_ = client.Close()
			continue
		}
		for _, tool := range tools {
			results = append(results, mcpToolResult{Server: name, Tool: tool})
		}
		_ = client.Close()
	}

	if global.JSON {
		printJSON(results)
		return
	}
	writer := newTabWriter()
	writeRow(writer, "SERVER", "TOOL", "DESCRIPTION")
	for _, res := range results {
		if res.Error != "" {
			writeRow(writer, res.Server, "ERROR", res.Error)
			continue
		}
		writeRow(writer, res.Server, res.Tool.Name, strings.TrimSpace(res.Tool.Description))
	}
	_ = writer.Flush()
}
