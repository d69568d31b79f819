// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the OntoForge CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ontoforge/ontoforge/pkg/config"
)

const version = "0.1.0"

type globalFlags struct {
	ConfigArgs []string
	Timeout    time.Duration
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cmd := args[0]
	if cmd == "init" {
		// init runs before any config file exists.
		runInit(args[1:])
		return
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		fatal(err)
	}

	switch cmd {
	case "build":
		runBuild(ctx, global, cfg, args[1:])
	case "ask":
		runAsk(ctx, global, cfg, args[1:])
	case "show":
		runShow(ctx, global, cfg, args[1:])
	case "validate":
		runValidate(ctx, global, cfg, args[1:])
	case "graph":
		runGraph(global, cfg, args[1:])
	case "mcp":
		runMCP(ctx, global, cfg, args[1:])
	case "version":
		ensureNoArgs(args[1:])
		printVersion()
	case "help":
		printUsage()
	default:
		fatal(fmt.Errorf("unknown command %q", cmd))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		Timeout: 30 * time.Second,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config" || arg == "--set" || arg == "--profile" || arg == "--env":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="),
			strings.HasPrefix(arg, "--set="),
			strings.HasPrefix(arg, "--profile="),
			strings.HasPrefix(arg, "--env="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--timeout":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --timeout")
			}
			value, err := time.ParseDuration(args[i+1])
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
			i++
		case strings.HasPrefix(arg, "--timeout="):
			value, err := time.ParseDuration(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

// findConfigPath extracts the --config value from accumulated config args.
func findConfigPath(configArgs []string) string {
	for i := 0; i < len(configArgs); i++ {
		arg := configArgs[i]
		if arg == "--config" && i+1 < len(configArgs) {
			return configArgs[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func printJSON(value any) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(payload))
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func truncateMessage(value string, limit int) string {
	value = normalizeCell(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}

func printVersion() {
	fmt.Println(version)
}

func printUsage() {
	fmt.Println(`OntoForge CLI

Usage:
  ontoforge [global flags] <command> [args]

Global flags:
  --config <path>      Path to config.yaml
  --profile <name>     Overlay config.<profile>.yaml next to the base file
  --set key=value      Override config (repeatable)
  --timeout <dur>      Probe timeout for validate and mcp list (default 30s)
  --json               JSON output

Commands:
  build [--product-tree <path>] [--guidelines <path>] [--out <dir>]
  ask [--query <text>] [--questions <path>] [--snapshot <path>] [--owl <path>]
  show [--snapshot <path>] [--audit [--session <id>] [--failed] [--limit N]]
  validate
  graph [--output dot|mermaid|json] [--snapshot <path>]
  init [dir] [--force]
  mcp serve [--fresh] [--snapshot <path>] [--watch]
  mcp list
  version
  help`)
}

func fatal(err error) {
	printError(err)
	os.Exit(1)
}

func ensureNoArgs(args []string) {
	if len(args) > 0 {
		fatal(fmt.Errorf("unexpected args: %v", args))
	}
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
