// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ontoforge/ontoforge/pkg/config"
	forgemcp "github.com/ontoforge/ontoforge/pkg/mcp"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/query"
	"github.com/ontoforge/ontoforge/pkg/session"
)

type validateResult struct {
	Config    checkResult   `json:"config"`
	Data      []checkResult `json:"data"`
	LLM       checkResult   `json:"llm"`
	Evaluator checkResult   `json:"evaluator"`
	Snapshot  checkResult   `json:"snapshot"`
	MCP       []checkResult `json:"mcp"`
	Memory    checkResult   `json:"memory"`
	Audit     checkResult   `json:"audit"`
	Overall   string        `json:"overall"`
}

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warn", "error", "skip"
	Message string `json:"message,omitempty"`
}

func runValidate(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	ensureNoArgs(args)

	result := validateResult{
		Data: []checkResult{},
		MCP:  []checkResult{},
	}
	hasError := false
	hasWarn := false
	track := func(checks ...checkResult) {
		for _, r := range checks {
			switch r.Status {
			case "error":
				hasError = true
			case "warn":
				hasWarn = true
			}
		}
	}

	configPath := findConfigPath(global.ConfigArgs)
	msg := "defaults + environment"
	if configPath != "" {
		msg = configPath
	}
	result.Config = checkResult{Name: "config", Status: "ok", Message: msg}

	result.Data = validateDataFiles(cfg)
	track(result.Data...)

	result.LLM = validateLLM(cfg)
	track(result.LLM)

	result.Evaluator = validateEvaluator(cfg)
	track(result.Evaluator)

	result.Snapshot = validateSnapshot(cfg)
	track(result.Snapshot)

	if len(cfg.MCP.Servers) > 0 {
		result.MCP = validateMCPServers(ctx, cfg, global.Timeout)
		track(result.MCP...)
	}

	result.Memory = validateMemory(cfg)
	track(result.Memory)

	result.Audit = validateAudit(cfg)
	track(result.Audit)

	if hasError {
		result.Overall = "error"
	} else if hasWarn {
		result.Overall = "warn"
	} else {
		result.Overall = "ok"
	}

	if global.JSON {
		printJSON(result)
	} else {
		printValidateResult(result)
	}

	if hasError {
		os.Exit(1)
	}
}

func validateDataFiles(cfg *config.Config) []checkResult {
	check := func(name, path, status string) checkResult {
		if strings.TrimSpace(path) == "" {
			return checkResult{Name: name, Status: status, Message: "no path configured"}
		}
		if _, err := os.Stat(path); err != nil {
			return checkResult{Name: name, Status: status, Message: fmt.Sprintf("%s not found", path)}
		}
		return checkResult{Name: name, Status: "ok", Message: path}
	}
	return []checkResult{
		// build needs both inputs; ask only needs questions.
		check("data:product_tree", cfg.Data.ProductTree, "error"),
		check("data:guidelines", cfg.Data.Guidelines, "error"),
		check("data:questions", cfg.Data.Questions, "warn"),
	}
}

func validateLLM(cfg *config.Config) checkResult {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	keyOrEnv := func(env string) bool {
		return cfg.LLM.APIKey != "" || os.Getenv(env) != ""
	}

	switch provider {
	case "", "openai":
		if !keyOrEnv("OPENAI_API_KEY") {
			return checkResult{Name: "llm", Status: "error",
				Message: "openai configured but neither llm.api_key nor OPENAI_API_KEY set"}
		}
		return checkResult{Name: "llm", Status: "ok", Message: fmt.Sprintf("openai (%s)", cfg.LLM.Model)}

	case "anthropic", "claude":
		if !keyOrEnv("ANTHROPIC_API_KEY") {
			return checkResult{Name: "llm", Status: "error",
				Message: "anthropic configured but neither llm.api_key nor ANTHROPIC_API_KEY set"}
		}
		return checkResult{Name: "llm", Status: "ok", Message: fmt.Sprintf("anthropic (%s)", cfg.LLM.Model)}

	case "gemini", "google":
		if !keyOrEnv("GEMINI_API_KEY") && os.Getenv("GOOGLE_API_KEY") == "" {
			return checkResult{Name: "llm", Status: "warn",
				Message: "gemini configured without an api key; the SDK may find other credentials"}
		}
		return checkResult{Name: "llm", Status: "ok", Message: fmt.Sprintf("gemini (%s)", cfg.LLM.Model)}

	case "qwen", "dashscope":
		if cfg.LLM.APIKey == "" {
			return checkResult{Name: "llm", Status: "error", Message: "qwen configured but llm.api_key not set"}
		}
		return checkResult{Name: "llm", Status: "ok", Message: fmt.Sprintf("qwen (%s)", cfg.LLM.Model)}

	case "ollama":
		baseURL := cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !checkHTTP(baseURL) {
			return checkResult{Name: "llm", Status: "error",
				Message: fmt.Sprintf("ollama not reachable at %s", baseURL)}
		}
		if cfg.LLM.Model == "" {
			return checkResult{Name: "llm", Status: "warn", Message: "ollama reachable but no model configured"}
		}
		return checkResult{Name: "llm", Status: "ok", Message: fmt.Sprintf("ollama (%s)", cfg.LLM.Model)}

	case "openai-compat", "compat":
		if cfg.LLM.BaseURL == "" {
			return checkResult{Name: "llm", Status: "error", Message: "openai-compat requires llm.base_url"}
		}
		return checkResult{Name: "llm", Status: "ok", Message: fmt.Sprintf("openai-compat at %s", cfg.LLM.BaseURL)}

	case "mock":
		return checkResult{Name: "llm", Status: "ok", Message: "mock provider"}

	default:
		return checkResult{Name: "llm", Status: "warn", Message: fmt.Sprintf("unknown provider %q", cfg.LLM.Provider)}
	}
}

func validateEvaluator(cfg *config.Config) checkResult {
	dialect := strings.ToLower(strings.TrimSpace(cfg.Evaluator.Dialect))
	switch dialect {
	case "", query.DialectDatalog:
		return checkResult{Name: "evaluator", Status: "ok", Message: "datalog (in-process)"}
	case query.DialectSPARQL:
		if cfg.Evaluator.Endpoint == "" {
			return checkResult{Name: "evaluator", Status: "error", Message: "sparql dialect requires evaluator.endpoint"}
		}
		if !checkHTTP(cfg.Evaluator.Endpoint) {
			return checkResult{Name: "evaluator", Status: "warn",
				Message: fmt.Sprintf("sparql endpoint %s not reachable", cfg.Evaluator.Endpoint)}
		}
		return checkResult{Name: "evaluator", Status: "ok", Message: fmt.Sprintf("sparql at %s", cfg.Evaluator.Endpoint)}
	default:
		return checkResult{Name: "evaluator", Status: "error",
			Message: fmt.Sprintf("unknown dialect %q (known: datalog, sparql)", cfg.Evaluator.Dialect)}
	}
}

// validateSnapshot parses the latest (or configured) snapshot and reports
// dangling references. Dangling references never fail validation; the store
// accepts forward references while the ontology is under construction.
func validateSnapshot(cfg *config.Config) checkResult {
	path, err := session.ResolveSnapshot(cfg.Data)
	if err != nil {
		return checkResult{Name: "snapshot", Status: "skip", Message: "no outcomes yet; run a build first"}
	}
	store, err := ontology.FromFile(path)
	if err != nil {
		return checkResult{Name: "snapshot", Status: "error", Message: fmt.Sprintf("%s: %v", path, err)}
	}
	stats := store.Stats()
	summary := fmt.Sprintf("%s (%d classes, %d properties, %d individuals)",
		path, stats.Classes, stats.Properties, stats.Individuals)

	if refs := danglingRefs(store); len(refs) > 0 {
		shown := refs
		if len(shown) > 3 {
			shown = shown[:3]
		}
		return checkResult{Name: "snapshot", Status: "warn",
			Message: fmt.Sprintf("%s; %d dangling references: %s", summary, len(refs), strings.Join(shown, "; "))}
	}
	return checkResult{Name: "snapshot", Status: "ok", Message: summary}
}

// danglingRefs lists references to entities the snapshot never defines:
// unknown superclasses, unknown individual classes, and property relations
// with no matching property entry.
func danglingRefs(store *ontology.Store) []string {
	classes := store.Classes()
	properties := store.Properties()

	var refs []string
	for _, name := range sortedNames(classes) {
		for _, super := range classes[name].SubclassOf.Values() {
			if _, ok := classes[super]; !ok {
				refs = append(refs, fmt.Sprintf("class %s: unknown superclass %s", name, super))
			}
		}
	}
	individuals := store.Individuals()
	for _, name := range sortedNames(individuals) {
		ind := individuals[name]
		for _, class := range ind.Classes.Values() {
			if _, ok := classes[class]; !ok {
				refs = append(refs, fmt.Sprintf("individual %s: unknown class %s", name, class))
			}
		}
		for _, pair := range ind.Properties.Values() {
			if _, ok := properties[pair.Relation]; !ok {
				refs = append(refs, fmt.Sprintf("individual %s: unknown property %s", name, pair.Relation))
			}
		}
	}
	return refs
}

func validateMCPServers(ctx context.Context, cfg *config.Config, timeout time.Duration) []checkResult {
	specs := forgemcp.SpecsFromConfig(cfg.MCP.Servers)
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]checkResult, 0, len(specs))
	for _, name := range names {
		spec := specs[name]
		transport := strings.ToLower(strings.TrimSpace(spec.Transport))
		if transport == "" {
			if spec.URL != "" {
				transport = "http"
			} else {
				transport = "stdio"
			}
		}

		switch transport {
		case "stdio":
			if strings.TrimSpace(spec.Command) == "" {
				results = append(results, checkResult{
					Name: "mcp:" + name, Status: "error", Message: "missing command for stdio transport"})
				continue
			}
			// Config-only check; spawning the subprocess is expensive.
			results = append(results, checkResult{
				Name: "mcp:" + name, Status: "ok", Message: "stdio: " + spec.Command})

		case "http":
			if spec.URL == "" {
				results = append(results, checkResult{
					Name: "mcp:" + name, Status: "error", Message: "missing url for http transport"})
				continue
			}
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			client, err := forgemcp.Connect(spec)
			if err != nil {
				cancel()
				results = append(results, checkResult{
					Name: "mcp:" + name, Status: "error", Message: fmt.Sprintf("failed to connect: %v", err)})
				continue
			}
			tools, err := client.ListTools(checkCtx)
			cancel()
			_ = client.Close()
			if err != nil {
				results = append(results, checkResult{
					Name: "mcp:" + name, Status: "error", Message: fmt.Sprintf("failed to list tools: %v", err)})
				continue
			}
			results = append(results, checkResult{
				Name: "mcp:" + name, Status: "ok", Message: fmt.Sprintf("http: %d tools available", len(tools))})

		default:
			results = append(results, checkResult{
				Name: "mcp:" + name, Status: "error", Message: fmt.Sprintf("unsupported transport %q", transport)})
		}
	}
	return results
}

func validateMemory(cfg *config.Config) checkResult {
	if !cfg.Memory.Enabled {
		return checkResult{Name: "memory", Status: "ok", Message: "disabled"}
	}
	if strings.TrimSpace(cfg.Memory.QdrantAddr) == "" {
		return checkResult{Name: "memory", Status: "error", Message: "memory enabled but memory.qdrant_addr not set"}
	}
	if provider := strings.ToLower(strings.TrimSpace(cfg.Memory.EmbedderProvider)); provider != "" && provider != "ollama" {
		return checkResult{Name: "memory", Status: "error",
			Message: fmt.Sprintf("unknown embedder provider %q", cfg.Memory.EmbedderProvider)}
	}
	if !checkTCP(cfg.Memory.QdrantAddr) {
		return checkResult{Name: "memory", Status: "warn",
			Message: fmt.Sprintf("qdrant not reachable at %s", cfg.Memory.QdrantAddr)}
	}
	return checkResult{Name: "memory", Status: "ok",
		Message: fmt.Sprintf("qdrant at %s, collection %s", cfg.Memory.QdrantAddr, cfg.Memory.Collection)}
}

func validateAudit(cfg *config.Config) checkResult {
	if !cfg.Audit.Enabled {
		return checkResult{Name: "audit", Status: "ok", Message: "disabled"}
	}
	path := cfg.Audit.Path
	if path == "" {
		return checkResult{Name: "audit", Status: "warn", Message: "audit enabled without a path; using data dir default"}
	}
	return checkResult{Name: "audit", Status: "ok", Message: path}
}

func checkTCP(addr string) bool {
	if strings.TrimSpace(addr) == "" {
		return false
	}
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func checkHTTP(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Host
	if host == "" {
		host = parsed.Path
	}
	if host == "" {
		return false
	}
	if !strings.Contains(host, ":") {
		if parsed.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	return checkTCP(host)
}

func printValidateResult(result validateResult) {
	statusIcon := map[string]string{
		"ok":    "✓",
		"warn":  "⚠",
		"error": "✗",
		"skip":  "○",
	}

	fmt.Println("OntoForge Configuration Validation")
	fmt.Println("==================================")
	fmt.Println()

	printCheck(statusIcon, result.Config)
	for _, r := range result.Data {
		printCheck(statusIcon, r)
	}
	printCheck(statusIcon, result.LLM)
	printCheck(statusIcon, result.Evaluator)
	printCheck(statusIcon, result.Snapshot)
	if len(result.MCP) > 0 {
		for _, r := range result.MCP {
			printCheck(statusIcon, r)
		}
	} else {
		fmt.Printf("%s mcp: no servers configured\n", statusIcon["ok"])
	}
	printCheck(statusIcon, result.Memory)
	printCheck(statusIcon, result.Audit)

	fmt.Println()
	switch result.Overall {
	case "ok":
		fmt.Println("✓ All checks passed")
	case "warn":
		fmt.Println("⚠ Validation completed with warnings")
	case "error":
		fmt.Println("✗ Validation failed")
	}
}

func printCheck(icons map[string]string, r checkResult) {
	icon := icons[r.Status]
	if r.Message != "" {
		fmt.Printf("%s %s: %s\n", icon, r.Name, r.Message)
	} else {
		fmt.Printf("%s %s\n", icon, r.Name)
	}
}
