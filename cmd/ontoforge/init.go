// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

const starterConfig = `log:
  level: info
  format: text

llm:
  provider: openai
  model: gpt-5
  # api_key: ""        # falls back to OPENAI_API_KEY
  # base_url: ""

loop:
  max_iterations: 80
  ask_max_iterations: 20
  retry_delay_seconds: 15
  max_retries: 0
  verbose: false

data:
  dir: data
  product_tree: data/product_data.json
  guidelines: data/logistics.json
  questions: data/test.json

evaluator:
  dialect: datalog     # datalog (in-process) or sparql
  # endpoint: http://localhost:9999/blazegraph/namespace/kb/sparql
  timeout_seconds: 30

memory:
  enabled: false
  qdrant_addr: localhost:6334
  collection: ontoforge_entities
  embedder_provider: ollama
  embedder_base_url: http://localhost:11434
  embedder_model: nomic-embed-text

telemetry:
  enabled: false
  exporter: stdout     # stdout or otlp
  # otlp_endpoint: localhost:4317
  # otlp_insecure: true

audit:
  enabled: false
  path: data/audit.db

# External MCP tool servers, mounted into every session as <name>__<tool>.
# mcp:
#   servers:
#     glossary:
#       transport: http
#       url: http://localhost:8811/mcp
`

const sampleProductTree = `{
  "Building Materials": {
    "Retaining Walls": [
      {"ID": "GrecCurb100", "Block weight (kg)": 18, "Color": "Grey"},
      {"ID": "TerraBlock45", "Block weight (kg)": 12, "Color": "Sand"}
    ],
    "Paving": [
      {"ID": "SlabClassic60", "Surface": "Smooth", "Color": "Charcoal"}
    ]
  }
}
`

const sampleGuidelines = `{
  "paragraphs": [
    "GrecCurb100 ships on EUR pallets of 40 blocks from the Valencia warehouse; average storage time is 12 days.",
    "TerraBlock45 is stored outdoors at the Valencia warehouse and ships in bundles of 60.",
    "SlabClassic60 requires covered storage; transport cost from the Alicante depot averages 0.85 EUR per km."
  ]
}
`

const sampleQuestions = `[
  {"query": "Which products ship from the Valencia warehouse?", "expected": "GrecCurb100 and TerraBlock45"},
  {"query": "Which product categories exist?", "expected": "Retaining Walls and Paving"}
]
`

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing files")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ontoforge init [directory] [flags]

Write a starter config.yaml and sample data files so a first build can run
immediately against the mock provider or a real one.

Arguments:
  directory    Target directory (default ".")

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  ontoforge init
  ontoforge init my-ontology
  ontoforge --config my-ontology/config.yaml build
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: at most one directory argument")
		fs.Usage()
		os.Exit(1)
	}

	dir := "."
	if fs.NArg() == 1 {
		dir = fs.Arg(0)
	}
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		fatal(fmt.Errorf("create %s: %w", dir, err))
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(dir, "config.yaml"), starterConfig},
		{filepath.Join(dir, "data", "product_data.json"), sampleProductTree},
		{filepath.Join(dir, "data", "logistics.json"), sampleGuidelines},
		{filepath.Join(dir, "data", "test.json"), sampleQuestions},
	}
	for _, f := range files {
		if err := writeStarterFile(f.path, f.content, *force); err != nil {
			fatal(err)
		}
		fmt.Printf("  wrote %s\n", f.path)
	}

	fmt.Println()
	fmt.Println("Project initialized.")
	fmt.Println()
	fmt.Println("Next steps:")
	if dir != "." {
		fmt.Printf("  cd %s\n", dir)
	}
	fmt.Println("  export OPENAI_API_KEY=...   # or set llm.api_key in config.yaml")
	fmt.Println("  ontoforge --config config.yaml build")
	fmt.Println("  ontoforge --config config.yaml ask")
}

func writeStarterFile(path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
