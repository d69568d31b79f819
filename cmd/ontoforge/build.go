// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/session"
)

type buildResult struct {
	Dir          string        `json:"dir"`
	Snapshot     string        `json:"snapshot"`
	Ontology     string        `json:"ontology"`
	Classes      int           `json:"classes"`
	Properties   int           `json:"properties"`
	Individuals  int           `json:"individuals"`
	Phases       []phaseResult `json:"phases"`
	MalformedOWL string        `json:"malformed_owl,omitempty"`
}

type phaseResult struct {
	Name        string `json:"name"`
	Iterations  int    `json:"iterations"`
	Exhausted   bool   `json:"exhausted"`
	TotalTokens int    `json:"total_tokens"`
}

func runBuild(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	productTree := fs.String("product-tree", "", "Override the product tree data file")
	guidelines := fs.String("guidelines", "", "Override the guidelines data file")
	out := fs.String("out", "", "Override the outcome data directory")
	noTelemetry := fs.Bool("no-telemetry", false, "Disable telemetry output")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(fs.Args())

	if *productTree != "" {
		cfg.Data.ProductTree = *productTree
	}
	if *guidelines != "" {
		cfg.Data.Guidelines = *guidelines
	}
	if *out != "" {
		cfg.Data.Dir = *out
	}

	rt, err := newRuntime(ctx, cfg, *noTelemetry)
	if err != nil {
		fatal(err)
	}
	defer rt.close()

	builder, err := session.NewBuilder(cfg, rt.provider, rt.sessionOptions()...)
	if err != nil {
		fatal(err)
	}

	if !global.JSON {
		fmt.Printf("OntoForge build: %s\n", builder.SessionID())
		fmt.Printf("LLM: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		if len(cfg.MCP.Servers) > 0 {
			fmt.Printf("MCP servers: %d\n", len(cfg.MCP.Servers))
		}
		fmt.Println()
	}

	outcome, err := builder.Run(ctx)
	if err != nil {
		fatal(err)
	}

	result := buildResult{
		Dir:         outcome.Dir,
		Snapshot:    outcome.SnapshotPath,
		Ontology:    outcome.OntologyPath,
		Classes:     outcome.Stats.Classes,
		Properties:  outcome.Stats.Properties,
		Individuals: outcome.Stats.Individuals,
		Phases:      make([]phaseResult, 0, len(outcome.Phases)),
	}
	for _, ph := range outcome.Phases {
		result.Phases = append(result.Phases, phaseResult{
			Name:        ph.Name,
			Iterations:  ph.Iterations,
			Exhausted:   ph.Exhausted,
			TotalTokens: ph.Usage.TotalTokens,
		})
	}
	if outcome.MalformedOWL != nil {
		result.MalformedOWL = outcome.MalformedOWL.Error()
	}

	if global.JSON {
		printJSON(result)
		return
	}

	writer := newTabWriter()
	writeRow(writer, "PHASE", "ITERATIONS", "EXHAUSTED", "TOKENS")
	for _, ph := range result.Phases {
		writeRow(writer, ph.Name,
			strconv.Itoa(ph.Iterations),
			strconv.FormatBool(ph.Exhausted),
			strconv.Itoa(ph.TotalTokens),
		)
	}
	_ = writer.Flush()

	fmt.Println()
	fmt.Printf("Entities: %d classes, %d properties, %d individuals\n",
		result.Classes, result.Properties, result.Individuals)
	fmt.Printf("Snapshot: %s\n", result.Snapshot)
	fmt.Printf("Ontology: %s\n", result.Ontology)
	if result.MalformedOWL != "" {
		fmt.Printf("Warning: saved OWL is not well-formed XML: %s\n", result.MalformedOWL)
	}
}
