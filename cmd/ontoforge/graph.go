// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/session"
)

type graphResult struct {
	Format   string `json:"format"`
	Content  string `json:"content"`
	Snapshot string `json:"snapshot"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
}

func runGraph(global globalFlags, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	output := fs.String("output", "dot", "Output format: dot, mermaid, json")
	snapshot := fs.String("snapshot", "", "Entities snapshot to render (default: latest outcome)")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	ensureNoArgs(fs.Args())

	if *snapshot != "" {
		cfg.Data.Snapshot = *snapshot
	}
	path, err := session.ResolveSnapshot(cfg.Data)
	if err != nil {
		fatal(err)
	}
	store, err := ontology.FromFile(path)
	if err != nil {
		fatal(err)
	}

	stats := store.Stats()
	result := graphResult{
		Format:   *output,
		Snapshot: path,
		Nodes:    stats.Classes + stats.Individuals,
		Edges:    countEdges(store),
	}

	switch *output {
	case "dot":
		result.Content = toDot(store)
	case "mermaid":
		result.Content = toMermaid(store)
	case "json":
		payload, err := os.ReadFile(path)
		if err != nil {
			fatal(err)
		}
		result.Content = string(payload)
	default:
		fatal(fmt.Errorf("unknown output format %q; use dot, mermaid, or json", *output))
	}

	if global.JSON {
		printJSON(result)
		return
	}
	fmt.Println(result.Content)
}

func countEdges(store *ontology.Store) int {
	edges := 0
	for _, c := range store.Classes() {
		edges += c.SubclassOf.Len()
	}
	for _, ind := range store.Individuals() {
		edges += ind.Classes.Len()
	}
	return edges
}

// toDot renders classes as boxes and individuals as ellipses. Subclass
// edges are solid; membership edges are dashed.
func toDot(store *ontology.Store) string {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=BT;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n")

	classes := store.Classes()
	for _, name := range sortedNames(classes) {
		c := classes[name]
		attrs := fmt.Sprintf("label=%q", c.Name)
		if c.SubclassOf.Len() == 0 {
			attrs += ", style=\"rounded,filled\", fillcolor=\"#90EE90\""
		}
		sb.WriteString(fmt.Sprintf("    %q [%s];\n", c.Name, attrs))
	}

	individuals := store.Individuals()
	for _, name := range sortedNames(individuals) {
		sb.WriteString(fmt.Sprintf("    %q [shape=ellipse];\n", name))
	}

	for _, name := range sortedNames(classes) {
		for _, super := range classes[name].SubclassOf.Values() {
			sb.WriteString(fmt.Sprintf("    %q -> %q;\n", name, super))
		}
	}
	for _, name := range sortedNames(individuals) {
		for _, class := range individuals[name].Classes.Values() {
			sb.WriteString(fmt.Sprintf("    %q -> %q [style=dashed];\n", name, class))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func toMermaid(store *ontology.Store) string {
	var sb strings.Builder
	sb.WriteString("graph BT\n")

	classes := store.Classes()
	for _, name := range sortedNames(classes) {
		sb.WriteString(fmt.Sprintf("    %s[%s]\n", mermaidID(name), name))
	}
	individuals := store.Individuals()
	for _, name := range sortedNames(individuals) {
		sb.WriteString(fmt.Sprintf("    %s((%s))\n", mermaidID(name), name))
	}

	for _, name := range sortedNames(classes) {
		for _, super := range classes[name].SubclassOf.Values() {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidID(name), mermaidID(super)))
		}
	}
	for _, name := range sortedNames(individuals) {
		for _, class := range individuals[name].Classes.Values() {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", mermaidID(name), mermaidID(class)))
		}
	}
	return sb.String()
}

// mermaidID strips characters mermaid cannot carry in node identifiers.
func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
