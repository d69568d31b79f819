// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"

	"github.com/ontoforge/ontoforge/pkg/ontology"
)

func hierarchyStore() *ontology.Store {
	store := ontology.NewStore()
	store.UpsertClass("Product", nil, []string{"sellable item"})
	store.UpsertClass("RetainingWall", []string{"Product"}, nil)
	store.UpsertIndividual("GrecCurb100", []string{"RetainingWall"}, nil, nil)
	return store
}

func TestToDotRendersHierarchy(t *testing.T) {
	result := toDot(hierarchyStore())

	if !strings.Contains(result, "digraph G") {
		t.Error("expected digraph G")
	}
	if !strings.Contains(result, `"RetainingWall" -> "Product";`) {
		t.Errorf("expected subclass edge, got:\n%s", result)
	}
	if !strings.Contains(result, `"GrecCurb100" -> "RetainingWall" [style=dashed];`) {
		t.Errorf("expected dashed membership edge, got:\n%s", result)
	}
	if !strings.Contains(result, `"GrecCurb100" [shape=ellipse];`) {
		t.Error("expected individuals as ellipses")
	}
	// Root classes get the highlight fill.
	if !strings.Contains(result, `"Product" [label="Product", style="rounded,filled", fillcolor="#90EE90"];`) {
		t.Errorf("expected highlighted root class, got:\n%s", result)
	}
}

func TestToMermaidRendersHierarchy(t *testing.T) {
	result := toMermaid(hierarchyStore())

	if !strings.Contains(result, "graph BT") {
		t.Error("expected graph BT directive")
	}
	if !strings.Contains(result, "RetainingWall --> Product") {
		t.Errorf("expected subclass edge, got:\n%s", result)
	}
	if !strings.Contains(result, "GrecCurb100 -.-> RetainingWall") {
		t.Errorf("expected dotted membership edge, got:\n%s", result)
	}
	if !strings.Contains(result, "GrecCurb100((GrecCurb100))") {
		t.Error("expected individuals as circles")
	}
}

func TestToMermaidSanitizesIDs(t *testing.T) {
	store := ontology.NewStore()
	store.UpsertClass("Block weight (kg)", nil, nil)

	result := toMermaid(store)
	if !strings.Contains(result, "Block_weight__kg_[Block weight (kg)]") {
		t.Errorf("expected sanitized node id with original label, got:\n%s", result)
	}
}

func TestMermaidID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Product", "Product"},
		{"Block weight (kg)", "Block_weight__kg_"},
		{"a-b.c", "a_b_c"},
	}
	for _, tc := range cases {
		if got := mermaidID(tc.in); got != tc.want {
			t.Errorf("mermaidID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCountEdges(t *testing.T) {
	if got := countEdges(hierarchyStore()); got != 2 {
		t.Errorf("countEdges = %d, want 2", got)
	}
	if got := countEdges(ontology.NewStore()); got != 0 {
		t.Errorf("countEdges on empty store = %d, want 0", got)
	}
}
