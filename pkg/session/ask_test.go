// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	ftesting "github.com/ontoforge/ontoforge/pkg/testing"
)

// askConfig seeds a data dir with one saved outcome so the asker has a
// snapshot to replay.
func askConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := buildConfig(t)

	store := ontology.NewStore()
	store.UpsertClass("Product", nil, []string{"sellable item"})
	store.UpsertClass("Logistic", nil, nil)
	store.UpsertIndividual("GrecCurb100", []string{"Product"}, nil, nil)

	dir, err := NewOutcomeDir(cfg.Data.Dir, time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC))
	if err != nil {
		t.Fatalf("new outcome dir: %v", err)
	}
	if err := store.Save(filepath.Join(dir, SnapshotFileName)); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, OntologyFileName), []byte(sampleOWL), 0o644); err != nil {
		t.Fatalf("write ontology: %v", err)
	}
	return cfg
}

func TestNewAskerValidation(t *testing.T) {
	if _, err := NewAsker(nil, ftesting.NewScenarioProvider()); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewAsker(askConfig(t), nil); err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestNewAskerReplaysLatestSnapshot(t *testing.T) {
	cfg := askConfig(t)
	asker, err := NewAsker(cfg, ftesting.NewScenarioProvider())
	if err != nil {
		t.Fatalf("new asker: %v", err)
	}
	if filepath.Base(asker.SnapshotPath()) != SnapshotFileName {
		t.Fatalf("unexpected snapshot path: %s", asker.SnapshotPath())
	}
	if filepath.Base(asker.OntologyPath()) != OntologyFileName {
		t.Fatalf("unexpected ontology path: %s", asker.OntologyPath())
	}
	stats := asker.Stats()
	if stats.Classes != 2 || stats.Individuals != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestNewAskerMissingConfiguredOntology(t *testing.T) {
	cfg := askConfig(t)
	cfg.Data.OWL = filepath.Join(cfg.Data.Dir, "no-such.owl")
	if _, err := NewAsker(cfg, ftesting.NewScenarioProvider()); err == nil {
		t.Fatal("expected error for an explicitly configured document that is missing")
	}
}

func TestNewAskerWithoutOutcome(t *testing.T) {
	cfg := buildConfig(t)
	if _, err := NewAsker(cfg, ftesting.NewScenarioProvider()); err == nil {
		t.Fatal("expected error when no outcome exists")
	}
}

func TestAskerAskRunsExplorerLoop(t *testing.T) {
	cfg := askConfig(t)
	provider := ftesting.NewScenarioProvider().
		AddToolCallResponse(ftesting.NewToolCall("query_ontology").
			WithID("call-1").
			WithArg("query_text", "?class(X).").
			Build()).
		AddResponse("The ontology has two classes: Logistic and Product.")

	asker, err := NewAsker(cfg, provider)
	if err != nil {
		t.Fatalf("new asker: %v", err)
	}

	ans, err := asker.Ask(context.Background(), Question{
		Query:    "How many classes does the ontology have?",
		Expected: "2",
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.Text != "The ontology has two classes: Logistic and Product." {
		t.Fatalf("unexpected answer: %q", ans.Text)
	}
	if ans.Iterations != 2 || ans.Exhausted {
		t.Fatalf("unexpected answer accounting: %+v", ans)
	}
	if ans.Expected != "2" {
		t.Fatalf("expected value not carried: %+v", ans)
	}

	requests := provider.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(requests))
	}
	first := requests[0]
	if len(first.Tools) != 2 {
		t.Fatalf("expected 2 explorer capabilities, got %d", len(first.Tools))
	}
	if first.Messages[0].Role != llm.RoleSystem || !strings.Contains(first.Messages[0].Content, "Datalog") {
		t.Fatal("system prompt should describe the Datalog dialect")
	}
	if first.Messages[1].Content != "How many classes does the ontology have?" {
		t.Fatalf("unexpected user turn: %q", first.Messages[1].Content)
	}

	// The evaluator ran against the replayed snapshot.
	toolMsg := requests[1].Messages[len(requests[1].Messages)-1]
	if toolMsg.Role != llm.RoleTool {
		t.Fatalf("expected tool result, got role %q", toolMsg.Role)
	}
	if !strings.Contains(toolMsg.Content, "Logistic") || !strings.Contains(toolMsg.Content, "Product") {
		t.Fatalf("query rows missing from result: %q", toolMsg.Content)
	}
}

func TestAskerRunAnswersAllQuestions(t *testing.T) {
	cfg := askConfig(t)
	questions := `[
  {"query": "How many classes does the ontology have?", "expected": "2"},
  {"query": "Is GrecCurb100 a product?", "expected": "yes"}
]`
	if err := os.WriteFile(cfg.Data.Questions, []byte(questions), 0o644); err != nil {
		t.Fatalf("write questions: %v", err)
	}

	provider := ftesting.NewScenarioProvider().
		AddResponse("Two.").
		AddResponse("Yes, it is an instance of Product.")

	asker, err := NewAsker(cfg, provider)
	if err != nil {
		t.Fatalf("new asker: %v", err)
	}
	answers, err := asker.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if answers[0].Text != "Two." || answers[0].Expected != "2" {
		t.Fatalf("unexpected first answer: %+v", answers[0])
	}
	if answers[1].Query != "Is GrecCurb100 a product?" {
		t.Fatalf("unexpected second answer: %+v", answers[1])
	}
}

func TestAskerRunMissingQuestionsFile(t *testing.T) {
	cfg := askConfig(t)
	asker, err := NewAsker(cfg, ftesting.NewScenarioProvider())
	if err != nil {
		t.Fatalf("new asker: %v", err)
	}
	if _, err := asker.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing questions file")
	}
}
