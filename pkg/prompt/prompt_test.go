// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"strings"
	"testing"
)

func TestBuildFromProductTreeEmbedsDataAndFraming(t *testing.T) {
	data := `{"Retaining Walls": {"EcoRing": {"ID": 2298}}}`
	got := BuildFromProductTree(data)

	if !strings.HasPrefix(got, Generic) {
		t.Fatalf("product tree prompt does not start with the generic framing")
	}
	if !strings.Contains(got, "```"+data+"```") {
		t.Fatalf("product tree prompt does not embed the data verbatim:\n%s", got)
	}
	if !strings.Contains(got, "product taxonomy") {
		t.Fatalf("product tree prompt missing scenario description")
	}
}

func TestEnrichFromTextEmbedsDataAndFraming(t *testing.T) {
	data := "Blocks in Sector A cost 1.25 euro per day."
	got := EnrichFromText(data)

	if !strings.HasPrefix(got, Generic) {
		t.Fatalf("enrich prompt does not start with the generic framing")
	}
	if !strings.Contains(got, "```"+data+"```") {
		t.Fatalf("enrich prompt does not embed the data verbatim:\n%s", got)
	}
	if !strings.Contains(got, "`Logistic`") {
		t.Fatalf("enrich prompt missing the Logistic superclass instruction")
	}
}

func TestTranscribeOWLPlacesEachTable(t *testing.T) {
	got := TranscribeOWL(`{"Product": "c"}`, `{"hasColor": "p"}`, `{"EcoRing": "i"}`)

	for _, want := range []string{
		"RDF/XML",
		"Protégé",
		"```{\"Product\": \"c\"}```",
		"```{\"hasColor\": \"p\"}```",
		"```{\"EcoRing\": \"i\"}```",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("transcription prompt missing %q:\n%s", want, got)
		}
	}
}

func TestExploreSelectsDialect(t *testing.T) {
	sparql := Explore("sparql")
	if !strings.Contains(sparql, "SPARQL") {
		t.Fatalf("sparql explore prompt does not mention SPARQL:\n%s", sparql)
	}
	if strings.Contains(sparql, "Datalog") {
		t.Fatalf("sparql explore prompt leaks datalog wording")
	}

	datalog := Explore("Datalog")
	if !strings.Contains(datalog, "Datalog") {
		t.Fatalf("datalog explore prompt does not mention Datalog:\n%s", datalog)
	}
	// The model writes queries itself, so the prompt has to enumerate every
	// predicate the evaluator answers.
	for _, pred := range []string{
		"class(Name)",
		"property(Name)",
		"individual(Name)",
		"role(Name, Role)",
		"subclass_of(Class, Parent)",
		"subclass_of_closure(Class, Ancestor)",
		"instance_of(Individual, Class)",
		"instance_of_closure(Individual, Class)",
		"triple(Subject, Relation, Object)",
	} {
		if !strings.Contains(datalog, pred) {
			t.Fatalf("datalog explore prompt missing predicate %q", pred)
		}
	}

	// Unspecified dialects fall back to Datalog, matching the evaluator
	// default.
	if got := Explore(""); got != datalog {
		t.Fatalf("empty dialect should fall back to the Datalog prompt")
	}
}

func TestUserTurnsAreStable(t *testing.T) {
	// The build session replays these verbatim; downstream transcripts and
	// audits key off the exact wording.
	if ExtractTurn != "Extract the class, individuals and properties to generate the ontology as specified." {
		t.Fatalf("unexpected extract turn: %q", ExtractTurn)
	}
	if EnrichTurn != "Extract the class, individuals and properties to enrich the ontology as specified." {
		t.Fatalf("unexpected enrich turn: %q", EnrichTurn)
	}
	if TranscribeTurn != "Generate the OWL file as specified." {
		t.Fatalf("unexpected transcribe turn: %q", TranscribeTurn)
	}
}
