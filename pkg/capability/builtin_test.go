// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ontoforge/ontoforge/pkg/ontology"
)

type stubEvaluator struct {
	rows     []string
	err      error
	lastText string
}

func (s *stubEvaluator) Query(_ context.Context, queryText string) ([]string, error) {
	s.lastText = queryText
	return s.rows, s.err
}

func resultsField(t *testing.T, payload string) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("payload is not a results object: %v (%s)", err, payload)
	}
	return out["results"]
}

func TestAddClassCreateThenMerge(t *testing.T) {
	store := ontology.NewStore()
	r := NewBuilderRegistry(store)
	ctx := context.Background()

	payload, err := r.Execute(ctx, NameAddClass,
		`{"name":"Person","subclassOf":["Mammal"],"role":["agent"]}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := resultsField(t, payload); got != "Class `Person` created." {
		t.Errorf("unexpected confirmation: %q", got)
	}

	payload, err = r.Execute(ctx, NameAddClass,
		`{"name":"Person","subclassOf":["LivingBeing"],"role":["human"]}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := resultsField(t, payload); got != "Class `Person` updated." {
		t.Errorf("unexpected confirmation: %q", got)
	}

	classes := store.Classes()
	person, ok := classes["Person"]
	if !ok {
		t.Fatal("Person not in store")
	}
	if got := person.SubclassOf.Values(); !reflect.DeepEqual(got, []string{"LivingBeing", "Mammal"}) {
		t.Errorf("subclassOf not unioned: %v", got)
	}
	if got := person.Role.Values(); !reflect.DeepEqual(got, []string{"agent", "human"}) {
		t.Errorf("role not unioned: %v", got)
	}
}

func TestAddPropertyMergesRoles(t *testing.T) {
	store := ontology.NewStore()
	r := NewBuilderRegistry(store)
	ctx := context.Background()

	if _, err := r.Execute(ctx, NameAddProperty,
		`{"name":"hasAge","role":["numeric","temporal"]}`); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	payload, err := r.Execute(ctx, NameAddProperty,
		`{"name":"hasAge","role":["numeric","demographic"]}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := resultsField(t, payload); got != "Property `hasAge` updated." {
		t.Errorf("unexpected confirmation: %q", got)
	}

	prop := store.Properties()["hasAge"]
	if got := prop.Role.Values(); !reflect.DeepEqual(got, []string{"demographic", "numeric", "temporal"}) {
		t.Errorf("roles not unioned: %v", got)
	}
}

func TestAddIndividualPairSetMerge(t *testing.T) {
	store := ontology.NewStore()
	r := NewBuilderRegistry(store)
	ctx := context.Background()

	if _, err := r.Execute(ctx, NameAddIndividual,
		`{"name":"Alice","classes":["Person"],"properties":[["hasAge","23"],["hasName","Alice Johnson"]]}`); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// hasAge/23 repeats and must collapse; hasHobby is new
	if _, err := r.Execute(ctx, NameAddIndividual,
		`{"name":"Alice","classes":["Scholar"],"properties":[["hasAge","23"],["hasHobby","Reading"]]}`); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	alice := store.Individuals()["Alice"]
	if got := alice.Classes.Values(); !reflect.DeepEqual(got, []string{"Person", "Scholar"}) {
		t.Errorf("classes not unioned: %v", got)
	}
	if alice.Properties.Len() != 3 {
		t.Errorf("expected 3 distinct pairs, got %d: %v", alice.Properties.Len(), alice.Properties.Values())
	}
	if !alice.Properties.Contains(ontology.Pair{Relation: "hasAge", Value: "23"}) {
		t.Error("hasAge/23 pair missing")
	}
}

func TestMutatorIdempotence(t *testing.T) {
	ctx := context.Background()
	args := `{"name":"Person","subclassOf":["Mammal"],"role":["agent"]}`

	once := ontology.NewStore()
	rOnce := NewBuilderRegistry(once)
	if _, err := rOnce.Execute(ctx, NameAddClass, args); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	twice := ontology.NewStore()
	rTwice := NewBuilderRegistry(twice)
	for i := 0; i < 2; i++ {
		if _, err := rTwice.Execute(ctx, NameAddClass, args); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}

	if !once.Equal(twice) {
		t.Error("repeated identical mutator call changed the store")
	}
}

func TestMutatorFaultLeavesStoreUnchanged(t *testing.T) {
	store := ontology.NewStore()
	r := NewBuilderRegistry(store)
	ctx := context.Background()

	if _, err := r.Execute(ctx, NameAddClass, `{"name":"Person"}`); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	before := store.Stats()

	// required "name" missing
	payload, err := r.Execute(ctx, NameAddClass, `{"subclassOf":["Mammal"]}`)
	if err == nil {
		t.Fatal("expected schema rejection")
	}
	if !strings.Contains(payload, "Error:") {
		t.Errorf("expected error payload, got %s", payload)
	}
	if store.Stats() != before {
		t.Error("failed mutator call changed the store")
	}
}

func TestGetClassesReturnsFullRecords(t *testing.T) {
	store := ontology.NewStore()
	store.UpsertClass("Person", []string{"Mammal"}, []string{"agent"})
	r := NewBuilderRegistry(store)

	payload, err := r.Execute(context.Background(), NameGetClasses, "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var classes map[string]ontology.Class
	if err := json.Unmarshal([]byte(payload), &classes); err != nil {
		t.Fatalf("payload is not a class table: %v", err)
	}
	person, ok := classes["Person"]
	if !ok {
		t.Fatal("Person missing from payload")
	}
	if !person.SubclassOf.Contains("Mammal") {
		t.Errorf("subclassOf missing Mammal: %v", person.SubclassOf.Values())
	}
}

func TestGetEntitiesHonorsSelection(t *testing.T) {
	store := ontology.NewStore()
	store.UpsertClass("Person", nil, []string{"agent"})
	store.UpsertProperty("hasAge", []string{"numeric"})
	store.UpsertIndividual("Alice", []string{"Person"}, nil, []string{"employee"})
	r := NewExplorerRegistry(store, &stubEvaluator{})

	payload, err := r.Execute(context.Background(), NameGetEntities,
		`{"classes":true,"properties":false,"individuals":true}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var out map[string]map[string][]string
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("payload shape unexpected: %v", err)
	}
	if _, ok := out["classes"]; !ok {
		t.Error("classes requested but missing")
	}
	if _, ok := out["properties"]; ok {
		t.Error("properties not requested but present")
	}
	if roles, ok := out["individuals"]; !ok || !reflect.DeepEqual(roles["Alice"], []string{"employee"}) {
		t.Errorf("individual summary wrong: %v", roles)
	}

	// all three booleans are required
	if _, err := r.Execute(context.Background(), NameGetEntities, `{"classes":true}`); err == nil {
		t.Error("expected rejection when selection flags are missing")
	}
}

func TestQueryOntologyForwardsToEvaluator(t *testing.T) {
	store := ontology.NewStore()
	eval := &stubEvaluator{rows: []string{"(Alice, hasAge, 23)"}}
	r := NewExplorerRegistry(store, eval)

	payload, err := r.Execute(context.Background(), NameQueryOntology,
		`{"query_text":"SELECT ?s WHERE { ?s ?p ?o }"}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if eval.lastText != "SELECT ?s WHERE { ?s ?p ?o }" {
		t.Errorf("query text not forwarded: %q", eval.lastText)
	}

	var rows []string
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		t.Fatalf("payload is not a row list: %v", err)
	}
	if len(rows) != 1 || rows[0] != "(Alice, hasAge, 23)" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestQueryOntologyEvaluatorFault(t *testing.T) {
	store := ontology.NewStore()
	eval := &stubEvaluator{err: fmt.Errorf("endpoint unreachable")}
	r := NewExplorerRegistry(store, eval)

	payload, err := r.Execute(context.Background(), NameQueryOntology,
		`{"query_text":"SELECT ?s WHERE { ?s ?p ?o }"}`)
	if err == nil {
		t.Fatal("expected evaluator fault to surface as error")
	}
	if got := resultsField(t, payload); got != "Error: endpoint unreachable" {
		t.Errorf("unexpected payload: %q", got)
	}
}

func TestQueryOntologyEmptyResult(t *testing.T) {
	r := NewExplorerRegistry(ontology.NewStore(), &stubEvaluator{})

	payload, err := r.Execute(context.Background(), NameQueryOntology, `{"query_text":"ask"}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if payload != "[]" {
		t.Errorf("expected empty list payload, got %s", payload)
	}
}

func TestRegistrySubsets(t *testing.T) {
	store := ontology.NewStore()

	builder := NewBuilderRegistry(store)
	wantBuilder := []string{
		NameAddClass, NameAddIndividual, NameAddProperty,
		NameGetClasses, NameGetIndividuals, NameGetProperties,
	}
	if got := builder.Names(); !reflect.DeepEqual(got, wantBuilder) {
		t.Errorf("builder set mismatch: %v", got)
	}

	explorer := NewExplorerRegistry(store, &stubEvaluator{})
	wantExplorer := []string{NameGetEntities, NameQueryOntology}
	if got := explorer.Names(); !reflect.DeepEqual(got, wantExplorer) {
		t.Errorf("explorer set mismatch: %v", got)
	}
}
