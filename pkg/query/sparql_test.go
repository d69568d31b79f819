// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ontoforge/ontoforge/pkg/resilience"
)

const selectResults = `{
  "head": {"vars": ["product", "cost"]},
  "results": {"bindings": [
    {"product": {"type": "uri", "value": "MiniEcoRing"}, "cost": {"type": "literal", "value": "1.25"}},
    {"product": {"type": "uri", "value": "GrecCurb100"}}
  ]}
}`

func TestSPARQLSelect(t *testing.T) {
	var gotQuery, gotContentType, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		io.WriteString(w, selectResults)
	}))
	defer srv.Close()

	s := NewSPARQL(srv.URL, 0)
	rows, err := s.Query(context.Background(),
		`SELECT ?product ?cost WHERE { ?product <dailyStorageCostEuro> ?cost }`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotContentType != "application/sparql-query" {
		t.Fatalf("unexpected Content-Type %q", gotContentType)
	}
	if gotAccept != "application/sparql-results+json" {
		t.Fatalf("unexpected Accept %q", gotAccept)
	}
	if !strings.Contains(gotQuery, "dailyStorageCostEuro") {
		t.Fatalf("query body not forwarded, got %q", gotQuery)
	}

	want := []string{
		`product = "MiniEcoRing", cost = "1.25"`,
		// Unbound variables are skipped, not rendered empty.
		`product = "GrecCurb100"`,
	}
	assertRows(t, rows, want)
}

func TestSPARQLAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"head": {}, "boolean": true}`)
	}))
	defer srv.Close()

	rows, err := NewSPARQL(srv.URL, 0).Query(context.Background(),
		`ASK { <MiniEcoRing> a <Product> }`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertRows(t, rows, []string{"true"})
}

func TestSPARQLEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "parse error at line 1", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewSPARQL(srv.URL, 0).Query(context.Background(), `SELECT ?x WHERE { ?x }`)
	if err == nil {
		t.Fatalf("expected an error for a 400 response")
	}
	if !strings.Contains(err.Error(), "parse error at line 1") {
		t.Fatalf("endpoint diagnostics not surfaced: %v", err)
	}
}

func TestSPARQLEmptyQuery(t *testing.T) {
	if _, err := NewSPARQL("http://unused", 0).Query(context.Background(), "  "); err == nil {
		t.Fatalf("expected an error for an empty query")
	}
}

func TestSPARQLBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewSPARQL(srv.URL, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.Query(ctx, "SELECT * WHERE { ?s ?p ?o }"); err == nil {
			t.Fatalf("call %d: expected an error", i)
		}
	}
	if s.BreakerState() != resilience.StateOpen {
		t.Fatalf("breaker should be open after 3 failures, got %s", s.BreakerState())
	}

	// With the circuit open the endpoint is not contacted again.
	before := hits
	if _, err := s.Query(ctx, "SELECT * WHERE { ?s ?p ?o }"); err == nil {
		t.Fatalf("expected a fast failure while the circuit is open")
	}
	if hits != before {
		t.Fatalf("endpoint was contacted while the circuit was open")
	}
}

func TestSPARQLMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>")
	}))
	defer srv.Close()

	_, err := NewSPARQL(srv.URL, 0).Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	if err == nil || !strings.Contains(err.Error(), "not valid results JSON") {
		t.Fatalf("expected a decode error, got %v", err)
	}
}
