// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/resilience"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

const defaultSPARQLTimeout = 30 * time.Second

// SPARQL queries an external SPARQL 1.1 endpoint serving the transcribed
// OWL document. A circuit breaker sits in front of the endpoint so a dead
// triple store fails fast instead of stalling every loop iteration.
type SPARQL struct {
	endpoint string
	client   *http.Client
	breaker  *resilience.CircuitBreaker
}

// NewSPARQL builds a client for the given query endpoint.
func NewSPARQL(endpoint string, timeout time.Duration) *SPARQL {
	if timeout <= 0 {
		timeout = defaultSPARQLTimeout
	}
	return &SPARQL{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "sparql_endpoint",
			FailureThreshold: 3,
			Timeout:          timeout,
		}),
	}
}

// sparqlResults is the application/sparql-results+json envelope. SELECT
// responses carry head.vars plus bindings; ASK responses carry boolean.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean"`
	Results struct {
		Bindings []map[string]sparqlTerm `json:"bindings"`
	} `json:"results"`
}

type sparqlTerm struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Query POSTs the query per the SPARQL 1.1 protocol and flattens the JSON
// results into one row per solution, variables in head order.
func (s *SPARQL) Query(ctx context.Context, queryText string) ([]string, error) {
	ctx, span := otel.Tracer("ontoforge/query").Start(ctx, "Query.SPARQL")
	defer span.End()

	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, fmt.Errorf("empty SPARQL query")
	}

	var body []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint,
			strings.NewReader(queryText))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/sparql-query")
		req.Header.Set("Accept", "application/sparql-results+json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("endpoint returned %s: %s",
				resp.Status, truncate(string(body), 200))
		}
		return nil
	}

	if err := s.breaker.Call(ctx, call); err != nil {
		// Breaker-open errors already carry their own code.
		if _, ok := err.(*errors.ForgeError); ok {
			return nil, err
		}
		return nil, errors.New(errors.CodeEvaluatorFault, "sparql query failed", err).
			WithContext("endpoint", s.endpoint)
	}

	var parsed sparqlResults
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.New(errors.CodeEvaluatorFault,
			"sparql response is not valid results JSON", err).
			WithContext("endpoint", s.endpoint)
	}

	if parsed.Boolean != nil {
		rows := []string{fmt.Sprintf("%t", *parsed.Boolean)}
		span.SetAttributes(telemetry.QueryAttributes(DialectSPARQL, queryText, len(rows))...)
		return rows, nil
	}

	rows := make([]string, 0, len(parsed.Results.Bindings))
	for _, binding := range parsed.Results.Bindings {
		parts := make([]string, 0, len(parsed.Head.Vars))
		for _, v := range parsed.Head.Vars {
			term, bound := binding[v]
			if !bound {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s = %q", v, term.Value))
		}
		rows = append(rows, strings.Join(parts, ", "))
	}
	span.SetAttributes(telemetry.QueryAttributes(DialectSPARQL, queryText, len(rows))...)
	return rows, nil
}

// BreakerState reports the endpoint circuit state for diagnostics.
func (s *SPARQL) BreakerState() resilience.CircuitBreakerState {
	return s.breaker.State()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
