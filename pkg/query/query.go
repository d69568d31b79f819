// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package query implements the graph evaluators behind the query_ontology
// capability. Two dialects are supported: an embedded Datalog engine that
// loads the entity index directly, and a SPARQL 1.1 protocol client for an
// external triple store serving the transcribed OWL document.
//
// Evaluators distinguish two failure classes. Problems with the query text
// itself (syntax, unknown predicates) come back as plain errors whose
// messages tell the model how to correct the next attempt. Engine and
// transport failures come back as EVALUATOR_FAULT errors.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/ontology"
)

// Supported dialect names, as they appear in configuration.
const (
	DialectDatalog = "datalog"
	DialectSPARQL  = "sparql"
)

// Config selects and parameterizes an evaluator.
type Config struct {
	// Dialect is "datalog" or "sparql". Empty means datalog.
	Dialect string

	// Endpoint is the SPARQL query endpoint URL. Required for the sparql
	// dialect, ignored otherwise.
	Endpoint string

	// Timeout caps a single query round trip against a SPARQL endpoint.
	Timeout time.Duration
}

// Evaluator answers queries about the ontology, one stringified row per
// result. It mirrors the interface the capability registry binds.
type Evaluator interface {
	Query(ctx context.Context, queryText string) ([]string, error)
}

// New builds the evaluator cfg names. Datalog evaluators hydrate from the
// given entity index; SPARQL evaluators ignore it and query the configured
// endpoint instead.
func New(cfg Config, entities *ontology.Store) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Dialect)) {
	case "", DialectDatalog:
		d, err := NewDatalog()
		if err != nil {
			return nil, err
		}
		if entities != nil {
			if err := d.Load(entities); err != nil {
				return nil, err
			}
		}
		return d, nil
	case DialectSPARQL:
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return nil, errors.New(errors.CodeConfig,
				"sparql evaluator requires an endpoint", nil)
		}
		return NewSPARQL(cfg.Endpoint, cfg.Timeout), nil
	default:
		return nil, errors.New(errors.CodeConfig,
			fmt.Sprintf("unknown query dialect %q", cfg.Dialect), nil)
	}
}
