// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"log/slog"

	"github.com/ontoforge/ontoforge/pkg/memory"
	"github.com/ontoforge/ontoforge/pkg/ontology"
)

// Kind labels recorded in the entity index. Singular, unlike the plural
// selection keys of get_entities: a hit names one entity.
const (
	recallKindClass      = "class"
	recallKindProperty   = "property"
	recallKindIndividual = "individual"
)

// EntityIndexer observes successful mutations so new entities become
// findable by meaning. *memory.EntityIndex satisfies it.
type EntityIndexer interface {
	IndexEntity(ctx context.Context, kind, name string, role []string) error
}

// EntitySearcher answers semantic similarity searches over indexed entities.
type EntitySearcher interface {
	Search(ctx context.Context, text string, limit int) ([]memory.EntityHit, error)
}

// EntityRecall is the full recall surface: index on mutation, search on
// demand.
type EntityRecall interface {
	EntityIndexer
	EntitySearcher
}

var _ EntityRecall = (*memory.EntityIndex)(nil)

// NewSearchEntities returns the accessor that finds existing entities by
// semantic similarity. Registered only when vector recall is configured.
func NewSearchEntities(searcher EntitySearcher) *Capability {
	return &Capability{
		Name: NameSearchEntities,
		Description: "Search existing ontology entities by meaning. Use it before adding " +
			"a new term to discover equivalent terms already present.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Free-text description of the entity to look for.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of matches to return.",
				},
			},
			"required": []string{"text"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			hits, err := searcher.Search(ctx, stringArg(args, "text"), intArg(args, "limit"))
			if err != nil {
				return nil, err
			}
			if hits == nil {
				hits = []memory.EntityHit{}
			}
			return hits, nil
		},
	}
}

// indexed decorates a mutator so each successful upsert is also written to
// the entity index. An index fault never disturbs the confirmation payload:
// the mutation already happened, recall is merely stale.
func indexed(c *Capability, kind string, idx EntityIndexer) *Capability {
	inner := c.Handler
	c.Handler = func(ctx context.Context, args map[string]any) (any, error) {
		out, err := inner(ctx, args)
		if err != nil {
			return out, err
		}
		name := stringArg(args, "name")
		if indexErr := idx.IndexEntity(ctx, kind, name, stringsArg(args, "role")); indexErr != nil {
			slog.Default().WarnContext(ctx, "entity index update failed",
				slog.String("capability", c.Name),
				slog.String("entity", name),
				slog.String("error", indexErr.Error()))
		}
		return out, err
	}
	return c
}

// NewIndexedBuilderRegistry is NewBuilderRegistry plus vector recall: the
// mutators feed the entity index and search_entities exposes it.
func NewIndexedBuilderRegistry(store *ontology.Store, recall EntityRecall, opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)
	r.MustRegister(
		indexed(NewAddClass(store), recallKindClass, recall),
		indexed(NewAddProperty(store), recallKindProperty, recall),
		indexed(NewAddIndividual(store), recallKindIndividual, recall),
		NewGetClasses(store),
		NewGetProperties(store),
		NewGetIndividuals(store),
		NewSearchEntities(recall),
	)
	return r
}
