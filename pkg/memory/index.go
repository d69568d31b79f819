// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

// DefaultSearchLimit bounds a search when the caller does not give a limit.
const DefaultSearchLimit = 5

// EntityHit is one semantic search match from the entity index.
type EntityHit struct {
	Kind  string   `json:"kind"`
	Name  string   `json:"name"`
	Role  []string `json:"role,omitempty"`
	Score float32  `json:"score"`
}

// EntityIndexConfig configures the entity recall index.
type EntityIndexConfig struct {
	// Collection is the vector collection name. Defaults to
	// "ontoforge_entities".
	Collection string
	// ScoreThreshold drops matches scoring below it. Zero keeps everything
	// up to the search limit.
	ScoreThreshold float32
}

// EntityIndex embeds entity records into a vector store so the model can
// find existing terms by meaning before minting near-duplicates. Entities
// are keyed deterministically by kind and name; re-indexing an entity
// replaces its previous point.
type EntityIndex struct {
	store      VectorStore
	embedder   Embedder
	collection string
	threshold  float32
}

// NewEntityIndex creates an index over the given vector store and embedder.
func NewEntityIndex(store VectorStore, embedder Embedder, cfg EntityIndexConfig) *EntityIndex {
	collection := cfg.Collection
	if collection == "" {
		collection = "ontoforge_entities"
	}
	return &EntityIndex{
		store:      store,
		embedder:   embedder,
		collection: collection,
		threshold:  cfg.ScoreThreshold,
	}
}

// Initialize ensures the collection exists, probing the embedder for the
// vector dimension. Creation failure is tolerated when the collection is
// already searchable.
func (x *EntityIndex) Initialize(ctx context.Context) error {
	probe, err := x.embedder.Embed(ctx, "ontology entity")
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}

	if err := x.store.CreateCollection(ctx, x.collection, uint64(len(probe))); err != nil {
		if _, searchErr := x.store.Search(ctx, x.collection, probe, 1, 0); searchErr == nil {
			return nil
		}
		return fmt.Errorf("create collection %q: %w", x.collection, err)
	}
	return nil
}

// IndexEntity embeds one entity record and upserts it.
func (x *EntityIndex) IndexEntity(ctx context.Context, kind, name string, role []string) error {
	ctx, span := otel.Tracer("ontoforge/memory").Start(ctx, "EntityIndex.Index")
	defer span.End()

	if name == "" {
		return fmt.Errorf("entity name is empty")
	}

	vector, err := x.embedder.Embed(ctx, entityDocument(kind, name, role))
	if err != nil {
		return fmt.Errorf("embed entity %q: %w", name, err)
	}

	point := Point{
		ID:     entityPointID(kind, name),
		Vector: vector,
		Payload: map[string]any{
			"kind": kind,
			"name": name,
			"role": strings.Join(role, "\n"),
		},
	}
	if err := x.store.Upsert(ctx, x.collection, []Point{point}); err != nil {
		return fmt.Errorf("upsert entity %q: %w", name, err)
	}
	span.SetAttributes(telemetry.MemoryAttributes(true, "entity_index", 0, true)...)
	return nil
}

// Search returns the entities nearest in meaning to the given text.
func (x *EntityIndex) Search(ctx context.Context, text string, limit int) ([]EntityHit, error) {
	ctx, span := otel.Tracer("ontoforge/memory").Start(ctx, "EntityIndex.Search")
	defer span.End()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vector, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := x.store.Search(ctx, x.collection, vector, limit, x.threshold)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}

	hits := make([]EntityHit, 0, len(results))
	for _, r := range results {
		hit := EntityHit{Score: r.Score}
		if kind, ok := r.Point.Payload["kind"].(string); ok {
			hit.Kind = kind
		}
		if name, ok := r.Point.Payload["name"].(string); ok {
			hit.Name = name
		}
		if role, ok := r.Point.Payload["role"].(string); ok && role != "" {
			hit.Role = strings.Split(role, "\n")
		}
		hits = append(hits, hit)
	}
	span.SetAttributes(telemetry.MemoryAttributes(true, "entity_index", len(hits), false)...)
	return hits, nil
}

// entityDocument is the text embedded for an entity: its kind, name, and
// role sentences, which is the vocabulary questions are phrased in.
func entityDocument(kind, name string, role []string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteString(" ")
	b.WriteString(name)
	if len(role) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(role, ". "))
	}
	return b.String()
}

// entityPointID derives a stable UUID from kind and name so re-indexed
// entities replace their old point instead of accumulating duplicates.
func entityPointID(kind, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("ontoforge/"+kind+"/"+name)).String()
}
