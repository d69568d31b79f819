// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import "context"

// VectorStore is the port onto a vector database. The qdrant subpackage
// provides the gRPC-backed implementation.
type VectorStore interface {
	// Upsert adds or replaces points in a collection, keyed by point ID.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns the nearest points to the given vector, best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error)
	// CreateCollection creates a collection sized for the given vectors.
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
}

// Point is one stored vector with its payload.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// SearchResult is one vector search hit.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Point Point   `json:"point"`
}

// Embedder converts text to a vector. The ollama subpackage provides the
// embeddings-API implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
