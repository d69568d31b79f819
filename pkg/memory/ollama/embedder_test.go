// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package ollama

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	ferrors "github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.DefaultRetryConfig().
		WithInitialDelay(time.Millisecond).
		WithMaxDelay(5 * time.Millisecond)
}

func TestEmbedDecodesVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"embedding": [0.25, -1.5, 3.0]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "nomic-embed-text")
	vec, err := embedder.Embed(context.Background(), "GrecCurb100 retaining wall curb")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.25 || vec[1] != -1.5 || vec[2] != 3.0 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}

func TestEmbedRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embedding": [1.0]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "nomic-embed-text")
	embedder.retry = fastRetry()

	vec, err := embedder.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("embed should recover from a transient failure: %v", err)
	}
	if len(vec) != 1 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestEmbedDoesNotRetryRejection(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(server.URL, "no-such-model")
	embedder.retry = fastRetry()

	_, err := embedder.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error for rejected request")
	}
	var fe *ferrors.ForgeError
	if !stderrors.As(err, &fe) || fe.Code != ferrors.CodeMemory || fe.Recoverable {
		t.Fatalf("unexpected error shape: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("rejection should not be retried, got %d calls", calls.Load())
	}
}
