// Package embedding implements C1: mapping text to a fixed-dimension
// float vector for the local vector store and the quality evaluator's
// cross-encoder tier.
package embedding

import (
	"context"
	"fmt"
)

// Provider produces embeddings for a single configured model. The
// resulting dimension is fixed for the lifetime of a data directory;
// callers that change embedding_model must re-initialize the store.
type Provider interface {
	// EmbedQuery embeds a single query string, for retrieval.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments embeds a batch of document strings, for ingest.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the embedding width for the configured model.
	Dimension() int
	// Close releases resources held by the provider (model runtime, etc).
	Close() error
}

// Config selects and configures a Provider.
type Config struct {
	// Model is the embedding model identifier (e.g. "BAAI/bge-small-en-v1.5").
	Model string
	// CacheDir is where model weights are cached on disk.
	CacheDir string
	// ShowProgress enables download progress output.
	ShowProgress bool
}

// NewProvider constructs the fastembed-backed Provider. Use NewFake in
// tests to avoid loading an ONNX model.
func NewProvider(cfg Config) (Provider, error) {
	return newFastEmbedProvider(cfg)
}

// detectDimensionFromModel returns the embedding dimension for a model
// name not found in the known model table, using common naming
// conventions ("base" -> 768, "large" -> 1024, "small"/"mini" -> 384).
func detectDimensionFromModel(model string) int {
	switch {
	case containsFold(model, "large"):
		return 1024
	case containsFold(model, "base"):
		return 768
	case containsFold(model, "small"), containsFold(model, "mini"):
		return 384
	default:
		return 384
	}
}

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	n, m := len(s), len(substr)
	for i := 0; i+m <= n; i++ {
		if equalFold(s[i:i+m], substr) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// errUnavailable mirrors spec.md's EmbeddingUnavailable contract: the
// provider's underlying model/runtime failed to initialize.
func errUnavailable(detail string) error {
	return fmt.Errorf("embedding provider unavailable: %s", detail)
}
