package embedding

import (
	"context"
	"hash/fnv"
)

// fakeProvider produces a deterministic vector from the FNV hash of the
// input text, so tests can exercise the store and quality tiers without
// loading an ONNX model.
type fakeProvider struct {
	dim int
}

// NewFake returns a deterministic Provider for tests, with the given
// dimension.
func NewFake(dim int) Provider {
	return &fakeProvider{dim: dim}
}

func (f *fakeProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return f.vector(text), nil
}

func (f *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeProvider) Dimension() int { return f.dim }

func (f *fakeProvider) Close() error { return nil }

// vector derives a deterministic unit-ish vector from text so that
// identical inputs always embed identically and distinct inputs embed
// distinctly, without claiming any semantic relationship.
func (f *fakeProvider) vector(text string) []float32 {
	v := make([]float32, f.dim)
	h := fnv.New64a()
	for i := 0; i < f.dim; i++ {
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		sum := h.Sum64()
		v[i] = float32(sum%2000)/1000.0 - 1.0
	}
	return v
}
