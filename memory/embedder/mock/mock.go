// Package mock provides a deterministic embedder for tests and local
// development without model files.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder generates deterministic embeddings from a text hash.
// Vectors carry no real semantics; equal texts embed equally, which is
// enough for storage, ranking, and capability-detection tests.
type MockEmbedder struct {
	dimensions int
}

// New creates a mock embedder with the given dimension.
// Zero defaults to 384, matching all-MiniLM-L6-v2.
func New(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed creates a deterministic embedding from text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))

	// Use the hash as an LCG seed for pseudo-random components.
	seed := h.Sum64()
	embedding := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// normalize converts an embedding to a unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
