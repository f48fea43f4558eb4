package memory

import (
	"context"
	"errors"
)

// ErrDimensionMismatch reports an embedding whose length does not match the
// dimension the engine was configured with. This is a programming error
// (mixing embedding variants), not a runtime condition to recover from.
var ErrDimensionMismatch = errors.New("memory: embedding dimension mismatch")

// Store is the vector storage backend interface.
// ChromemStore is the embedded implementation; remote backends plug in
// behind the same interface.
type Store interface {
	// Save persists a record with its embedding.
	// The record must have its embedding set before calling Save.
	// Saving the same record ID twice overwrites, so a caller-level
	// retry of the same logical interaction is safe.
	Save(ctx context.Context, rec *InteractionRecord) error

	// Query retrieves records by vector similarity, scoped to a single user.
	// Returns records with their Similarity field populated, highest first.
	Query(ctx context.Context, userID string, embedding []float32, limit int) ([]*InteractionRecord, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: MockEmbedder (testing), ONNXEmbedder (local SDK),
// CachedEmbedder (wraps another embedder with a ristretto cache).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Config holds Engine configuration.
type Config struct {
	// Variant names the embedding variant in use (e.g. "onnx-minilm-384").
	// Stored alongside every record so vectors produced by a different
	// variant are never compared silently.
	Variant string

	// Dimensions is the embedding size of the active variant.
	Dimensions int

	// ContextLimit is how many records RenderContext pulls.
	// Default: 3.
	ContextLimit int
}

// DefaultConfig returns sensible defaults for local use.
var DefaultConfig = &Config{
	ContextLimit: 3,
}
