package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
)

// Engine orchestrates the vector memory store: embedding on write, ranked
// retrieval on read, and context rendering for prompt injection.
//
// Degradation contract: when the embedding capability is unavailable
// (nil embedder or nil store), Store returns false, Retrieve returns an
// empty list, and RenderContext returns "". Callers must treat those as
// "no personalization this time", never as a user-visible failure.
type Engine struct {
	store    Store
	embedder Embedder // nil when the embedding capability is unavailable
	config   *Config
}

// NewEngine creates a memory engine over a store and an embedder.
// Pass a nil embedder to run in degraded mode (detection decided the
// embedding capability is unusable); every operation then takes its
// documented degraded branch.
func NewEngine(store Store, embedder Embedder, config *Config) *Engine {
	if config == nil {
		c := *DefaultConfig
		config = &c
	}
	if config.ContextLimit <= 0 {
		config.ContextLimit = DefaultConfig.ContextLimit
	}
	if config.Dimensions == 0 && embedder != nil {
		config.Dimensions = embedder.Dimensions()
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		config:   config,
	}
}

// Available reports whether the engine can actually record and retrieve.
func (e *Engine) Available() bool {
	return e.store != nil && e.embedder != nil
}

// Store embeds and persists one interaction.
// Returns false (never an error) when the capability is unavailable or the
// backend call fails; the primary interaction path continues regardless.
func (e *Engine) Store(ctx context.Context, in *Interaction) bool {
	if !e.Available() {
		return false
	}
	if in == nil || in.UserID == "" {
		log.Printf("[MEMORY] Store skipped: missing user id")
		return false
	}

	embedding, err := e.embed(ctx, EmbeddingText(in.Question, in.Answer))
	if err != nil {
		log.Printf("[MEMORY] Store failed for user %s: %v", in.UserID, err)
		return false
	}

	rec := newRecord(in, e.config.Variant, e.config.Dimensions)
	rec.Embedding = embedding

	if err := e.store.Save(ctx, rec); err != nil {
		log.Printf("[MEMORY] Store failed for user %s: %v", in.UserID, err)
		return false
	}
	return true
}

// Retrieve returns up to limit records for userID, most similar to
// queryText first. Equal-similarity ties resolve to the more recently
// created record. Returns an empty slice when the capability is
// unavailable or the user has no history.
func (e *Engine) Retrieve(ctx context.Context, userID string, queryText string, limit int) []*InteractionRecord {
	if !e.Available() || userID == "" || limit <= 0 {
		return nil
	}

	embedding, err := e.embed(ctx, queryText)
	if err != nil {
		log.Printf("[MEMORY] Retrieve failed for user %s: %v", userID, err)
		return nil
	}

	records, err := e.store.Query(ctx, userID, embedding, limit)
	if err != nil {
		log.Printf("[MEMORY] Retrieve failed for user %s: %v", userID, err)
		return nil
	}

	// Drop records produced by a different embedding variant. Comparing
	// vectors across variants silently would be an invariant violation.
	kept := records[:0]
	for _, rec := range records {
		if rec.Variant != "" && e.config.Variant != "" && rec.Variant != e.config.Variant {
			log.Printf("[MEMORY] INVARIANT: record %s embedded with variant %q, engine uses %q; skipping",
				rec.ID, rec.Variant, e.config.Variant)
			continue
		}
		kept = append(kept, rec)
	}

	// The store returns by similarity; re-sort to pin the recency
	// tie-break, which backends do not guarantee.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Similarity != kept[j].Similarity {
			return kept[i].Similarity > kept[j].Similarity
		}
		return kept[i].CreatedAt.After(kept[j].CreatedAt)
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// RenderContext retrieves the most relevant past interactions and formats
// them into a context block for prompt injection. Returns "" when there is
// nothing to show.
func (e *Engine) RenderContext(ctx context.Context, userID string, queryText string) string {
	records := e.Retrieve(ctx, userID, queryText, e.config.ContextLimit)
	if len(records) == 0 {
		return ""
	}

	var parts []string
	parts = append(parts, "Previous interactions:")
	for i, rec := range records {
		parts = append(parts, fmt.Sprintf("%d. Q: %s\n   A: %s", i+1, rec.Question, rec.Answer))
		if rec.Topic != "" {
			parts = append(parts, fmt.Sprintf("   Topic: %s", rec.Topic))
		}
	}
	return strings.Join(parts, "\n")
}

// embed runs the embedder and guards the configured dimension.
func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if e.config.Dimensions > 0 && len(embedding) != e.config.Dimensions {
		return nil, fmt.Errorf("%w: got %d, engine configured for %d",
			ErrDimensionMismatch, len(embedding), e.config.Dimensions)
	}
	return embedding, nil
}
