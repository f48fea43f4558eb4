package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/holomentor/insight-go-sdk/memory"
	chromemstore "github.com/holomentor/insight-go-sdk/memory/store/chromem"
)

// stubEmbedder maps known texts to fixed vectors, so ranking is exact.
type stubEmbedder struct {
	vectors map[string][]float32
	dims    int
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, s.dims)
	v[0] = 1
	return v, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }

func newTestEngine(t *testing.T, embedder memory.Embedder, config *memory.Config) *memory.Engine {
	t.Helper()

	store, err := chromemstore.New()
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return memory.NewEngine(store, embedder, config)
}

func TestStoreAndRetrieve(t *testing.T) {
	embedder := &stubEmbedder{
		dims: 3,
		vectors: map[string][]float32{
			memory.EmbeddingText("what is 1/2?", "half"):     {1, 0, 0},
			memory.EmbeddingText("what is 1/3?", "a third"):  {0.9, 0.1, 0},
			memory.EmbeddingText("what is a square?", "4 sides"): {0, 0, 1},
			"fractions help": {1, 0, 0},
		},
	}
	engine := newTestEngine(t, embedder, nil)
	ctx := context.Background()

	interactions := []*memory.Interaction{
		{UserID: "u1", Question: "what is 1/2?", Answer: "half", Topic: "fractions"},
		{UserID: "u1", Question: "what is 1/3?", Answer: "a third", Topic: "fractions"},
		{UserID: "u1", Question: "what is a square?", Answer: "4 sides", Topic: "geometry"},
	}
	for _, in := range interactions {
		if !engine.Store(ctx, in) {
			t.Fatalf("Store(%q) returned false", in.Question)
		}
	}

	records := engine.Retrieve(ctx, "u1", "fractions help", 2)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Topic != "fractions" {
			t.Errorf("expected fraction records first, got topic %q", rec.Topic)
		}
	}
	if records[0].Question != "what is 1/2?" {
		t.Errorf("expected closest match first, got %q", records[0].Question)
	}
}

func TestRetrieveUserIsolation(t *testing.T) {
	embedder := &stubEmbedder{dims: 3}
	engine := newTestEngine(t, embedder, nil)
	ctx := context.Background()

	engine.Store(ctx, &memory.Interaction{UserID: "alice", Question: "q1", Answer: "a1"})
	engine.Store(ctx, &memory.Interaction{UserID: "bob", Question: "q2", Answer: "a2"})

	for _, rec := range engine.Retrieve(ctx, "alice", "anything", 10) {
		if rec.UserID != "alice" {
			t.Fatalf("retrieved record for user %q from alice's query", rec.UserID)
		}
	}
	if got := len(engine.Retrieve(ctx, "alice", "anything", 10)); got != 1 {
		t.Errorf("expected exactly alice's 1 record, got %d", got)
	}
}

func TestRetrieveTieBreaksOnRecency(t *testing.T) {
	// Identical embeddings for both records force a similarity tie.
	embedder := &stubEmbedder{
		dims: 3,
		vectors: map[string][]float32{
			memory.EmbeddingText("older", "a"): {1, 0, 0},
			memory.EmbeddingText("newer", "a"): {1, 0, 0},
			"query":                            {1, 0, 0},
		},
	}
	engine := newTestEngine(t, embedder, nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	engine.Store(ctx, &memory.Interaction{UserID: "u1", Question: "older", Answer: "a", CreatedAt: base})
	engine.Store(ctx, &memory.Interaction{UserID: "u1", Question: "newer", Answer: "a", CreatedAt: base.Add(time.Hour)})

	records := engine.Retrieve(ctx, "u1", "query", 2)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Question != "newer" {
		t.Errorf("expected the newer record to win the tie, got %q", records[0].Question)
	}
}

func TestDegradedModeWithoutEmbedder(t *testing.T) {
	engine := newTestEngine(t, nil, nil)
	ctx := context.Background()

	if engine.Available() {
		t.Error("engine should not be available without an embedder")
	}
	if engine.Store(ctx, &memory.Interaction{UserID: "u1", Question: "q", Answer: "a"}) {
		t.Error("Store should return false in degraded mode")
	}
	if records := engine.Retrieve(ctx, "u1", "q", 5); len(records) != 0 {
		t.Errorf("Retrieve should return nothing in degraded mode, got %d", len(records))
	}
	if blob := engine.RenderContext(ctx, "u1", "q"); blob != "" {
		t.Errorf("RenderContext should return empty in degraded mode, got %q", blob)
	}
}

func TestStoreRejectsDimensionMismatch(t *testing.T) {
	embedder := &stubEmbedder{dims: 3}
	engine := newTestEngine(t, embedder, &memory.Config{Dimensions: 384})

	if engine.Store(context.Background(), &memory.Interaction{UserID: "u1", Question: "q", Answer: "a"}) {
		t.Error("Store should refuse an embedding of the wrong dimension")
	}
}

func TestStoreSurvivesEmbedderFailure(t *testing.T) {
	embedder := &stubEmbedder{dims: 3, err: errors.New("backend down")}
	engine := newTestEngine(t, embedder, nil)

	if engine.Store(context.Background(), &memory.Interaction{UserID: "u1", Question: "q", Answer: "a"}) {
		t.Error("Store should return false when embedding fails")
	}
}

func TestRenderContextFormat(t *testing.T) {
	embedder := &stubEmbedder{dims: 3}
	engine := newTestEngine(t, embedder, nil)
	ctx := context.Background()

	engine.Store(ctx, &memory.Interaction{
		UserID: "u1", Question: "what is 1/2?", Answer: "half", Topic: "fractions",
	})

	blob := engine.RenderContext(ctx, "u1", "fractions")
	if !strings.HasPrefix(blob, "Previous interactions:") {
		t.Errorf("unexpected header: %q", blob)
	}
	for _, want := range []string{"1. Q: what is 1/2?", "A: half", "Topic: fractions"} {
		if !strings.Contains(blob, want) {
			t.Errorf("context blob missing %q:\n%s", want, blob)
		}
	}
}

func TestEmbeddingText(t *testing.T) {
	got := memory.EmbeddingText("why?", "because")
	want := "Question: why?\nAnswer: because"
	if got != want {
		t.Errorf("EmbeddingText = %q, want %q", got, want)
	}
}
