package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Interaction is the caller-facing description of one tutoring exchange.
// It carries no embedding; the Engine computes that on Store.
type Interaction struct {
	// ID is optional. When empty a UUID is generated; callers that supply
	// their own ID get overwrite-on-retry semantics.
	ID        string
	UserID    string
	SessionID string
	Question  string
	Answer    string
	Topic     string
	Tag       string

	// Confidence is the tutor's confidence in the answer [0.0-1.0].
	Confidence float64

	Metadata map[string]string

	// CreatedAt is optional; zero means time.Now().
	CreatedAt time.Time
}

// InteractionRecord is one persisted interaction with its embedding.
// Records are immutable after creation and never deleted in normal
// operation.
type InteractionRecord struct {
	ID         string
	UserID     string
	SessionID  string
	Question   string
	Answer     string
	Topic      string
	Tag        string
	Confidence float64
	Metadata   map[string]string
	CreatedAt  time.Time

	// Embedding is the vector computed over the canonical question/answer
	// text. Variant and Dimensions record which embedding function
	// produced it, so vectors from different variants are never compared.
	Embedding  []float32
	Variant    string
	Dimensions int

	// Similarity is populated on retrieval results [0.0-1.0].
	Similarity float32
}

// newRecord builds an InteractionRecord from an Interaction.
func newRecord(in *Interaction, variant string, dims int) *InteractionRecord {
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &InteractionRecord{
		ID:         id,
		UserID:     in.UserID,
		SessionID:  in.SessionID,
		Question:   in.Question,
		Answer:     in.Answer,
		Topic:      in.Topic,
		Tag:        in.Tag,
		Confidence: in.Confidence,
		Metadata:   in.Metadata,
		CreatedAt:  createdAt,
		Variant:    variant,
		Dimensions: dims,
	}
}

// EmbeddingText returns the canonical text the embedding is computed over.
// Question and answer are concatenated so the vector represents the
// dialogue pair as a unit, not either side alone.
func EmbeddingText(question, answer string) string {
	return fmt.Sprintf("Question: %s\nAnswer: %s", question, answer)
}
