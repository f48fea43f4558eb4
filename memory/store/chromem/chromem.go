// Package chromem wraps chromem-go, a pure Go embedded vector database,
// as a memory.Store. Each user gets their own collection so retrieval is
// namespace-isolated at the storage layer, not just filtered.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/holomentor/insight-go-sdk/memory"
)

// ChromemStore implements memory.Store over chromem-go.
type ChromemStore struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection // Per-user collections
	mu          sync.RWMutex
}

// New creates a new chromem-based store.
func New() (*ChromemStore, error) {
	return &ChromemStore{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the collection for a user.
func (s *ChromemStore) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[userID]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[userID]; exists {
		return col, nil
	}

	col, err := s.db.CreateCollection(
		fmt.Sprintf("user_%s", userID),
		nil, // No collection metadata
		nil, // No embedding func: we always provide embeddings
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[userID] = col
	return col, nil
}

// Save persists an interaction record with its embedding.
// chromem overwrites on duplicate ID, which gives retry-safe writes.
func (s *ChromemStore) Save(ctx context.Context, rec *memory.InteractionRecord) error {
	col, err := s.getOrCreateCollection(rec.UserID)
	if err != nil {
		return err
	}

	doc, err := toDocument(rec)
	if err != nil {
		return fmt.Errorf("serialize record: %w", err)
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query retrieves records by vector similarity within one user's collection.
func (s *ChromemStore) Query(ctx context.Context, userID string, embedding []float32, limit int) ([]*memory.InteractionRecord, error) {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	// Retry with smaller limits until the query fits.
	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		var err error
		results, err = col.QueryEmbedding(ctx, embedding, currentLimit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				// Collection is empty
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	records := make([]*memory.InteractionRecord, 0, len(results))
	for _, result := range results {
		rec, err := fromResult(result)
		if err != nil {
			// Skip records we cannot decode rather than failing the read.
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close releases resources. chromem keeps everything in memory.
func (s *ChromemStore) Close() error {
	return nil
}

// storedContent is the JSON document body for one record.
type storedContent struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func toDocument(rec *memory.InteractionRecord) (chromem.Document, error) {
	contentBytes, err := json.Marshal(storedContent{
		Question: rec.Question,
		Answer:   rec.Answer,
	})
	if err != nil {
		return chromem.Document{}, fmt.Errorf("marshal content: %w", err)
	}

	metadata := map[string]string{
		"user_id":    rec.UserID,
		"session_id": rec.SessionID,
		"topic":      rec.Topic,
		"tag":        rec.Tag,
		"confidence": strconv.FormatFloat(rec.Confidence, 'f', -1, 64),
		"variant":    rec.Variant,
		"dimensions": strconv.Itoa(rec.Dimensions),
		"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
	}
	if len(rec.Metadata) > 0 {
		extraBytes, err := json.Marshal(rec.Metadata)
		if err != nil {
			return chromem.Document{}, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata["extra"] = string(extraBytes)
	}

	return chromem.Document{
		ID:        rec.ID,
		Content:   string(contentBytes),
		Embedding: rec.Embedding,
		Metadata:  metadata,
	}, nil
}

func fromResult(result chromem.Result) (*memory.InteractionRecord, error) {
	var content storedContent
	if err := json.Unmarshal([]byte(result.Content), &content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, result.Metadata["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	confidence, _ := strconv.ParseFloat(result.Metadata["confidence"], 64)
	dimensions, _ := strconv.Atoi(result.Metadata["dimensions"])

	var extra map[string]string
	if raw := result.Metadata["extra"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &memory.InteractionRecord{
		ID:         result.ID,
		UserID:     result.Metadata["user_id"],
		SessionID:  result.Metadata["session_id"],
		Question:   content.Question,
		Answer:     content.Answer,
		Topic:      result.Metadata["topic"],
		Tag:        result.Metadata["tag"],
		Confidence: confidence,
		Metadata:   extra,
		CreatedAt:  createdAt,
		Embedding:  result.Embedding,
		Variant:    result.Metadata["variant"],
		Dimensions: dimensions,
		Similarity: result.Similarity,
	}, nil
}

// isInsufficientDocsError checks if a query error is due to asking for more
// results than the collection holds.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
