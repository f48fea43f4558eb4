// Package memory provides the per-learner vector memory store.
//
// Every tutoring interaction (question/answer pair) is embedded and stored
// so later requests can be enriched with semantically similar history
// (retrieval-augmented personalization). Records are namespaced by UserID;
// retrieval never crosses that boundary.
//
// Architecture:
//   - Store: vector storage backend (chromem-go embedded DB locally;
//     remote backends plug in behind the same interface)
//   - Embedder: text-to-vector conversion (ONNX model locally, API-based
//     in production), optionally wrapped by a ristretto cache
//   - Engine: orchestrates embedding, storage, ranked retrieval, and
//     context rendering
//
// The memory engine is additive personalization, never a hard dependency
// of the conversational path: when the embedding capability is unavailable
// Store reports false, Retrieve returns nothing, and the caller's request
// proceeds without personalization.
package memory
