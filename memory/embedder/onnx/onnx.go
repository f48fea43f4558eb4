//go:build onnx

// Package onnx provides a local embedding variant backed by ONNX Runtime.
// It runs sentence-transformer models (all-MiniLM-L6-v2 and friends)
// fully offline, which is what the capability detector probes first when
// no hosted embedding backend is configured.
package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Config configures the ONNX embedder.
type Config struct {
	// ModelPath is the path to the ONNX model file. Required.
	ModelPath string

	// TokenizerPath is the path to the tokenizer.json file. Required.
	TokenizerPath string

	// LibraryPath is the path to libonnxruntime.so. Empty uses the
	// ONNXRUNTIME_LIB environment variable.
	LibraryPath string

	// Dimensions is the embedding vector size (default: 384).
	Dimensions int

	// MaxSequenceLength bounds tokenized input (default: 128).
	MaxSequenceLength int
}

// ONNXEmbedder generates embeddings using ONNX Runtime.
type ONNXEmbedder struct {
	session    *ort.DynamicAdvancedSession
	tokenizer  *wordPieceTokenizer
	dimensions int
	maxSeqLen  int
}

// New creates an ONNX embedder. Fails when the runtime library, model, or
// tokenizer cannot be loaded; the capability detector treats that failure
// as "variant not usable" and moves on to the next candidate.
func New(cfg Config) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("ModelPath is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	if cfg.MaxSequenceLength == 0 {
		cfg.MaxSequenceLength = 128
	}

	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = os.Getenv("ONNXRUNTIME_LIB")
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize ONNX runtime: %w", err)
	}

	tokenizer, err := loadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create ONNX session: %w", err)
	}

	return &ONNXEmbedder{
		session:    session,
		tokenizer:  tokenizer,
		dimensions: cfg.Dimensions,
		maxSeqLen:  cfg.MaxSequenceLength,
	}, nil
}

// Embed converts text to an embedding vector via tokenize, inference, and
// attention-masked mean pooling.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := e.tokenizer.tokenize(text)

	maxLen := e.maxSeqLen
	inputIDs := make([]int64, maxLen)
	attentionMask := make([]int64, maxLen)
	tokenTypeIDs := make([]int64, maxLen)

	// [CLS] tokens... [SEP], truncated to fit.
	inputIDs[0] = int64(e.tokenizer.clsToken)
	attentionMask[0] = 1

	tokenLen := len(tokens)
	if tokenLen > maxLen-2 {
		tokenLen = maxLen - 2
	}
	for i := 0; i < tokenLen; i++ {
		inputIDs[i+1] = tokens[i]
		attentionMask[i+1] = 1
	}
	inputIDs[tokenLen+1] = int64(e.tokenizer.sepToken)
	attentionMask[tokenLen+1] = 1

	shape := ort.NewShape(1, int64(maxLen))
	inputIDsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer inputIDsTensor.Destroy()

	attentionMaskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer attentionMaskTensor.Destroy()

	tokenTypeIDsTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	defer tokenTypeIDsTensor.Destroy()

	outputs := []ort.Value{nil} // auto-allocated by Run
	err = e.session.Run(
		[]ort.Value{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		outputs,
	)
	if err != nil {
		return nil, fmt.Errorf("ONNX inference: %w", err)
	}
	defer func() {
		for _, output := range outputs {
			if output != nil {
				output.Destroy()
			}
		}
	}()

	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("no output tensors returned")
	}
	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	embedding, err := pool(outputTensor, attentionMask, e.dimensions)
	if err != nil {
		return nil, err
	}
	return normalize(embedding), nil
}

// Dimensions returns the embedding vector size.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases ONNX resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}

// pool reduces model output to one vector. Handles both pre-pooled
// [1, dims] outputs and raw [1, seq, dims] hidden states, the latter via
// mean pooling over attended tokens.
func pool(t *ort.Tensor[float32], attentionMask []int64, dims int) ([]float32, error) {
	data := t.GetData()
	shape := t.GetShape()

	switch len(shape) {
	case 2:
		if len(data) < dims {
			return nil, fmt.Errorf("output dimension mismatch: got %d, expected %d", len(data), dims)
		}
		embedding := make([]float32, dims)
		copy(embedding, data[:dims])
		return embedding, nil

	case 3:
		if shape[0] != 1 {
			return nil, fmt.Errorf("expected batch size 1, got %d", shape[0])
		}
		seqLen, hiddenSize := int(shape[1]), int(shape[2])
		if hiddenSize != dims {
			return nil, fmt.Errorf("hidden size mismatch: got %d, expected %d", hiddenSize, dims)
		}

		embedding := make([]float32, dims)
		var attended float32
		for i := 0; i < seqLen; i++ {
			if attentionMask[i] == 0 {
				continue
			}
			attended++
			offset := i * hiddenSize
			for j := 0; j < hiddenSize; j++ {
				embedding[j] += data[offset+j]
			}
		}
		if attended == 0 {
			return nil, fmt.Errorf("no attended tokens")
		}
		for j := range embedding {
			embedding[j] /= attended
		}
		return embedding, nil

	default:
		return nil, fmt.Errorf("unexpected output shape: %v", shape)
	}
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
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// wordPieceTokenizer is a minimal BERT-style WordPiece tokenizer loaded
// from a HuggingFace tokenizer.json vocabulary.
type wordPieceTokenizer struct {
	vocab    map[string]int
	clsToken int
	sepToken int
	unkToken int
}

func loadTokenizer(path string) (*wordPieceTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tokenizerData struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &tokenizerData); err != nil {
		return nil, err
	}

	return &wordPieceTokenizer{
		vocab:    tokenizerData.Model.Vocab,
		clsToken: 101, // [CLS]
		sepToken: 102, // [SEP]
		unkToken: 100, // [UNK]
	}, nil
}

// tokenize converts text to token IDs. BERT vocabularies are lowercase.
func (t *wordPieceTokenizer) tokenize(text string) []int64 {
	words := strings.Fields(strings.ToLower(text))

	var tokens []int64
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}

		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}

		for _, subword := range t.splitWordPiece(word) {
			if id, ok := t.vocab[subword]; ok {
				tokens = append(tokens, int64(id))
			} else {
				tokens = append(tokens, int64(t.unkToken))
			}
		}
	}
	return tokens
}

// splitWordPiece greedily matches the longest known prefix, marking
// continuations with the "##" prefix.
func (t *wordPieceTokenizer) splitWordPiece(word string) []string {
	var subwords []string
	start := 0

	for start < len(word) {
		end := len(word)
		found := false

		for end > start {
			substr := word[start:end]
			if start > 0 {
				substr = "##" + substr
			}
			if _, ok := t.vocab[substr]; ok {
				subwords = append(subwords, substr)
				start = end
				found = true
				break
			}
			end--
		}

		if !found {
			subwords = append(subwords, "[UNK]")
			start++
		}
	}
	return subwords
}
