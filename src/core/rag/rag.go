package rag

import (
	"context"
	"encoding/json"
	"fmt"
)

// Metadata describes where a document came from.
type Metadata struct {
	Source        string `json:"source,omitempty"`
	Title         string `json:"title,omitempty"`
	Date          string `json:"date,omitempty"`
	ContentLength int    `json:"contentLength"`
}

// Document is a normalized unit of ingested content. Immutable once
// produced by an extractor.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Chunk is a size-bounded slice of a document, the unit of embedding
// and retrieval. Order is the chunk's position within its source.
type Chunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Order    int      `json:"order"`
}

// ScoredChunk is a chunk returned from similarity search. Higher
// scores rank better regardless of the search mode that produced them.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// BotConfig carries the per-request credentials and instruction
// template. It is built explicitly for every ingestion or chat call
// and never cached server-side beyond the request.
type BotConfig struct {
	APIKey         string `json:"apiKey"`
	PromptTemplate string `json:"promptTemplate"`
	ModelName      string `json:"modelName"`
	EmbeddingModel string `json:"embeddingModel"`
	Provider       string `json:"provider,omitempty"` // "openai" (default) or "ollama"
}

// Turn is one (question, answer) pair of conversation history. On the
// wire it is a 2-element JSON array, matching what chat clients send
// back on every request.
type Turn struct {
	Question string
	Answer   string
}

func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Question, t.Answer})
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("conversation turn must be a [question, answer] pair, got %d elements", len(pair))
	}
	t.Question = pair[0]
	t.Answer = pair[1]
	return nil
}

// Embedder turns texts into fixed-dimension vectors, one per input,
// same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates a completion for a composed prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	CompleteStream(ctx context.Context, system, prompt string) (TokenStream, error)
}

// TokenStream is a lazy, finite, non-restartable sequence of
// completion tokens. Recv blocks until the next token arrives and
// returns io.EOF once the stream is done. Close releases the
// underlying connection; it is safe to call after EOF.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// VectorStore is the tenant-namespaced chunk store. The implementation
// owns the mapping from namespace to physical storage location.
type VectorStore interface {
	// Upsert writes chunks and their vectors into the namespace,
	// idempotent per chunk identity.
	Upsert(ctx context.Context, namespace string, chunks []Chunk, vectors [][]float32, embeddingModel string) error

	// Clear removes all vectors for the namespace. It completes fully
	// before any subsequent Upsert from the same call.
	Clear(ctx context.Context, namespace string) error

	// Query returns the k nearest chunks. A namespace that has never
	// been trained yields an empty result, not an error.
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]ScoredChunk, error)

	// EmbeddingModel reports the model the namespace was trained with,
	// or "" if the namespace does not exist.
	EmbeddingModel(ctx context.Context, namespace string) (string, error)
}
