package ingest

import (
	"context"

	"chatdocs/src/core/chunk"
	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/log"
)

// embedBatchSize bounds how many chunk texts go into one embeddings
// request.
const embedBatchSize = 64

// Request describes one ingestion call. Documents were already
// produced by an extractor; the service owns chunking, embedding and
// storage.
type Request struct {
	Namespace string
	// EmbeddingModel is the resolved model name the embedder will use,
	// as reported by the provider. It is recorded on first training
	// and checked against the namespace pin on appends.
	EmbeddingModel string
	// ClearNamespace retrains from scratch: the namespace is emptied
	// before the first upsert ("train new bot"). Without it, new
	// chunks append to the existing index ("train existing").
	ClearNamespace bool
	Documents      []rag.Document
}

// Service runs the extract-independent half of the ingestion pipeline:
// chunk, embed, store. Stateless across requests.
type Service struct {
	store    rag.VectorStore
	splitter *chunk.Splitter
}

// NewService creates an ingestion service over the given vector store
// and chunking config.
func NewService(store rag.VectorStore, splitter *chunk.Splitter) *Service {
	return &Service{
		store:    store,
		splitter: splitter,
	}
}

// Ingest chunks, embeds and stores the request's documents in its
// namespace and returns the stored chunks. When ClearNamespace is set
// the namespace is fully cleared before any upsert; otherwise the
// namespace must have been trained with the same embedding model, or
// never trained at all.
func (s *Service) Ingest(ctx context.Context, embedder rag.Embedder, req Request) ([]rag.Chunk, error) {
	if req.Namespace == "" {
		return nil, rag.NewValidationError("namespace is required")
	}

	if req.ClearNamespace {
		if err := s.store.Clear(ctx, req.Namespace); err != nil {
			return nil, err
		}
	} else {
		pinned, err := s.store.EmbeddingModel(ctx, req.Namespace)
		if err != nil {
			return nil, err
		}
		// The pin compares resolved model names: callers fill
		// EmbeddingModel from the provider, defaults already applied.
		// An empty request model never matches a pinned namespace.
		if pinned != "" && req.EmbeddingModel != pinned {
			return nil, rag.NewValidationError(
				"namespace %s is pinned to embedding model %s; retrain from scratch to switch to %q",
				req.Namespace, pinned, req.EmbeddingModel)
		}
	}

	chunks, err := s.splitter.Split(req.Documents)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		log.Info("nothing to ingest", "namespace", req.Namespace)
		return nil, nil
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}

		if err := s.store.Upsert(ctx, req.Namespace, batch, vectors, req.EmbeddingModel); err != nil {
			return nil, err
		}
	}

	log.Info("ingestion complete", "namespace", req.Namespace, "chunks", len(chunks))
	return chunks, nil
}
