package weaviate

import (
	"context"
	"fmt"

	"chatdocs/src/core/rag"
)

// DefaultHybridAlpha weights vector similarity at 75% against 25% BM25.
const DefaultHybridAlpha = 0.75

// QueryHybrid combines vector similarity with BM25 keyword matching
// over the namespace. Alpha 1 is pure vector search, 0 pure BM25.
// Like Query, an untrained namespace yields an empty set.
func (s *Store) QueryHybrid(ctx context.Context, namespace string, vector []float32, query string, alpha float32, k int) ([]rag.ScoredChunk, error) {
	className := ClassName(namespace)
	exists, err := s.classExists(ctx, className)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	if k <= 0 {
		k = DefaultQueryLimit
	}
	if alpha <= 0 {
		alpha = DefaultHybridAlpha
	}

	hybrid := s.client.GraphQL().HybridArgumentBuilder().
		WithVector(vector).
		WithQuery(query).
		WithAlpha(alpha)

	result, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithFields(chunkFields()...).
		WithHybrid(hybrid).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, &rag.ProviderError{Op: "failed to query vectors", Err: err}
	}
	if len(result.Errors) > 0 {
		return nil, &rag.ProviderError{
			Op:  "failed to query vectors",
			Err: fmt.Errorf("graphql: %s", result.Errors[0].Message),
		}
	}

	return parseChunks(result.Data, className), nil
}
