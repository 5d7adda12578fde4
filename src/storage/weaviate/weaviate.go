package weaviate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"chatdocs/src/core/rag"
)

const (
	classPrefix     = "Documents_"
	modelDescPrefix = "embedding_model="

	DefaultQueryLimit = 20
)

// chunkIDSpace seeds the deterministic v5 UUIDs that make upserts
// idempotent per chunk identity.
var chunkIDSpace = uuid.MustParse("7b1a3f3e-90d4-4e2a-b0c7-5d6de3a1c9f4")

// Store is the tenant-namespaced vector store backed by Weaviate, one
// class per namespace. The Store owns the namespace-to-class mapping;
// callers never construct storage names themselves.
type Store struct {
	client *weaviate.Client
}

// NewStore creates a Store around an initialized Weaviate client.
func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// ClassName maps a tenant namespace onto a Weaviate class name.
// Weaviate requires /^[A-Z][_0-9A-Za-z]*$/, so ASCII letters and
// digits pass through and every other byte is escaped as "_" plus two
// hex digits. The encoding is injective: distinct namespaces always
// land on distinct classes, and the escape character itself is
// escaped.
func ClassName(namespace string) string {
	var b strings.Builder
	for i := 0; i < len(namespace); i++ {
		c := namespace[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return classPrefix + b.String()
}

// chunkID derives the deterministic object ID for a chunk within a
// namespace. Identity is (source, order, content).
func chunkID(namespace string, c rag.Chunk) string {
	sum := sha256.Sum256([]byte(c.Content))
	key := fmt.Sprintf("%s|%s|%d|%x", namespace, c.Metadata.Source, c.Order, sum)
	return uuid.NewSHA1(chunkIDSpace, []byte(key)).String()
}

func (s *Store) classExists(ctx context.Context, className string) (bool, error) {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return false, &rag.ProviderError{Op: "failed to check class existence", Err: err}
	}
	return exists, nil
}

func (s *Store) createClass(ctx context.Context, className, embeddingModel string) error {
	class := &models.Class{
		Class:       className,
		Description: modelDescPrefix + embeddingModel,
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}, Description: "Chunk text"},
			{Name: "source", DataType: []string{"text"}, Description: "Originating source"},
			{Name: "title", DataType: []string{"text"}, Description: "Source title"},
			{Name: "docDate", DataType: []string{"text"}, Description: "Source date"},
			{Name: "chunkOrder", DataType: []string{"int"}, Description: "Chunk position within its source"},
			{Name: "contentLength", DataType: []string{"int"}, Description: "Word count of the source document"},
		},
	}

	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return &rag.ProviderError{Op: "failed to create class", Err: err}
	}
	return nil
}

// EmbeddingModel reports the embedding model a namespace was trained
// with, or "" for a namespace that does not exist yet.
func (s *Store) EmbeddingModel(ctx context.Context, namespace string) (string, error) {
	className := ClassName(namespace)
	exists, err := s.classExists(ctx, className)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}

	class, err := s.client.Schema().ClassGetter().WithClassName(className).Do(ctx)
	if err != nil {
		return "", &rag.ProviderError{Op: "failed to get class", Err: err}
	}
	return strings.TrimPrefix(class.Description, modelDescPrefix), nil
}

// Upsert writes chunks with their vectors into the namespace,
// creating the class on first use. Object IDs are deterministic, so
// re-ingesting identical content overwrites rather than duplicates.
func (s *Store) Upsert(ctx context.Context, namespace string, chunks []rag.Chunk, vectors [][]float32, embeddingModel string) error {
	if len(chunks) != len(vectors) {
		return rag.NewValidationError("chunk and vector counts differ: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	className := ClassName(namespace)
	exists, err := s.classExists(ctx, className)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.createClass(ctx, className, embeddingModel); err != nil {
			return err
		}
	}

	objects := make([]*models.Object, len(chunks))
	for i, c := range chunks {
		objects[i] = &models.Object{
			ID:     strfmt.UUID(chunkID(namespace, c)),
			Class:  className,
			Vector: vectors[i],
			Properties: map[string]interface{}{
				"content":       c.Content,
				"source":        c.Metadata.Source,
				"title":         c.Metadata.Title,
				"docDate":       c.Metadata.Date,
				"chunkOrder":    c.Order,
				"contentLength": c.Metadata.ContentLength,
			},
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return &rag.ProviderError{Op: "failed to batch upsert vectors", Err: err}
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return &rag.ProviderError{
				Op:  "failed to batch upsert vectors",
				Err: fmt.Errorf("object %s: %s", r.ID, r.Result.Errors.Error[0].Message),
			}
		}
	}

	return nil
}

// Clear drops the namespace's class and everything in it. Clearing a
// namespace that was never trained is a no-op. The deletion completes
// before Clear returns, so upserts issued afterwards by the same
// ingestion call never race stale vectors.
func (s *Store) Clear(ctx context.Context, namespace string) error {
	className := ClassName(namespace)
	exists, err := s.classExists(ctx, className)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := s.client.Schema().ClassDeleter().WithClassName(className).Do(ctx); err != nil {
		return &rag.ProviderError{Op: "failed to clear namespace", Err: err}
	}
	return nil
}

// Query returns the k nearest chunks by vector distance. A namespace
// that has never been trained returns an empty set, not an error.
func (s *Store) Query(ctx context.Context, namespace string, vector []float32, k int) ([]rag.ScoredChunk, error) {
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

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithFields(chunkFields()...).
		WithNearVector(nearVector).
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

func chunkFields() []graphql.Field {
	return []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "title"},
		{Name: "docDate"},
		{Name: "chunkOrder"},
		{Name: "contentLength"},
		{Name: "_additional { id distance score }"},
	}
}

func parseChunks(data map[string]models.JSONObject, className string) []rag.ScoredChunk {
	chunks := []rag.ScoredChunk{}

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return chunks
	}
	objects, ok := get[className].([]interface{})
	if !ok {
		return chunks
	}

	for _, obj := range objects {
		objMap, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		sc := rag.ScoredChunk{}
		if v, ok := objMap["content"].(string); ok {
			sc.Content = v
		}
		if v, ok := objMap["source"].(string); ok {
			sc.Metadata.Source = v
		}
		if v, ok := objMap["title"].(string); ok {
			sc.Metadata.Title = v
		}
		if v, ok := objMap["docDate"].(string); ok {
			sc.Metadata.Date = v
		}
		if v, ok := objMap["chunkOrder"].(float64); ok {
			sc.Order = int(v)
		}
		if v, ok := objMap["contentLength"].(float64); ok {
			sc.Metadata.ContentLength = int(v)
		}

		// Higher score is always better. nearVector reports a
		// distance (lower is better), hybrid a relevance score, so
		// distance is flipped to keep one convention across both.
		if additional, ok := objMap["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				sc.Score = 1 - d
			} else if sv, ok := additional["score"].(string); ok {
				fmt.Sscanf(sv, "%f", &sc.Score)
			}
		}

		chunks = append(chunks, sc)
	}

	return chunks
}
