package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"chatdocs/src/core/chunk"
	"chatdocs/src/core/ingest"
	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/providers"
)

type memoryStore struct {
	namespace      string
	chunks         []rag.Chunk
	embeddingModel string
}

func (s *memoryStore) Upsert(_ context.Context, namespace string, chunks []rag.Chunk, vectors [][]float32, embeddingModel string) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	s.namespace = namespace
	s.chunks = append(s.chunks, chunks...)
	s.embeddingModel = embeddingModel
	return nil
}

func (s *memoryStore) Clear(context.Context, string) error { return nil }

func (s *memoryStore) Query(context.Context, string, []float32, int) ([]rag.ScoredChunk, error) {
	return nil, nil
}

func (s *memoryStore) EmbeddingModel(context.Context, string) (string, error) {
	return s.embeddingModel, nil
}

// fakeModelServer answers the local backend's embeddings endpoint with
// a fixed vector.
func fakeModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{0.1, 0.2, 0.3},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIngestTextReturnsExtractedChunks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := fakeModelServer(t)
	store := &memoryStore{}
	h := NewHandler(
		ingest.NewService(store, chunk.NewSplitter(1000, 200)),
		nil,
		providers.NewFactory(srv.URL),
		store,
		nil, nil, nil, nil, "",
	)
	r := gin.New()
	h.RegisterRoutes(r)

	body, _ := json.Marshal(map[string]interface{}{
		"text":      "The quick brown fox jumps over the lazy dog.",
		"namespace": "bot1",
		"provider":  "ollama",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/text", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Namespace string      `json:"namespace"`
		Chunks    []rag.Chunk `json:"chunks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Namespace != "bot1" {
		t.Errorf("namespace = %v, want %v", resp.Namespace, "bot1")
	}
	// The caller gets the extracted documents back, not a bare count.
	if len(resp.Chunks) == 0 {
		t.Fatal("response carries no chunks")
	}
	if resp.Chunks[0].Content != "The quick brown fox jumps over the lazy dog." {
		t.Errorf("chunk content = %q, want the ingested text", resp.Chunks[0].Content)
	}

	if len(store.chunks) != len(resp.Chunks) {
		t.Errorf("stored %d chunks, responded with %d", len(store.chunks), len(resp.Chunks))
	}
	// The namespace pin records the backend's resolved default, never
	// the empty request value.
	if store.embeddingModel != "nomic-embed-text" {
		t.Errorf("stored embedding model = %q, want %q", store.embeddingModel, "nomic-embed-text")
	}
}
