package chain_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"chatdocs/src/core/chain"
	"chatdocs/src/core/rag"
)

type fakeEmbedder struct {
	texts []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

type fakeCompleter struct {
	responses []string
	prompts   []string
	tokens    []string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.responses) == 0 {
		return "answer", nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeCompleter) CompleteStream(ctx context.Context, system, prompt string) (rag.TokenStream, error) {
	f.prompts = append(f.prompts, prompt)
	return &fakeTokenStream{tokens: f.tokens}, nil
}

type fakeTokenStream struct {
	tokens []string
	closed bool
}

func (s *fakeTokenStream) Recv() (string, error) {
	if len(s.tokens) == 0 {
		return "", io.EOF
	}
	token := s.tokens[0]
	s.tokens = s.tokens[1:]
	return token, nil
}

func (s *fakeTokenStream) Close() error {
	s.closed = true
	return nil
}

type fakeStore struct {
	results    []rag.ScoredChunk
	namespaces []string
	ks         []int
}

func (f *fakeStore) Upsert(ctx context.Context, namespace string, chunks []rag.Chunk, vectors [][]float32, embeddingModel string) error {
	return nil
}

func (f *fakeStore) Clear(ctx context.Context, namespace string) error { return nil }

func (f *fakeStore) Query(ctx context.Context, namespace string, vector []float32, k int) ([]rag.ScoredChunk, error) {
	f.namespaces = append(f.namespaces, namespace)
	f.ks = append(f.ks, k)
	return f.results, nil
}

func (f *fakeStore) EmbeddingModel(ctx context.Context, namespace string) (string, error) {
	return "", nil
}

func scored(content string) rag.ScoredChunk {
	return rag.ScoredChunk{Chunk: rag.Chunk{Content: content}, Score: 0.9}
}

func TestRunWithoutHistorySkipsCondense(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"the answer"}}
	embedder := &fakeEmbedder{}
	store := &fakeStore{results: []rag.ScoredChunk{scored("ctx chunk")}}

	c := chain.New(embedder, completer, store)
	result, err := c.Run(context.Background(), chain.Input{
		Question:  "What is in the docs?",
		Namespace: "bot1",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(completer.prompts) != 1 {
		t.Fatalf("expected a single completion call, got %d", len(completer.prompts))
	}
	if got := completer.prompts[0]; !strings.Contains(got, "Question: What is in the docs?") {
		t.Errorf("answer prompt missing question:\n%s", got)
	}
	if got := completer.prompts[0]; !strings.Contains(got, "Context: ctx chunk") {
		t.Errorf("answer prompt missing retrieved context:\n%s", got)
	}
	if result.Text != "the answer" {
		t.Errorf("Run() text = %q, want %q", result.Text, "the answer")
	}
	if len(result.SourceDocuments) != 1 {
		t.Errorf("Run() sources = %d, want 1", len(result.SourceDocuments))
	}
	if len(embedder.texts) != 1 || embedder.texts[0] != "What is in the docs?" {
		t.Errorf("embedded texts = %v, want the raw question", embedder.texts)
	}
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		namespace string
	}{
		{name: "missing question", question: "  ", namespace: "bot1"},
		{name: "missing namespace", question: "hi", namespace: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := chain.New(&fakeEmbedder{}, &fakeCompleter{}, &fakeStore{})
			_, err := c.Run(context.Background(), chain.Input{Question: tt.question, Namespace: tt.namespace})

			var validationErr *rag.ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("Run() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestRunUsesConfiguredTopK(t *testing.T) {
	store := &fakeStore{}
	c := chain.New(&fakeEmbedder{}, &fakeCompleter{}, store, chain.WithTopK(7))

	if _, err := c.Run(context.Background(), chain.Input{Question: "q", Namespace: "bot1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.ks) != 1 || store.ks[0] != 7 {
		t.Errorf("Query k = %v, want [7]", store.ks)
	}
	if store.namespaces[0] != "bot1" {
		t.Errorf("Query namespace = %q, want %q", store.namespaces[0], "bot1")
	}
}

func TestComposeDropsLowestRankedBeyondBudget(t *testing.T) {
	completer := &fakeCompleter{}
	store := &fakeStore{results: []rag.ScoredChunk{
		scored("first chunk"),
		scored("second chunk"),
		scored("third chunk"),
	}}

	c := chain.New(&fakeEmbedder{}, completer, store, chain.WithContextBudget(len("first chunk")+2))
	if _, err := c.Run(context.Background(), chain.Input{Question: "q", Namespace: "bot1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	prompt := completer.prompts[0]
	if !strings.Contains(prompt, "first chunk") {
		t.Errorf("prompt dropped the highest ranked chunk:\n%s", prompt)
	}
	if strings.Contains(prompt, "second chunk") || strings.Contains(prompt, "third chunk") {
		t.Errorf("prompt kept chunks beyond the context budget:\n%s", prompt)
	}
}

func TestComposeTruncatesOversizedChunk(t *testing.T) {
	completer := &fakeCompleter{}
	oversized := strings.Repeat("word ", 40)
	store := &fakeStore{results: []rag.ScoredChunk{scored(oversized)}}

	budget := 25
	c := chain.New(&fakeEmbedder{}, completer, store, chain.WithContextBudget(budget))
	if _, err := c.Run(context.Background(), chain.Input{Question: "q", Namespace: "bot1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	prompt := completer.prompts[0]
	if strings.Contains(prompt, oversized) {
		t.Errorf("prompt kept a chunk larger than the context budget:\n%s", prompt)
	}
	if !strings.Contains(prompt, oversized[:budget]) {
		t.Errorf("prompt lost the truncated head of the best chunk:\n%s", prompt)
	}
}

func TestCondenseEmptyAnswerFallsBackToRawQuestion(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"  \n ", "final"}}
	embedder := &fakeEmbedder{}

	c := chain.New(embedder, completer, &fakeStore{})
	_, err := c.Run(context.Background(), chain.Input{
		Question:  "When was it introduced?",
		History:   []rag.Turn{{Question: "a", Answer: "b"}},
		Namespace: "bot1",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(embedder.texts) != 1 || embedder.texts[0] != "When was it introduced?" {
		t.Errorf("embedded texts = %v, want the raw question fallback", embedder.texts)
	}
}

func TestRunStreamTokensConcatenateToText(t *testing.T) {
	completer := &fakeCompleter{tokens: []string{"Hel", "lo", " there"}}
	store := &fakeStore{results: []rag.ScoredChunk{scored("ctx")}}

	c := chain.New(&fakeEmbedder{}, completer, store)
	stream, err := c.RunStream(context.Background(), chain.Input{Question: "q", Namespace: "bot1"})
	if err != nil {
		t.Fatalf("RunStream() error = %v", err)
	}
	defer stream.Close()

	if len(stream.SourceDocuments()) != 1 {
		t.Errorf("SourceDocuments() = %d, want 1 before any Recv", len(stream.SourceDocuments()))
	}

	var got []string
	for {
		token, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		got = append(got, token)
	}

	if strings.Join(got, "") != "Hello there" {
		t.Errorf("tokens = %v, want concatenation %q", got, "Hello there")
	}
	if text := stream.Result().Text; text != "Hello there" {
		t.Errorf("Result().Text = %q, want %q", text, "Hello there")
	}

	// Recv after EOF keeps returning EOF.
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("Recv() after EOF error = %v, want io.EOF", err)
	}
}
