package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatdocs/src/core/rag"
)

const (
	DefaultURL = "http://localhost:11434/api"

	DefaultChatModel      = "llama3"
	DefaultEmbeddingModel = "nomic-embed-text"
)

// EmbeddingRequest represents the request structure for embeddings
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingResponse represents the response structure from embeddings
type EmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// GenerateRequest represents the request structure for model generation
type GenerateRequest struct {
	Model   string                 `json:"model"`
	System  string                 `json:"system"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// GenerateResponse represents one NDJSON line of a generation stream
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Provider is an Ollama-backed implementation of the embedding and
// completion contracts, for self-hosted deployments where no external
// API key exists.
type Provider struct {
	httpClient     *http.Client
	baseURL        string
	chatModel      string
	embeddingModel string
}

// NewProvider creates an Ollama provider. The model names come from
// the per-request bot config; empty fields fall back to defaults.
func NewProvider(baseURL string, c *http.Client, cfg rag.BotConfig) *Provider {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = http.DefaultClient
	}
	chatModel := cfg.ModelName
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	return &Provider{
		httpClient:     c,
		baseURL:        baseURL,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}
}

// EmbeddingModelName reports the model Embed actually uses, with the
// default already applied.
func (p *Provider) EmbeddingModelName() string {
	return p.embeddingModel
}

// Embed generates one vector per input text, same order. Ollama's
// embeddings endpoint takes one prompt at a time, so inputs are sent
// sequentially.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func (p *Provider) embedOne(ctx context.Context, text string) ([]float32, error) {
	reqBody := EmbeddingRequest{
		Model:  p.embeddingModel,
		Prompt: text,
	}

	resp, err := p.post(ctx, "/embeddings", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("embeddings request failed", resp)
	}

	var result EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &rag.ProviderError{Op: "embeddings request failed", Err: err}
	}

	embedding := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// Complete performs a full generation, draining the NDJSON stream.
func (p *Provider) Complete(ctx context.Context, system, prompt string) (string, error) {
	stream, err := p.CompleteStream(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var full strings.Builder
	for {
		token, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		full.WriteString(token)
	}

	if full.Len() == 0 {
		return "", &rag.ProviderError{
			Op:  "generate request failed",
			Err: fmt.Errorf("no response received from ollama"),
		}
	}
	return full.String(), nil
}

// CompleteStream opens a token stream over Ollama's NDJSON generate
// endpoint.
func (p *Provider) CompleteStream(ctx context.Context, system, prompt string) (rag.TokenStream, error) {
	reqBody := GenerateRequest{
		Model:  p.chatModel,
		System: system,
		Prompt: prompt,
		Stream: true,
		Options: map[string]interface{}{
			"temperature": 0.5,
		},
	}

	resp, err := p.post(ctx, "/generate", reqBody)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError("generate request failed", resp)
	}

	return &tokenStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

func (p *Provider) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &rag.ProviderError{Op: "ollama request failed", Err: err}
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusTooManyRequests {
		return &rag.RateLimitError{Err: err}
	}
	return &rag.ProviderError{Op: op, Err: err}
}

// tokenStream reads NDJSON generation lines until the done marker.
type tokenStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

func (s *tokenStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				s.done = true
				return "", io.EOF
			}
			return "", &rag.ProviderError{Op: "generate stream failed", Err: err}
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var response GenerateResponse
		if err := json.Unmarshal(line, &response); err != nil {
			return "", &rag.ProviderError{Op: "generate stream failed", Err: err}
		}

		if response.Done {
			s.done = true
			if response.Response == "" {
				return "", io.EOF
			}
		}
		if response.Response == "" {
			continue
		}
		return response.Response, nil
	}
}

func (s *tokenStream) Close() error {
	return s.body.Close()
}
