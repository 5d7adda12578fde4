package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/log"
	"chatdocs/src/infrastructure/retry"
)

const (
	DefaultChatModel      = "gpt-3.5-turbo"
	DefaultEmbeddingModel = string(goopenai.SmallEmbedding3)

	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second

	completionTemperature = 0.5
)

// Provider speaks the OpenAI API for both embeddings and chat
// completions. One Provider is built per request from the caller's
// BotConfig; nothing is cached across requests.
type Provider struct {
	client         *goopenai.Client
	chatModel      string
	embeddingModel string
	maxRetries     int
	retryDelay     time.Duration
}

// NewProvider builds a Provider from the per-request bot config.
func NewProvider(cfg rag.BotConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, rag.NewValidationError("api key is required")
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
		client:         goopenai.NewClient(cfg.APIKey),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		maxRetries:     defaultMaxRetries,
		retryDelay:     defaultRetryDelay,
	}, nil
}

// EmbeddingModelName reports the model Embed actually uses, with the
// default already applied. Model pinning compares against this name,
// never against the raw request value.
func (p *Provider) EmbeddingModelName() string {
	return p.embeddingModel
}

// Embed returns one vector per input text, same order. Rate limits are
// retried with jittered exponential backoff; auth and provider errors
// surface immediately.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug("retrying embeddings after rate limit", "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retry.Backoff(p.retryDelay, attempt)):
			}
		}

		resp, err := p.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
			Input: texts,
			Model: goopenai.EmbeddingModel(p.embeddingModel),
		})
		if err != nil {
			lastErr = classify("embeddings request failed", err)
			if isRetryable(lastErr) {
				continue
			}
			return nil, lastErr
		}

		if len(resp.Data) != len(texts) {
			return nil, &rag.ProviderError{
				Op:  "embeddings request failed",
				Err: fmt.Errorf("expected %d vectors, got %d", len(texts), len(resp.Data)),
			}
		}

		vectors := make([][]float32, len(resp.Data))
		for _, d := range resp.Data {
			vectors[d.Index] = d.Embedding
		}
		return vectors, nil
	}

	return nil, lastErr
}

// Complete generates the full completion text in one call.
func (p *Provider) Complete(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug("retrying completion after rate limit", "attempt", attempt)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retry.Backoff(p.retryDelay, attempt)):
			}
		}

		resp, err := p.client.CreateChatCompletion(ctx, p.completionRequest(system, prompt, false))
		if err != nil {
			lastErr = classify("completion request failed", err)
			if isRetryable(lastErr) {
				continue
			}
			return "", lastErr
		}

		if len(resp.Choices) == 0 {
			return "", &rag.ProviderError{
				Op:  "completion request failed",
				Err: errors.New("no completion choices returned"),
			}
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", lastErr
}

// CompleteStream opens a token stream for the completion. The stream
// is cancelled through ctx or Close.
func (p *Provider) CompleteStream(ctx context.Context, system, prompt string) (rag.TokenStream, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retry.Backoff(p.retryDelay, attempt)):
			}
		}

		stream, err := p.client.CreateChatCompletionStream(ctx, p.completionRequest(system, prompt, true))
		if err != nil {
			lastErr = classify("completion stream failed", err)
			if isRetryable(lastErr) {
				continue
			}
			return nil, lastErr
		}
		return &tokenStream{stream: stream}, nil
	}

	return nil, lastErr
}

func (p *Provider) completionRequest(system, prompt string, stream bool) goopenai.ChatCompletionRequest {
	var messages []goopenai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	return goopenai.ChatCompletionRequest{
		Model:       p.chatModel,
		Messages:    messages,
		Temperature: completionTemperature,
		Stream:      stream,
	}
}

// tokenStream adapts the go-openai stream to rag.TokenStream.
type tokenStream struct {
	stream *goopenai.ChatCompletionStream
}

func (s *tokenStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", classify("completion stream failed", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		token := resp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		return token, nil
	}
}

func (s *tokenStream) Close() error {
	return s.stream.Close()
}

// classify maps a go-openai error onto the domain error taxonomy.
func classify(op string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &rag.AuthError{Err: err}
		case http.StatusTooManyRequests:
			return &rag.RateLimitError{Err: err}
		}
	}
	return &rag.ProviderError{Op: op, Err: err}
}

func isRetryable(err error) bool {
	var rl *rag.RateLimitError
	return errors.As(err, &rl)
}
