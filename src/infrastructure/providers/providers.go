package providers

import (
	"net/http"
	"time"

	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/integrations/ollama"
	"chatdocs/src/infrastructure/integrations/openai"
)

// Provider is the combined embedding and completion contract every
// backend satisfies. EmbeddingModelName returns the model Embed will
// use with the backend's default already resolved, so namespace
// pinning always sees a concrete name.
type Provider interface {
	rag.Embedder
	rag.Completer
	EmbeddingModelName() string
}

// Factory builds a Provider per request from the caller's bot config.
// Hosted OpenAI is the default; "ollama" selects the local backend,
// which needs no API key.
type Factory struct {
	ollamaURL  string
	httpClient *http.Client
}

func NewFactory(ollamaURL string) *Factory {
	return &Factory{
		ollamaURL: ollamaURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (f *Factory) Provider(cfg rag.BotConfig) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(f.ollamaURL, f.httpClient, cfg), nil
	case "", "openai":
		return openai.NewProvider(cfg)
	default:
		return nil, rag.NewValidationError("unknown provider %q", cfg.Provider)
	}
}
