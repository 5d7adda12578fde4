package providers_test

import (
	"errors"
	"testing"

	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/integrations/ollama"
	"chatdocs/src/infrastructure/integrations/openai"
	"chatdocs/src/infrastructure/providers"
)

func TestProviderSelection(t *testing.T) {
	factory := providers.NewFactory("http://ollama:11434")

	tests := []struct {
		name    string
		cfg     rag.BotConfig
		wantErr bool
	}{
		{"default is openai", rag.BotConfig{APIKey: "sk-test"}, false},
		{"explicit openai", rag.BotConfig{Provider: "openai", APIKey: "sk-test"}, false},
		{"ollama needs no key", rag.BotConfig{Provider: "ollama"}, false},
		{"openai without key", rag.BotConfig{}, true},
		{"unknown backend", rag.BotConfig{Provider: "anthropic"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.Provider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Provider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var validationErr *rag.ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("Provider() error = %v, want ValidationError", err)
				}
			}
		})
	}
}

// EmbeddingModelName must never be empty: the namespace pin records it
// on first training, so an unconfigured bot still resolves to the
// backend's concrete default instead of an unpinnable "".
func TestEmbeddingModelNameResolvesDefaults(t *testing.T) {
	factory := providers.NewFactory("http://ollama:11434")

	tests := []struct {
		name string
		cfg  rag.BotConfig
		want string
	}{
		{"openai default", rag.BotConfig{APIKey: "sk-test"}, openai.DefaultEmbeddingModel},
		{"openai explicit", rag.BotConfig{APIKey: "sk-test", EmbeddingModel: "text-embedding-ada-002"}, "text-embedding-ada-002"},
		{"ollama default", rag.BotConfig{Provider: "ollama"}, ollama.DefaultEmbeddingModel},
		{"ollama explicit", rag.BotConfig{Provider: "ollama", EmbeddingModel: "mxbai-embed-large"}, "mxbai-embed-large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := factory.Provider(tt.cfg)
			if err != nil {
				t.Fatalf("Provider() error = %v", err)
			}
			if got := provider.EmbeddingModelName(); got != tt.want {
				t.Errorf("EmbeddingModelName() = %v, want %v", got, tt.want)
			}
			if provider.EmbeddingModelName() == "" {
				t.Error("EmbeddingModelName() must resolve to a concrete model")
			}
		})
	}
}
