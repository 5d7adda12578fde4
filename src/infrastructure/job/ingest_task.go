package job

import (
	"context"
	"encoding/json"
	"fmt"

	"chatdocs/src/core/extract"
	"chatdocs/src/core/ingest"
	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/log"
	"chatdocs/src/infrastructure/providers"
)

// IngestURLsPayload carries everything a worker needs to run a URL
// ingestion without touching the caller's session. Credentials travel
// in the payload so the worker never reads ambient configuration.
type IngestURLsPayload struct {
	Namespace      string   `json:"namespace"`
	URLs           []string `json:"urls"`
	ClearNamespace bool     `json:"clear_namespace"`
	APIKey         string   `json:"api_key"`
	Provider       string   `json:"provider,omitempty"`
	EmbeddingModel string   `json:"embedding_model,omitempty"`
}

// IngestTask fetches URLs and runs them through the ingestion
// pipeline. It is the worker-side counterpart of the synchronous
// ingestion endpoints.
type IngestTask struct {
	fetcher *extract.Fetcher
	ingest  *ingest.Service
	factory *providers.Factory
}

func NewIngestTask(fetcher *extract.Fetcher, svc *ingest.Service, factory *providers.Factory) *IngestTask {
	return &IngestTask{
		fetcher: fetcher,
		ingest:  svc,
		factory: factory,
	}
}

func (t *IngestTask) HandleIngestURLs(ctx context.Context, raw json.RawMessage) error {
	var payload IngestURLsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal ingest payload: %w", err)
	}

	if len(payload.URLs) == 0 {
		return rag.NewValidationError("urls are required")
	}

	provider, err := t.factory.Provider(rag.BotConfig{
		APIKey:         payload.APIKey,
		Provider:       payload.Provider,
		EmbeddingModel: payload.EmbeddingModel,
	})
	if err != nil {
		return err
	}

	docs := t.fetcher.FromURLs(ctx, payload.URLs)
	if len(docs) == 0 {
		return fmt.Errorf("none of %d urls yielded any content", len(payload.URLs))
	}

	chunks, err := t.ingest.Ingest(ctx, provider, ingest.Request{
		Namespace:      payload.Namespace,
		EmbeddingModel: provider.EmbeddingModelName(),
		ClearNamespace: payload.ClearNamespace,
		Documents:      docs,
	})
	if err != nil {
		return err
	}

	log.Info("url ingestion job finished",
		"namespace", payload.Namespace,
		"urls", len(payload.URLs),
		"documents", len(docs),
		"chunks", len(chunks),
	)
	return nil
}
