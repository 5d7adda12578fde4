package cmd

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	"chatdocs/src/core/chunk"
	"chatdocs/src/core/extract"
	"chatdocs/src/core/ingest"
	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/providers"
	"chatdocs/src/storage/weaviate"
)

var (
	ingestNamespace      string
	ingestClear          bool
	ingestAPIKey         string
	ingestProvider       string
	ingestEmbeddingModel string
)

// ingestCmd is the operator-side batch ingestion path. It talks to the
// same stores as the server but skips HTTP entirely.
var ingestCmd = &cobra.Command{
	Use:   "ingest [urls...]",
	Short: "Fetch URLs and ingest them into a namespace",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	settingDefaultConfig()

	ingestCmd.Flags().StringVarP(&ingestNamespace, "namespace", "n", "", "target namespace (required)")
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "clear the namespace before ingesting")
	ingestCmd.Flags().StringVar(&ingestAPIKey, "api-key", os.Getenv("OPENAI_API_KEY"), "provider API key")
	ingestCmd.Flags().StringVar(&ingestProvider, "provider", "", `completion/embedding provider ("openai" or "ollama")`)
	ingestCmd.Flags().StringVar(&ingestEmbeddingModel, "embedding-model", "", "embedding model override")
	ingestCmd.MarkFlagRequired("namespace")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.url"),
		Scheme: "http",
	})
	store := weaviate.NewStore(wc)

	factory := providers.NewFactory(viper.GetString("ollama.url"))
	provider, err := factory.Provider(rag.BotConfig{
		APIKey:         ingestAPIKey,
		Provider:       ingestProvider,
		EmbeddingModel: ingestEmbeddingModel,
	})
	if err != nil {
		return err
	}

	fetcher := extract.NewFetcher(nil)

	var docs []rag.Document
	bar := progressbar.Default(int64(len(args)), "fetching")
	for _, url := range args {
		pages, err := fetcher.FromURL(ctx, url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", url, err)
		} else {
			docs = append(docs, pages...)
		}
		bar.Add(1)
	}
	if len(docs) == 0 {
		return fmt.Errorf("none of the %d urls yielded content", len(args))
	}

	splitter := chunk.NewSplitter(
		viper.GetInt("rag.chunk_size"),
		viper.GetInt("rag.chunk_overlap"),
	)
	svc := ingest.NewService(store, splitter)

	chunks, err := svc.Ingest(ctx, provider, ingest.Request{
		Namespace:      ingestNamespace,
		EmbeddingModel: provider.EmbeddingModelName(),
		ClearNamespace: ingestClear,
		Documents:      docs,
	})
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d documents as %d chunks into %s\n", len(docs), len(chunks), ingestNamespace)
	return nil
}
