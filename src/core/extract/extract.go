package extract

import (
	"context"
	"regexp"
	"strings"

	"chatdocs/src/core/rag"
	"chatdocs/src/infrastructure/log"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	wordRE       = regexp.MustCompile(`\b\w+\b`)
)

// FromText normalizes pasted text into a single document. Whitespace
// runs collapse to one space and the word count lands in metadata.
func FromText(content string) []rag.Document {
	cleaned := strings.TrimSpace(whitespaceRE.ReplaceAllString(content, " "))
	if cleaned == "" {
		return nil
	}

	return []rag.Document{{
		Content: cleaned,
		Metadata: rag.Metadata{
			ContentLength: len(wordRE.FindAllString(cleaned, -1)),
		},
	}}
}

// FromURLs fetches and extracts each URL in order. A URL that fails to
// fetch or parse contributes nothing and is logged; it never aborts
// the rest of the batch.
func (f *Fetcher) FromURLs(ctx context.Context, urls []string) []rag.Document {
	var documents []rag.Document
	for _, url := range urls {
		docs, err := f.FromURL(ctx, url)
		if err != nil {
			log.Error(err, "failed to extract url, continuing batch", "url", url)
			continue
		}
		documents = append(documents, docs...)
	}
	return documents
}
