package chunk

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"chatdocs/src/core/rag"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Splitter cuts documents into overlapping, size-bounded chunks.
// Splitting prefers paragraph and sentence boundaries, falling back to
// a hard cut at ChunkSize; identical input and config always produce
// identical boundaries.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSplitter creates a Splitter. Non-positive values fall back to the
// defaults.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split chunks every document in order. Chunk order numbering runs
// across the whole batch so (source, order) identifies a chunk within
// one ingestion.
func (s *Splitter) Split(docs []rag.Document) ([]rag.Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
	)

	var chunks []rag.Chunk
	order := 0
	for _, doc := range docs {
		parts, err := splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %q: %w", doc.Metadata.Source, err)
		}
		for _, part := range parts {
			if part == "" {
				continue
			}
			chunks = append(chunks, rag.Chunk{
				Content:  part,
				Metadata: doc.Metadata,
				Order:    order,
			})
			order++
		}
	}

	return chunks, nil
}
