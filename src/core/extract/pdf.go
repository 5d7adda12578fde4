package extract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"chatdocs/src/core/rag"
)

// FromPDF extracts the text layer of a PDF, one document per page.
// Pages without a text layer (scanned images) are skipped, so a fully
// scanned PDF yields an empty slice without error. No OCR.
func FromPDF(data []byte, filename string) ([]rag.Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", filename, err)
	}
	defer doc.Close()

	var documents []rag.Document
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d of %s: %w", i+1, filename, err)
		}

		cleaned := strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
		if cleaned == "" {
			continue
		}

		documents = append(documents, rag.Document{
			Content: cleaned,
			Metadata: rag.Metadata{
				Source:        fmt.Sprintf("%s#page=%d", filename, i+1),
				Title:         filename,
				ContentLength: len(wordRE.FindAllString(cleaned, -1)),
			},
		})
	}

	return documents, nil
}
