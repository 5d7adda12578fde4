package extract

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"chatdocs/src/core/rag"
)

const maxBodyBytes = 10 << 20 // 10 MiB cap per fetched page

var (
	titleRE  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptRE = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRE    = regexp.MustCompile(`(?s)<[^>]*>`)
)

// Fetcher extracts plain-text documents from web pages.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client falls back to
// http.DefaultClient; callers should supply one with a timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// FromURL fetches one URL and strips its HTML down to plain text.
func (f *Fetcher) FromURL(ctx context.Context, url string) ([]rag.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "chatdocs/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}

	raw := string(body)
	title := extractTitle(raw)
	text := StripHTML(raw)
	if text == "" {
		return nil, nil
	}

	return []rag.Document{{
		Content: text,
		Metadata: rag.Metadata{
			Source:        url,
			Title:         title,
			ContentLength: len(wordRE.FindAllString(text, -1)),
		},
	}}, nil
}

// StripHTML converts an HTML fragment to whitespace-normalized plain
// text. Script, style and noscript bodies are discarded entirely.
func StripHTML(raw string) string {
	text := scriptRE.ReplaceAllString(raw, " ")
	text = tagRE.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}

func extractTitle(raw string) string {
	m := titleRE.FindStringSubmatch(raw)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(html.UnescapeString(m[1]), " "))
}
