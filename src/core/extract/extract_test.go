package extract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatdocs/src/core/extract"
)

func TestFromText(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantDocs  int
		wantText  string
		wantWords int
	}{
		{
			name:      "plain text passes through",
			content:   "hello world",
			wantDocs:  1,
			wantText:  "hello world",
			wantWords: 2,
		},
		{
			name:      "whitespace runs collapse",
			content:   "  hello \n\n\t world  ",
			wantDocs:  1,
			wantText:  "hello world",
			wantWords: 2,
		},
		{
			name:     "empty input yields no documents",
			content:  "   \n\t ",
			wantDocs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := extract.FromText(tt.content)
			if len(docs) != tt.wantDocs {
				t.Fatalf("FromText() returned %d documents, want %d", len(docs), tt.wantDocs)
			}
			if tt.wantDocs == 0 {
				return
			}
			if docs[0].Content != tt.wantText {
				t.Errorf("FromText() content = %q, want %q", docs[0].Content, tt.wantText)
			}
			if docs[0].Metadata.ContentLength != tt.wantWords {
				t.Errorf("FromText() word count = %d, want %d", docs[0].Metadata.ContentLength, tt.wantWords)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "tags become whitespace",
			raw:  "<p>hello</p><p>world</p>",
			want: "hello world",
		},
		{
			name: "script and style bodies discarded",
			raw:  "<script>var x = 1;</script>visible<style>.a{color:red}</style>",
			want: "visible",
		},
		{
			name: "entities unescaped",
			raw:  "fish &amp; chips",
			want: "fish & chips",
		},
		{
			name: "plain text untouched",
			raw:  "no markup here",
			want: "no markup here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.StripHTML(tt.raw)
			if got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>My Page</title></head><body><h1>Heading</h1><p>Body text.</p></body></html>"))
	}))
	defer srv.Close()

	fetcher := extract.NewFetcher(srv.Client())
	docs, err := fetcher.FromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FromURL() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("FromURL() returned %d documents, want 1", len(docs))
	}

	doc := docs[0]
	if doc.Metadata.Title != "My Page" {
		t.Errorf("title = %q, want %q", doc.Metadata.Title, "My Page")
	}
	if doc.Metadata.Source != srv.URL {
		t.Errorf("source = %q, want %q", doc.Metadata.Source, srv.URL)
	}
	if doc.Content != "My Page Heading Body text." {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestFromURLNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := extract.NewFetcher(srv.Client())
	if _, err := fetcher.FromURL(context.Background(), srv.URL); err == nil {
		t.Error("FromURL() expected error for 500 response")
	}
}

func TestFromURLsToleratesPartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<body>good page</body>"))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	fetcher := extract.NewFetcher(nil)
	docs := fetcher.FromURLs(context.Background(), []string{bad.URL, good.URL, "http://127.0.0.1:1/unreachable"})

	if len(docs) != 1 {
		t.Fatalf("FromURLs() returned %d documents, want 1 from the healthy page", len(docs))
	}
	if docs[0].Content != "good page" {
		t.Errorf("content = %q, want %q", docs[0].Content, "good page")
	}
}
