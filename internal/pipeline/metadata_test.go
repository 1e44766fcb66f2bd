package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const ebookPage = `<!DOCTYPE html>
<html>
<head>
  <title>Romeo and Juliet by William Shakespeare | Project Gutenberg</title>
  <meta property="og:title" content="Romeo and Juliet">
</head>
<body>
  <h1 itemprop="name">Romeo and Juliet by William Shakespeare</h1>
  <table class="bibrec">
    <tr><th>Author</th><td><a href="/ebooks/author/65" itemprop="creator">Shakespeare,
      William, 1564-1616</a></td></tr>
    <tr><th>Title</th><td itemprop="headline">Romeo and Juliet</td></tr>
    <tr><th>Language</th><td>English</td></tr>
  </table>
</body>
</html>`

func TestParseMetadata(t *testing.T) {
	meta, err := ParseMetadata([]byte(ebookPage))
	if err != nil {
		t.Fatalf("ParseMetadata failed: %v", err)
	}

	if meta.Title != "Romeo and Juliet" {
		t.Errorf("unexpected title %q", meta.Title)
	}
	if len(meta.Authors) != 1 || meta.Authors[0] != "Shakespeare, William, 1564-1616" {
		t.Errorf("unexpected authors %q", meta.Authors)
	}
	if meta.Language != "English" {
		t.Errorf("unexpected language %q", meta.Language)
	}
}

func TestParseMetadata_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		page  string
		title string
	}{
		{"h1", `<h1 itemprop="name">Hamlet</h1>`, "Hamlet"},
		{"og:title", `<head><meta property="og:title" content="Macbeth"></head>`, "Macbeth"},
		{"title tag", `<head><title>  Othello  </title></head>`, "Othello"},
		{"nothing", `<p>no metadata here</p>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseMetadata([]byte(tt.page))
			if err != nil {
				t.Fatal(err)
			}
			if meta.Title != tt.title {
				t.Errorf("title = %q, want %q", meta.Title, tt.title)
			}
			if len(meta.Authors) != 0 || meta.Language != "" {
				t.Errorf("expected empty authors and language, got %+v", meta)
			}
		})
	}
}

func TestFetchMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ebooks/1513" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(ebookPage))
	}))
	defer server.Close()

	f := NewFetcher(sourceFor(server))

	meta, err := f.FetchMetadata(context.Background(), "1513")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	if meta.ID != "1513" || meta.Title != "Romeo and Juliet" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.SourceURL != server.URL+"/ebooks/1513" {
		t.Errorf("unexpected source url %s", meta.SourceURL)
	}

	if _, err := f.FetchMetadata(context.Background(), "42"); err == nil {
		t.Error("expected error for missing catalog page")
	}
}
