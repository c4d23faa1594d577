package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
<title>Falcon Heavy Launch</title>
<meta name="author" content="Jordan Reyes">
<meta property="article:published_time" content="2026-03-14T09:00:00Z">
<meta name="description" content="A launch report.">
</head>
<body>
<article>
<h1>Falcon Heavy Launch</h1>
<p>The rocket lifted off at dawn carrying a communications payload into a
geostationary transfer orbit. Engineers confirmed nominal staging and both
side boosters landed within eight minutes of liftoff.</p>
<p>Recovery teams reported calm seas and the fairing halves were fished out
intact, which the program treats as a cost win on every flight.</p>
</article>
</body>
</html>`

func TestHTTPFetcherExtractsArticle(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client(), MaxChars: MaxCharsDefault}
	page, err := f.Fetch(context.Background(), srv.URL+"/report")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(page.Text, "nominal staging") {
		t.Fatalf("expected article text, got %q", page.Text)
	}
	if page.Author != "Jordan Reyes" {
		t.Fatalf("expected author from meta, got %q", page.Author)
	}
	if page.Published != "2026-03-14T09:00:00Z" {
		t.Fatalf("expected published date from meta, got %q", page.Published)
	}
}

func TestHTTPFetcherTruncatesText(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("All work and no play makes a dull brief. ", 400)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>t</title></head><body><article><p>" + long + "</p></article></body></html>"))
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client(), MaxChars: 500}
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(page.Text) > 500 {
		t.Fatalf("expected text capped at 500 chars, got %d", len(page.Text))
	}
}

func TestHTTPFetcherNonOKStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client(), MaxChars: 100}
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	t.Parallel()
	if _, err := New("gopher", 0, 0); err == nil {
		t.Fatal("expected error for unknown fetcher kind")
	}
	f, err := New("", 0, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := f.(*HTTPFetcher); !ok {
		t.Fatalf("expected default HTTP fetcher, got %T", f)
	}
}
