package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTavilySearchWithAnswer(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tvly-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"answer": "Open models are catching up.",
			"results": [
				{"title": "A", "url": "https://a.example/one", "content": "first", "score": 0.92},
				{"title": "B", "url": "https://b.example/two", "content": "second", "score": 0.81},
				{"title": "C", "url": "https://c.example/three", "content": "third", "score": 0.5}
			]
		}`))
	}))
	defer srv.Close()

	tv := &Tavily{APIKey: "tvly-test", Client: srv.Client(), Endpoint: srv.URL}
	answer, results, err := tv.SearchWithAnswer(context.Background(), "open source AI models", 2)
	if err != nil {
		t.Fatalf("SearchWithAnswer: %v", err)
	}
	if answer != "Open models are catching up." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(results))
	}
	if results[0].Kind != KindAISummary || results[0].Engagement != 0.92 {
		t.Fatalf("unexpected first result %+v", results[0])
	}
}

func TestBraveSearchParsesResults(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "brave-key" {
			t.Errorf("unexpected token header %q", got)
		}
		if q := r.URL.Query().Get("q"); q != "go concurrency" {
			t.Errorf("unexpected query %q", q)
		}
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"Go blog","url":"https://go.dev/blog/pipelines","description":"pipelines"},
			{"title":"Talk","url":"https://example.com/talk","description":"patterns"}
		]}}`))
	}))
	defer srv.Close()

	b := &Brave{APIKey: "brave-key", Client: srv.Client(), Endpoint: srv.URL}
	results, err := b.Search(context.Background(), "go concurrency", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://go.dev/blog/pipelines" || results[0].Kind != KindWeb {
		t.Fatalf("unexpected result %+v", results[0])
	}
}

func TestBraveSearchErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b := &Brave{APIKey: "k", Client: srv.Client(), Endpoint: srv.URL}
	if _, err := b.Search(context.Background(), "q", 3); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestRedditSearchParsesListing(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("expected a User-Agent header")
		}
		_, _ = w.Write([]byte(`{"data":{"children":[
			{"data":{"title":"Discussion","permalink":"/r/golang/comments/abc/discussion/","subreddit":"golang","score":412,"num_comments":98,"selftext":"body text"}}
		]}}`))
	}))
	defer srv.Close()

	rd := &Reddit{Client: srv.Client(), UserAgent: "briefly-test/1.0", Endpoint: srv.URL}
	results, err := rd.Search(context.Background(), "generics", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := results[0]
	if got.URL != "https://www.reddit.com/r/golang/comments/abc/discussion/" {
		t.Fatalf("unexpected url %q", got.URL)
	}
	if got.Subreddit != "golang" || got.Engagement != 412 || got.CommentCount != 98 {
		t.Fatalf("unexpected forum fields %+v", got)
	}
}

func TestHackerNewsFallsBackToItemLink(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":[
			{"title":"Show HN: thing","url":"","points":321,"num_comments":120,"objectID":"41000000","story_text":"I built a thing"},
			{"title":"Article","url":"https://example.com/article","points":87,"num_comments":30,"objectID":"41000001"}
		]}`))
	}))
	defer srv.Close()

	hn := &HackerNews{Client: srv.Client(), Endpoint: srv.URL}
	results, err := hn.Search(context.Background(), "thing", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://news.ycombinator.com/item?id=41000000" {
		t.Fatalf("expected item fallback link, got %q", results[0].URL)
	}
	if results[1].Engagement != 87 || results[1].CommentCount != 30 {
		t.Fatalf("unexpected aggregator fields %+v", results[1])
	}
}

func TestYouTubeSearchBuildsWatchURLs(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.URL.Query().Get("key"); key != "yt-key" {
			t.Errorf("unexpected api key %q", key)
		}
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"videoId":"dQw4w9WgXcQ"},"snippet":{"title":"Video","description":"desc","channelTitle":"Chan","publishedAt":"2026-01-02T00:00:00Z"}}
		]}`))
	}))
	defer srv.Close()

	yt := &YouTube{APIKey: "yt-key", Client: srv.Client(), Endpoint: srv.URL}
	results, err := yt.Search(context.Background(), "demo", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := results[0]
	if got.URL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("unexpected url %q", got.URL)
	}
	if got.Channel != "Chan" || got.PublishedAt != "2026-01-02T00:00:00Z" {
		t.Fatalf("unexpected video fields %+v", got)
	}
}

func TestBuildAdaptersSkipsMissingCredentials(t *testing.T) {
	t.Parallel()
	adapters := BuildAdapters(Config{BraveAPIKey: "x"})
	if _, ok := adapters[KindAISummary]; ok {
		t.Fatal("tavily should not be built without a key")
	}
	if _, ok := adapters[KindVideo]; ok {
		t.Fatal("youtube should not be built without a key")
	}
	for _, kind := range []Kind{KindWeb, KindForum, KindLinkAggregator} {
		if _, ok := adapters[kind]; !ok {
			t.Fatalf("expected %s adapter to be built", kind)
		}
	}
	if adapters[KindWeb].Kind() != KindWeb {
		t.Fatal("adapter kind mismatch")
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	if k, ok := ParseKind(" Forum "); !ok || k != KindForum {
		t.Fatalf("ParseKind(forum) = %v %v", k, ok)
	}
	if _, ok := ParseKind("usenet"); ok {
		t.Fatal("expected unknown kind to fail")
	}
}
