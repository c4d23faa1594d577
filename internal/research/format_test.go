package research

import (
	"strings"
	"testing"

	"github.com/brieflyhq/briefly/internal/search"
)

func sampleContext() *Context {
	return &Context{
		Query:   "open source AI models",
		Summary: "Open models are closing the gap.",
		MergedWeb: []search.Result{
			webResult(search.KindAISummary, "https://a.example/one", "First"),
			webResult(search.KindWeb, "https://b.example/two", "Second"),
		},
		Buckets: map[search.Kind][]search.Result{
			search.KindForum: {{
				Title: "What are you running locally?", URL: "https://www.reddit.com/r/LocalLLaMA/comments/x/",
				Kind: search.KindForum, Subreddit: "LocalLLaMA", Engagement: 512, CommentCount: 230,
			}},
			search.KindLinkAggregator: {{
				Title: "New open weights released", URL: "https://example.com/release",
				Kind: search.KindLinkAggregator, Engagement: 341, CommentCount: 190,
			}},
			search.KindVideo: {{
				Title: "Benchmark roundup", URL: "https://www.youtube.com/watch?v=abc",
				Kind: search.KindVideo, Channel: "AI Weekly", PublishedAt: "2026-05-01T00:00:00Z",
			}},
		},
	}
}

func TestFormatSectionsAndOrder(t *testing.T) {
	t.Parallel()
	out := Format(sampleContext())

	sections := []string{"RESEARCH BRIEF: open source AI models", "SUMMARY", "WEB SOURCES", "DISCUSSIONS", "LINK AGGREGATOR", "VIDEOS"}
	last := -1
	for _, s := range sections {
		idx := strings.Index(out, s)
		if idx < 0 {
			t.Fatalf("missing section %q in output:\n%s", s, out)
		}
		if idx < last {
			t.Fatalf("section %q out of order", s)
		}
		last = idx
	}
	if !strings.Contains(out, "Sources gathered: 5") {
		t.Fatalf("expected total source count in header:\n%s", out)
	}
	if !strings.Contains(out, "1. First") || !strings.Contains(out, "2. Second") {
		t.Fatalf("web sources must be numbered:\n%s", out)
	}
	if !strings.Contains(out, "[r/LocalLLaMA]") || !strings.Contains(out, "512 points, 230 comments") {
		t.Fatalf("forum rendering missing fields:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), closingInstruction) {
		t.Fatalf("output must end with the synthesis instruction:\n%s", out)
	}
}

func TestFormatDeterministic(t *testing.T) {
	t.Parallel()
	a := Format(sampleContext())
	b := Format(sampleContext())
	if a != b {
		t.Fatal("Format must be pure: identical contexts produced different strings")
	}
}

func TestFormatOmitsEmptySections(t *testing.T) {
	t.Parallel()
	rc := &Context{Query: "q", Buckets: map[search.Kind][]search.Result{}}
	out := Format(rc)
	for _, s := range []string{"SUMMARY", "WEB SOURCES", "DISCUSSIONS", "LINK AGGREGATOR", "VIDEOS"} {
		if strings.Contains(out, s) {
			t.Fatalf("empty section %q must be omitted:\n%s", s, out)
		}
	}
}
