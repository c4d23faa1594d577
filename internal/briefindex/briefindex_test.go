package briefindex

import "testing"

func TestSearchFiltersByIdentity(t *testing.T) {
	ix, err := New()
	if err != nil {
		t.Fatal(err)
	}
	docs := []Doc{
		{BriefID: "a1", Identity: "user-1", Topic: "rust async runtimes", Text: "tokio and async-std compared for production workloads"},
		{BriefID: "a2", Identity: "user-2", Topic: "rust web frameworks", Text: "axum builds on tokio and tower"},
		{BriefID: "a3", Identity: "user-1", Topic: "go concurrency", Text: "goroutines and channels versus tokio tasks"},
	}
	for _, d := range docs {
		if err := ix.Add(d); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := ix.Search("user-1", "tokio", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits for user-1, got %d", len(hits))
	}
	for _, h := range hits {
		if h.BriefID == "a2" {
			t.Fatalf("hit %s belongs to another user", h.BriefID)
		}
	}
	if hits[0].Rank != 1 || hits[1].Rank != 2 {
		t.Fatalf("ranks not sequential: %d %d", hits[0].Rank, hits[1].Rank)
	}
}

func TestDeleteRemovesFromResults(t *testing.T) {
	ix, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Add(Doc{BriefID: "b1", Identity: "u", Topic: "kubernetes operators", Text: "controller runtime patterns"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Delete("b1"); err != nil {
		t.Fatal(err)
	}
	hits, err := ix.Search("u", "kubernetes", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits after delete, got %d", len(hits))
	}
}

func TestSnippetTruncation(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	got := snippet(string(long))
	if len(got) != 203 {
		t.Fatalf("snippet length = %d, want 203", len(got))
	}
}
