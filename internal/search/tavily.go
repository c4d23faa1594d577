package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily is the primary AI-search backend. It returns an LLM-synthesized
// answer together with the cited pages, pre-validated by the provider's own
// citation process.
type Tavily struct {
	APIKey   string
	Client   *http.Client
	Endpoint string // overridable for tests
}

func (t *Tavily) Kind() Kind { return KindAISummary }

func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	_, results, err := t.SearchWithAnswer(ctx, query, limit)
	return results, err
}

// SearchWithAnswer implements Answerer.
// https://docs.tavily.com/documentation/api-reference/endpoint/search
func (t *Tavily) SearchWithAnswer(ctx context.Context, query string, limit int) (string, []Result, error) {
	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = tavilyEndpoint
	}
	payload := map[string]any{
		"query":          query,
		"max_results":    limit,
		"include_answer": true,
		"search_depth":   "basic",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	resp, err := t.Client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", nil, fmt.Errorf("tavily: %s: %s", resp.Status, b)
	}
	var raw struct {
		Answer  string `json:"answer"`
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", nil, err
	}
	var out []Result
	for i, r := range raw.Results {
		if i >= limit {
			break
		}
		out = append(out, Result{
			Title:      r.Title,
			URL:        r.URL,
			Snippet:    r.Content,
			Kind:       KindAISummary,
			Engagement: r.Score,
		})
	}
	return raw.Answer, out, nil
}
