package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const hnEndpoint = "https://hn.algolia.com/api/v1/search"

// HackerNews is the link-aggregator backend, served by Algolia's public
// Hacker News index. No credential required.
type HackerNews struct {
	Client   *http.Client
	Endpoint string // overridable for tests
}

func (h *HackerNews) Kind() Kind { return KindLinkAggregator }

// Search queries the Algolia HN index for stories ranked by relevance.
// https://hn.algolia.com/api
func (h *HackerNews) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	endpoint := h.Endpoint
	if endpoint == "" {
		endpoint = hnEndpoint
	}
	u := fmt.Sprintf("%s?query=%s&tags=story&hitsPerPage=%d", endpoint, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("hackernews: %s: %s", resp.Status, body)
	}
	var raw struct {
		Hits []struct {
			Title       string  `json:"title"`
			URL         string  `json:"url"`
			Points      float64 `json:"points"`
			NumComments int     `json:"num_comments"`
			ObjectID    string  `json:"objectID"`
			StoryText   string  `json:"story_text"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []Result
	for i, hit := range raw.Hits {
		if i >= limit {
			break
		}
		link := hit.URL
		if link == "" {
			// Ask HN / Show HN posts carry no external link.
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		snippet := strings.TrimSpace(hit.StoryText)
		if len(snippet) > 280 {
			snippet = snippet[:280]
		}
		out = append(out, Result{
			Title:        hit.Title,
			URL:          link,
			Snippet:      snippet,
			Kind:         KindLinkAggregator,
			Engagement:   hit.Points,
			CommentCount: hit.NumComments,
		})
	}
	return out, nil
}
