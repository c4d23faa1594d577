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

const redditEndpoint = "https://www.reddit.com/search.json"

// Reddit is the forum-discussion backend. The public search endpoint needs
// no credential but rejects requests without a descriptive User-Agent.
type Reddit struct {
	Client    *http.Client
	UserAgent string
	Endpoint  string // overridable for tests
}

func (r *Reddit) Kind() Kind { return KindForum }

func (r *Reddit) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = redditEndpoint
	}
	u := fmt.Sprintf("%s?q=%s&limit=%d&sort=relevance&t=month", endpoint, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.UserAgent)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("reddit: %s: %s", resp.Status, body)
	}
	var raw struct {
		Data struct {
			Children []struct {
				Data struct {
					Title       string  `json:"title"`
					Permalink   string  `json:"permalink"`
					Subreddit   string  `json:"subreddit"`
					Score       float64 `json:"score"`
					NumComments int     `json:"num_comments"`
					Selftext    string  `json:"selftext"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []Result
	for i, c := range raw.Data.Children {
		if i >= limit {
			break
		}
		d := c.Data
		snippet := d.Selftext
		if len(snippet) > 280 {
			snippet = snippet[:280]
		}
		out = append(out, Result{
			Title:        d.Title,
			URL:          "https://www.reddit.com" + d.Permalink,
			Snippet:      strings.TrimSpace(snippet),
			Kind:         KindForum,
			Engagement:   d.Score,
			Subreddit:    d.Subreddit,
			CommentCount: d.NumComments,
		})
	}
	return out, nil
}
