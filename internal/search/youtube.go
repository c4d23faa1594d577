package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const youtubeEndpoint = "https://www.googleapis.com/youtube/v3/search"

// YouTube is the video-search backend, using the Data API v3 search list.
type YouTube struct {
	APIKey   string
	Client   *http.Client
	Endpoint string // overridable for tests
}

func (y *YouTube) Kind() Kind { return KindVideo }

// Search queries the YouTube Data API for videos ordered by relevance.
// https://developers.google.com/youtube/v3/docs/search/list
func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	endpoint := y.Endpoint
	if endpoint == "" {
		endpoint = youtubeEndpoint
	}
	u := fmt.Sprintf("%s?part=snippet&type=video&q=%s&maxResults=%d&key=%s",
		endpoint, url.QueryEscape(query), limit, url.QueryEscape(y.APIKey))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("youtube: %s: %s", resp.Status, body)
	}
	var raw struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				Description  string `json:"description"`
				ChannelTitle string `json:"channelTitle"`
				PublishedAt  string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []Result
	for i, it := range raw.Items {
		if i >= limit {
			break
		}
		out = append(out, Result{
			Title:       it.Snippet.Title,
			URL:         "https://www.youtube.com/watch?v=" + it.ID.VideoID,
			Snippet:     it.Snippet.Description,
			Kind:        KindVideo,
			Channel:     it.Snippet.ChannelTitle,
			PublishedAt: it.Snippet.PublishedAt,
		})
	}
	return out, nil
}
