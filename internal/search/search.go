package search

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Kind identifies one of the independent search backends.
type Kind string

const (
	KindAISummary      Kind = "ai_summary"
	KindWeb            Kind = "web"
	KindForum          Kind = "forum"
	KindLinkAggregator Kind = "link_aggregator"
	KindVideo          Kind = "video"
)

// Result is one hit from a single backend mapped into the common shape.
// Adapters return fully populated values; nothing mutates them afterwards.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Snippet    string  `json:"snippet"`
	Kind       Kind    `json:"kind"`
	Engagement float64 `json:"engagement"`

	// Kind-specific fields. Empty for kinds they don't apply to.
	Subreddit    string `json:"subreddit,omitempty"`
	CommentCount int    `json:"comment_count,omitempty"`
	Channel      string `json:"channel,omitempty"`
	PublishedAt  string `json:"published_at,omitempty"`
}

// Adapter wraps one external search provider behind a uniform call contract.
type Adapter interface {
	Kind() Kind
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Answerer is implemented by adapters whose provider returns an LLM-written
// answer alongside the cited results (the primary AI-search source).
type Answerer interface {
	SearchWithAnswer(ctx context.Context, query string, limit int) (answer string, results []Result, err error)
}

// Config carries provider credentials and shared HTTP settings.
type Config struct {
	TavilyAPIKey  string
	BraveAPIKey   string
	YouTubeAPIKey string
	UserAgent     string
	HTTPClient    *http.Client
}

func (c Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Config) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return "briefly/1.0 (+https://briefly.app)"
}

var ErrMissingCredential = errors.New("search: provider credential not configured")

// providerEntry is one row of the provider table: everything needed to stand
// up a backend lives here, so adding a provider is a single table edit.
type providerEntry struct {
	kind     Kind
	needsKey func(Config) bool
	build    func(Config) Adapter
}

var providers = []providerEntry{
	{KindAISummary, func(c Config) bool { return c.TavilyAPIKey == "" }, func(c Config) Adapter {
		return &Tavily{APIKey: c.TavilyAPIKey, Client: c.client()}
	}},
	{KindWeb, func(c Config) bool { return c.BraveAPIKey == "" }, func(c Config) Adapter {
		return &Brave{APIKey: c.BraveAPIKey, Client: c.client()}
	}},
	{KindForum, func(Config) bool { return false }, func(c Config) Adapter {
		return &Reddit{Client: c.client(), UserAgent: c.userAgent()}
	}},
	{KindLinkAggregator, func(Config) bool { return false }, func(c Config) Adapter {
		return &HackerNews{Client: c.client()}
	}},
	{KindVideo, func(c Config) bool { return c.YouTubeAPIKey == "" }, func(c Config) Adapter {
		return &YouTube{APIKey: c.YouTubeAPIKey, Client: c.client()}
	}},
}

// BuildAdapters instantiates one adapter per backend that has its credentials
// available. Keyless backends are always built.
func BuildAdapters(cfg Config) map[Kind]Adapter {
	out := make(map[Kind]Adapter, len(providers))
	for _, p := range providers {
		if p.needsKey(cfg) {
			continue
		}
		out[p.kind] = p.build(cfg)
	}
	return out
}

// DefaultBudgets returns the per-source timeout budgets. The primary
// AI-search source is the highest-value one and justifies the longest wait;
// the aggregator-style JSON APIs are fast and get small budgets.
func DefaultBudgets() map[Kind]time.Duration {
	return map[Kind]time.Duration{
		KindAISummary:      20 * time.Second,
		KindWeb:            8 * time.Second,
		KindForum:          5 * time.Second,
		KindLinkAggregator: 5 * time.Second,
		KindVideo:          8 * time.Second,
	}
}

// ParseKind maps a wire string onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.TrimSpace(strings.ToLower(s))) {
	case KindAISummary:
		return KindAISummary, true
	case KindWeb:
		return KindWeb, true
	case KindForum:
		return KindForum, true
	case KindLinkAggregator:
		return KindLinkAggregator, true
	case KindVideo:
		return KindVideo, true
	}
	return "", false
}
