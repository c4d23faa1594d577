// Package research implements the aggregation pipeline: fan out to the
// enabled search backends under per-source timeout budgets, merge and dedup
// the web-like results, optionally enrich the narrative with scraped page
// content, and render everything into one formatted brief.
package research

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brieflyhq/briefly/internal/quota"
	"github.com/brieflyhq/briefly/internal/scrape"
	"github.com/brieflyhq/briefly/internal/search"
)

const (
	// MaxTopicLen bounds the inbound topic, counted in characters,
	// not bytes.
	MaxTopicLen = 200

	// MaxMergedWebResults caps the merged AI-search + web-search list.
	MaxMergedWebResults = 12

	// MaxEnrichPages caps how many merged results the enrichment stage
	// will try to scrape.
	MaxEnrichPages = 5

	// PageTextBudget caps extracted page text fed into the rewrite prompt.
	// Five pages at this budget keep the prompt within a small, predictable
	// token envelope regardless of what the pages contain.
	PageTextBudget = 3000

	// DefaultPerSourceLimit is how many results each backend is asked for.
	DefaultPerSourceLimit = 10
)

var (
	// ErrInvalidTopic rejects a missing, empty-after-trim, or over-length
	// topic before any quota or network work.
	ErrInvalidTopic = errors.New("topic must be 1-200 characters")

	// ErrNoResults means every enabled source returned zero results.
	ErrNoResults = errors.New("no results found for topic")
)

// Context is the in-flight aggregation state for one request.
type Context struct {
	Query     string
	Summary   string
	MergedWeb []search.Result
	Buckets   map[search.Kind][]search.Result
}

// Total counts results across the merged web list and the typed buckets.
func (c *Context) Total() int {
	n := len(c.MergedWeb)
	for kind, rs := range c.Buckets {
		if kind == search.KindAISummary || kind == search.KindWeb {
			continue // folded into MergedWeb
		}
		n += len(rs)
	}
	return n
}

// Request is the inbound research operation.
type Request struct {
	Topic    string
	Identity quota.Identity
	Enrich   bool
	Sources  []search.Kind // empty means every configured source
}

// Response is the success payload.
type Response struct {
	BriefID       string    `json:"brief_id,omitempty"`
	FormattedText string    `json:"formatted_text"`
	SourceCount   int       `json:"source_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Gate is the quota dependency. Check must pass strictly before any source
// adapter is invoked; Record runs only after the brief is persisted.
type Gate interface {
	Check(ctx context.Context, id quota.Identity) (quota.State, error)
	Record(ctx context.Context, id quota.Identity) error
}

// Completer is the text-generation dependency for the enrichment rewrite.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// BriefRecord is what gets persisted for a successful run.
type BriefRecord struct {
	Identity    string
	Topic       string
	Formatted   string
	Sources     []search.Result
	SourceCount int
}

// BriefStore persists finished briefs.
type BriefStore interface {
	SaveBrief(ctx context.Context, rec BriefRecord) (id string, createdAt time.Time, err error)
}

// Service wires the pipeline stages together.
type Service struct {
	Adapters       map[search.Kind]search.Adapter
	Budgets        map[search.Kind]time.Duration
	PerSourceLimit int

	Gate    Gate           // nil disables quota enforcement (scheduler, CLI)
	Store   BriefStore     // nil disables persistence
	Fetcher scrape.Fetcher // nil disables enrichment
	LLM     Completer      // nil disables enrichment

	Logger *log.Logger
}

func (s *Service) logger() *log.Logger {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	return s.Logger
}

func (s *Service) perSourceLimit() int {
	if s.PerSourceLimit > 0 {
		return s.PerSourceLimit
	}
	return DefaultPerSourceLimit
}

// Run executes one research request end to end. The only failures it
// returns are ErrInvalidTopic, *quota.ExceededError, ErrNoResults and
// storage errors; individual source or enrichment failures are absorbed.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" || utf8.RuneCountInString(topic) > MaxTopicLen {
		runsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidTopic
	}

	if s.Gate != nil {
		if _, err := s.Gate.Check(ctx, req.Identity); err != nil {
			var exceeded *quota.ExceededError
			if errors.As(err, &exceeded) {
				runsTotal.WithLabelValues("quota_exceeded").Inc()
			}
			return nil, err
		}
	}

	rc := s.aggregate(ctx, topic, req.Sources)
	if rc.Total() == 0 && rc.Summary == "" {
		runsTotal.WithLabelValues("no_results").Inc()
		return nil, ErrNoResults
	}

	if req.Enrich {
		rc.Summary = s.enrich(ctx, rc.Summary, rc.MergedWeb)
	}

	formatted := Format(rc)
	resp := &Response{
		FormattedText: formatted,
		SourceCount:   rc.Total(),
		CreatedAt:     time.Now().UTC(),
	}

	if s.Store != nil {
		id, createdAt, err := s.Store.SaveBrief(ctx, BriefRecord{
			Identity:    req.Identity.Key(),
			Topic:       topic,
			Formatted:   formatted,
			Sources:     allResults(rc),
			SourceCount: rc.Total(),
		})
		if err != nil {
			return nil, err
		}
		resp.BriefID = id
		resp.CreatedAt = createdAt
		if s.Gate != nil {
			// Usage debits only after the brief landed; a failed pipeline
			// never consumes quota.
			if err := s.Gate.Record(ctx, req.Identity); err != nil {
				s.logger().Printf("usage record failed for %s: %v", req.Identity.Key(), err)
			}
		}
	}

	runsTotal.WithLabelValues("ok").Inc()
	return resp, nil
}

func allResults(rc *Context) []search.Result {
	out := make([]search.Result, 0, rc.Total())
	out = append(out, rc.MergedWeb...)
	for _, kind := range []search.Kind{search.KindForum, search.KindLinkAggregator, search.KindVideo} {
		out = append(out, rc.Buckets[kind]...)
	}
	return out
}
