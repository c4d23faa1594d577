package research

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brieflyhq/briefly/internal/search"
)

// SourceError records which backend failed and why. It never escapes the
// coordinator; it exists so failures reach logs and metrics instead of
// vanishing inside the adapter.
type SourceError struct {
	Kind search.Kind
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

type sourceOutcome struct {
	kind    search.Kind
	answer  string
	results []search.Result
	err     *SourceError
}

// callWithTimeout races one adapter against its budget. The deadline context
// cancels the in-flight network request; expiry or any adapter error is
// reported as an outcome with zero results, never propagated.
func (s *Service) callWithTimeout(ctx context.Context, adapter search.Adapter, query string, budget time.Duration) sourceOutcome {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	out := sourceOutcome{kind: adapter.Kind()}
	start := time.Now()

	var err error
	if ans, ok := adapter.(search.Answerer); ok {
		out.answer, out.results, err = ans.SearchWithAnswer(ctx, query, s.perSourceLimit())
	} else {
		out.results, err = adapter.Search(ctx, query, s.perSourceLimit())
	}

	elapsed := time.Since(start)
	sourceLatency.WithLabelValues(string(out.kind)).Observe(elapsed.Seconds())
	if err != nil {
		out.answer, out.results = "", nil
		out.err = &SourceError{Kind: out.kind, Err: err}
		sourceRequests.WithLabelValues(string(out.kind), "error").Inc()
		return out
	}
	if len(out.results) == 0 && out.answer == "" {
		sourceRequests.WithLabelValues(string(out.kind), "empty").Inc()
	} else {
		sourceRequests.WithLabelValues(string(out.kind), "ok").Inc()
	}
	return out
}

// aggregate launches every enabled source concurrently and waits for all of
// them to settle. Wall clock is bounded by the slowest source's own budget;
// a source timing out or failing contributes nothing and cancels nobody else.
func (s *Service) aggregate(ctx context.Context, query string, kinds []search.Kind) *Context {
	enabled := s.enabledAdapters(kinds)

	var wg sync.WaitGroup
	outcomes := make(chan sourceOutcome, len(enabled))
	for _, adapter := range enabled {
		wg.Add(1)
		go func(a search.Adapter) {
			defer wg.Done()
			budget, ok := s.Budgets[a.Kind()]
			if !ok {
				budget = search.DefaultBudgets()[a.Kind()]
			}
			outcomes <- s.callWithTimeout(ctx, a, query, budget)
		}(adapter)
	}
	wg.Wait()
	close(outcomes)

	rc := &Context{Query: query, Buckets: make(map[search.Kind][]search.Result)}
	for out := range outcomes {
		if out.err != nil {
			s.logger().Printf("%v", out.err)
			continue
		}
		if out.answer != "" {
			rc.Summary = out.answer
		}
		if len(out.results) > 0 {
			rc.Buckets[out.kind] = out.results
		}
	}
	rc.MergedWeb = MergeWebResults(rc.Buckets[search.KindAISummary], rc.Buckets[search.KindWeb])
	return rc
}

func (s *Service) enabledAdapters(kinds []search.Kind) []search.Adapter {
	if len(kinds) == 0 {
		out := make([]search.Adapter, 0, len(s.Adapters))
		for _, a := range s.Adapters {
			out = append(out, a)
		}
		return out
	}
	var out []search.Adapter
	for _, k := range kinds {
		if a, ok := s.Adapters[k]; ok {
			out = append(out, a)
		}
	}
	return out
}
