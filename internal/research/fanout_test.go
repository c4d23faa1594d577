package research

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brieflyhq/briefly/internal/search"
)

// fakeAdapter simulates one backend with configurable latency and outcome.
type fakeAdapter struct {
	kind    search.Kind
	delay   time.Duration
	results []search.Result
	answer  string
	err     error
	calls   int32
}

func (f *fakeAdapter) Kind() search.Kind { return f.kind }

func (f *fakeAdapter) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeAdapter) SearchWithAnswer(ctx context.Context, query string, limit int) (string, []search.Result, error) {
	results, err := f.Search(ctx, query, limit)
	return f.answer, results, err
}

func (f *fakeAdapter) callCount() int { return int(atomic.LoadInt32(&f.calls)) }

func newService(adapters map[search.Kind]search.Adapter, budgets map[search.Kind]time.Duration) *Service {
	return &Service{Adapters: adapters, Budgets: budgets}
}

func TestAggregateRunsSourcesConcurrently(t *testing.T) {
	t.Parallel()
	slow := &fakeAdapter{kind: search.KindWeb, delay: 250 * time.Millisecond,
		results: []search.Result{webResult(search.KindWeb, "https://w.example/1", "w")}}
	fast := &fakeAdapter{kind: search.KindForum, delay: 10 * time.Millisecond,
		results: []search.Result{webResult(search.KindForum, "https://f.example/1", "f")}}
	svc := newService(
		map[search.Kind]search.Adapter{search.KindWeb: slow, search.KindForum: fast},
		map[search.Kind]time.Duration{search.KindWeb: 2 * time.Second, search.KindForum: 2 * time.Second},
	)

	start := time.Now()
	rc := svc.aggregate(context.Background(), "q", nil)
	elapsed := time.Since(start)

	// Bounded by the slowest source, not the sum: 250ms + 10ms serialized
	// would be 260ms minimum; give generous headroom but stay well under 2x.
	if elapsed > 450*time.Millisecond {
		t.Fatalf("aggregate took %v; sources appear serialized", elapsed)
	}
	if rc.Total() != 2 {
		t.Fatalf("expected both sources' results, got %d", rc.Total())
	}
}

func TestAggregateTimeoutIsolatesOneSource(t *testing.T) {
	t.Parallel()
	stuck := &fakeAdapter{kind: search.KindLinkAggregator, delay: 2 * time.Second,
		results: []search.Result{webResult(search.KindLinkAggregator, "https://never.example", "x")}}
	healthy := &fakeAdapter{kind: search.KindWeb, delay: 20 * time.Millisecond,
		results: []search.Result{webResult(search.KindWeb, "https://w.example/1", "w")}}
	svc := newService(
		map[search.Kind]search.Adapter{search.KindLinkAggregator: stuck, search.KindWeb: healthy},
		map[search.Kind]time.Duration{search.KindLinkAggregator: 100 * time.Millisecond, search.KindWeb: time.Second},
	)

	start := time.Now()
	rc := svc.aggregate(context.Background(), "q", nil)
	elapsed := time.Since(start)

	if elapsed > 600*time.Millisecond {
		t.Fatalf("timed-out source stalled the coordinator: %v", elapsed)
	}
	if len(rc.Buckets[search.KindLinkAggregator]) != 0 {
		t.Fatal("timed-out source must contribute nothing")
	}
	if len(rc.MergedWeb) != 1 {
		t.Fatalf("healthy source must still deliver, got %d", len(rc.MergedWeb))
	}
}

func TestAggregateAbsorbsAdapterErrors(t *testing.T) {
	t.Parallel()
	broken := &fakeAdapter{kind: search.KindForum, err: errors.New("upstream 500")}
	healthy := &fakeAdapter{kind: search.KindWeb,
		results: []search.Result{webResult(search.KindWeb, "https://w.example/1", "w")}}
	svc := newService(
		map[search.Kind]search.Adapter{search.KindForum: broken, search.KindWeb: healthy},
		map[search.Kind]time.Duration{search.KindForum: time.Second, search.KindWeb: time.Second},
	)

	rc := svc.aggregate(context.Background(), "q", nil)
	if len(rc.Buckets[search.KindForum]) != 0 {
		t.Fatal("failed source must be treated as zero results")
	}
	if rc.Total() != 1 {
		t.Fatalf("expected only the healthy source's result, got %d", rc.Total())
	}
}

func TestAggregateHonorsEnabledKinds(t *testing.T) {
	t.Parallel()
	web := &fakeAdapter{kind: search.KindWeb,
		results: []search.Result{webResult(search.KindWeb, "https://w.example/1", "w")}}
	forum := &fakeAdapter{kind: search.KindForum,
		results: []search.Result{webResult(search.KindForum, "https://f.example/1", "f")}}
	svc := newService(
		map[search.Kind]search.Adapter{search.KindWeb: web, search.KindForum: forum},
		map[search.Kind]time.Duration{search.KindWeb: time.Second, search.KindForum: time.Second},
	)

	svc.aggregate(context.Background(), "q", []search.Kind{search.KindWeb})
	if forum.callCount() != 0 {
		t.Fatal("disabled source must not be invoked")
	}
	if web.callCount() != 1 {
		t.Fatalf("enabled source invoked %d times", web.callCount())
	}
}

func TestAggregateCollectsAnswer(t *testing.T) {
	t.Parallel()
	ai := &fakeAdapter{kind: search.KindAISummary, answer: "the summary",
		results: []search.Result{webResult(search.KindAISummary, "https://a.example/1", "a")}}
	svc := newService(
		map[search.Kind]search.Adapter{search.KindAISummary: ai},
		map[search.Kind]time.Duration{search.KindAISummary: time.Second},
	)
	rc := svc.aggregate(context.Background(), "q", nil)
	if rc.Summary != "the summary" {
		t.Fatalf("expected answer collected, got %q", rc.Summary)
	}
	if len(rc.MergedWeb) != 1 {
		t.Fatalf("cited links must land in the merged web list, got %d", len(rc.MergedWeb))
	}
}
