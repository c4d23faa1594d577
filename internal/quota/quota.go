package quota

import (
	"context"
	"fmt"
	"time"
)

// Identity carries the three ways a caller can be recognised. Resolution
// order is account id, then client fingerprint, then raw IP. An account and
// a fingerprint belonging to the same human are tracked independently.
type Identity struct {
	AccountID   string
	Fingerprint string
	IP          string
}

// Key returns the usage-accounting key for this identity.
func (i Identity) Key() string {
	if i.AccountID != "" {
		return i.AccountID
	}
	if i.Fingerprint != "" {
		return "fp:" + i.Fingerprint
	}
	return i.IP
}

// Anonymous reports whether the caller has no account.
func (i Identity) Anonymous() bool { return i.AccountID == "" }

// State is the derived quota position for one identity. Never stored.
type State struct {
	Used      int `json:"used"`
	BaseLimit int `json:"base_limit"`
	Bonus     int `json:"bonus"`
}

func (s State) Limit() int { return s.BaseLimit + s.Bonus }

func (s State) Remaining() int {
	if r := s.Limit() - s.Used; r > 0 {
		return r
	}
	return 0
}

// ExceededError is the typed rejection for a caller who has used up their
// allotment. It carries the numbers the UI needs to render "X of Y used".
type ExceededError struct {
	Used  int
	Limit int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d of %d used", e.Used, e.Limit)
}

// Store is the persistence contract the gate needs. Usage writes are
// append-only: one row per accepted request, no read-modify-write.
type Store interface {
	CountUsageSince(ctx context.Context, identity string, since time.Time) (int, error)
	BonusTotal(ctx context.Context, identity string) (int, error)
	AppendUsage(ctx context.Context, identity string) error
}

// Gate enforces the per-identity monthly allotment. Enforcement is advisory
// before work: concurrent requests can both read a slightly stale count,
// which is accepted because usage writes happen only after successful runs.
type Gate struct {
	Store     Store
	BaseLimit int
	Now       func() time.Time
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Check computes the caller's quota state and returns *ExceededError when
// used >= limit. It must run strictly before any paid search work.
func (g *Gate) Check(ctx context.Context, id Identity) (State, error) {
	key := id.Key()
	used, err := g.Store.CountUsageSince(ctx, key, MonthStart(g.now()))
	if err != nil {
		return State{}, fmt.Errorf("count usage: %w", err)
	}
	bonus, err := g.Store.BonusTotal(ctx, key)
	if err != nil {
		return State{}, fmt.Errorf("bonus total: %w", err)
	}
	st := State{Used: used, BaseLimit: g.BaseLimit, Bonus: bonus}
	if st.Used >= st.Limit() {
		return st, &ExceededError{Used: st.Used, Limit: st.Limit()}
	}
	return st, nil
}

// Record appends one usage row for the identity. Callers invoke it only
// after the research work has succeeded and its brief is persisted, so a
// failed pipeline never consumes quota.
func (g *Gate) Record(ctx context.Context, id Identity) error {
	return g.Store.AppendUsage(ctx, id.Key())
}

// MonthStart returns the start of t's calendar month in UTC, the billing
// window boundary for usage counting.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
