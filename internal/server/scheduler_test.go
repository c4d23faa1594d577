package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brieflyhq/briefly/internal/store"
)

func TestRunLockedHoldsLockUntilRunFinishes(t *testing.T) {
	var runDone atomic.Bool
	released := make(chan struct{})

	s := &Scheduler{
		Run: func(ctx context.Context, topic store.Topic) error {
			time.Sleep(50 * time.Millisecond)
			runDone.Store(true)
			return nil
		},
	}
	go s.runLocked(context.Background(), store.Topic{ID: "t1"}, func() {
		if !runDone.Load() {
			t.Error("lock released before the run finished")
		}
		close(released)
	})

	select {
	case <-released:
	case <-time.After(3 * time.Second):
		t.Fatal("lock never released")
	}
}

func TestIsDue(t *testing.T) {
	now := time.Now()
	hourAgo := now.Add(-90 * time.Minute)
	dayAgo := now.Add(-25 * time.Hour)
	justNow := now.Add(-5 * time.Minute)

	cases := []struct {
		name string
		cron string
		last *time.Time
		want bool
	}{
		{"never run is due", "@daily", nil, true},
		{"daily not elapsed", "@daily", &hourAgo, false},
		{"daily elapsed", "@daily", &dayAgo, true},
		{"hourly elapsed", "@hourly", &hourAgo, true},
		{"hourly not elapsed", "@hourly", &justNow, false},
		{"cron expr elapsed", "0 * * * *", &dayAgo, true},
		{"invalid cron falls back to daily", "not-a-cron", &hourAgo, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDue(tc.cron, tc.last); got != tc.want {
				t.Fatalf("isDue(%q) = %v, want %v", tc.cron, got, tc.want)
			}
		})
	}
}
