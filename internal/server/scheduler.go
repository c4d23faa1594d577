package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/brieflyhq/briefly/internal/store"
)

// Scheduler re-runs tracked topics on their cron schedules. A Redis
// SetNX lock keeps multiple instances from running the same topic.
type Scheduler struct {
	Store *store.Store
	Stop  chan struct{}
	Rdb   *redis.Client
	Run   func(ctx context.Context, t store.Topic) error
}

func (s *Scheduler) Start() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	topics, err := s.Store.ListAllTopics(ctx)
	if err != nil {
		return
	}
	for _, t := range topics {
		last, _ := s.Store.LatestBriefTime(ctx, t.ID)
		if !isDue(t.ScheduleCron, last) {
			continue
		}

		var release func()
		if s.Rdb != nil {
			lockKey := "sched:lock:" + t.ID
			ok, _ := s.Rdb.SetNX(ctx, lockKey, "1", 2*time.Minute).Result()
			if !ok {
				continue
			}
			release = func() { s.Rdb.Del(ctx, lockKey) }
		}

		go s.runLocked(ctx, t, release)
	}
}

// runLocked executes one scheduled run and releases the lock afterwards,
// so the lock covers the whole run and the TTL is only a crash backstop.
func (s *Scheduler) runLocked(ctx context.Context, topic store.Topic, release func()) {
	// jitter to avoid stampedes
	time.Sleep(time.Duration(250+int64(time.Now().UnixNano()%250)) * time.Millisecond)
	if err := s.Run(ctx, topic); err != nil {
		log.Printf("scheduled run for topic %s failed: %v", topic.ID, err)
	}
	if release != nil {
		release()
	}
}

// isDue determines if a topic with cronSpec should run now based on last run time.
// Supports "@daily", "@hourly", and standard 5-field cron expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat as @daily if invalid
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
