package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brieflyhq/briefly/config"
	"github.com/brieflyhq/briefly/internal/briefindex"
	"github.com/brieflyhq/briefly/internal/quota"
	"github.com/brieflyhq/briefly/internal/ratelimit"
	"github.com/brieflyhq/briefly/internal/research"
	"github.com/brieflyhq/briefly/internal/runtime"
	"github.com/brieflyhq/briefly/internal/scrape"
	"github.com/brieflyhq/briefly/internal/search"
	"github.com/brieflyhq/briefly/internal/store"
	"github.com/brieflyhq/briefly/provider"
)

// Run boots the HTTP API and blocks until the listener stops.
func Run(cfg *config.Config, addr string) error {
	e := newEcho()

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	_ = Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0)

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Storage.Redis.Host != "" && cfg.Storage.Redis.Port != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
	}

	svc, err := buildResearchService(cfg, st)
	if err != nil {
		return err
	}

	idx, err := briefindex.New()
	if err != nil {
		return err
	}
	if err := rebuildIndex(ctx, st, idx); err != nil {
		log.Printf("brief index rebuild failed: %v", err)
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled && rdb != nil {
		limiter = &ratelimit.Limiter{Rdb: rdb, Limit: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window}
	}

	referrals := &quota.Referrals{Store: st, Bonus: cfg.Quota.ReferralBonus}

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	rh := &ResearchHandler{
		Service: svc,
		Gate:    svc.Gate.(*quota.Gate),
		Index:   idx,
		Limiter: limiter,
		Secret:  secret,
	}
	rh.Register(api)

	bh := &BriefsHandler{Store: st, Index: idx, Secret: secret}
	bh.Register(api.Group("/briefs"))

	refh := &ReferralHandler{Referrals: referrals, Secret: secret}
	refh.Register(api.Group("/referral"))

	th := &TopicsHandler{Store: st, Secret: secret}
	th.Register(api.Group("/topics"))

	sched := &Scheduler{
		Store: st,
		Stop:  make(chan struct{}),
		Rdb:   rdb,
		Run:   schedulerRunner(cfg, st, idx),
	}
	sched.Start()

	if addr == "" {
		addr = cfg.Server.Address
		if addr == "" {
			addr = ":10001"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the Echo instance with middleware and the unified
// JSON error handler shared by the real server and handler tests.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization", "X-Client-Fingerprint"},
		AllowCredentials: true,
	}))
	return e
}

// buildResearchService assembles the pipeline from config: search
// adapters for every configured credential, the quota gate, persistence
// and the optional enrichment pair.
func buildResearchService(cfg *config.Config, st *store.Store) (*research.Service, error) {
	adapters := search.BuildAdapters(search.Config{
		TavilyAPIKey:  cfg.Sources.TavilyAPIKey,
		BraveAPIKey:   cfg.Sources.BraveAPIKey,
		YouTubeAPIKey: cfg.Sources.YouTubeAPIKey,
		UserAgent:     cfg.Sources.UserAgent,
	})
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no search sources configured")
	}

	svc := &research.Service{
		Adapters:       adapters,
		Budgets:        search.DefaultBudgets(),
		PerSourceLimit: cfg.Research.PerSourceLimit,
		Gate:           &quota.Gate{Store: st, BaseLimit: cfg.Quota.BaseLimit},
		Store:          st,
		Logger:         log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags),
	}

	if cfg.Research.EnrichEnabled && cfg.LLM.APIKey != "" {
		fetcher, err := scrape.New(scrape.Kind(cfg.Research.FetcherKind), scrape.DefaultTimeout, scrape.MaxCharsDefault)
		if err != nil {
			return nil, err
		}
		llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), provider.Options{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, err
		}
		svc.Fetcher = fetcher
		svc.LLM = llm
	}
	return svc, nil
}

func rebuildIndex(ctx context.Context, st *store.Store, idx *briefindex.Index) error {
	briefs, err := st.AllBriefs(ctx)
	if err != nil {
		return err
	}
	for _, b := range briefs {
		if err := idx.Add(briefindex.Doc{
			BriefID:  b.ID,
			Identity: b.Identity,
			Topic:    b.Topic,
			Text:     b.FormattedText,
		}); err != nil {
			return err
		}
	}
	return nil
}

// schedulerRunner builds the run function used for tracked topics.
// Scheduled runs skip the quota gate but still append usage rows so the
// quota endpoint reflects real consumption.
func schedulerRunner(cfg *config.Config, st *store.Store, idx *briefindex.Index) func(ctx context.Context, t store.Topic) error {
	return func(ctx context.Context, t store.Topic) error {
		svc, err := buildResearchService(cfg, st)
		if err != nil {
			return err
		}
		svc.Gate = nil
		svc.Store = nil // persisted below with the topic id attached
		svc.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)

		resp, err := svc.Run(ctx, research.Request{
			Topic:    t.Query,
			Identity: quota.Identity{AccountID: t.UserID},
			Enrich:   t.Enrich && cfg.Research.EnrichEnabled,
		})
		if err != nil {
			return err
		}
		id, _, err := st.InsertBrief(ctx, store.Brief{
			Identity:      quota.Identity{AccountID: t.UserID}.Key(),
			TopicID:       t.ID,
			Topic:         t.Query,
			FormattedText: resp.FormattedText,
			SourceCount:   resp.SourceCount,
		})
		if err != nil {
			return err
		}
		if err := st.AppendUsage(ctx, quota.Identity{AccountID: t.UserID}.Key()); err != nil {
			log.Printf("scheduled usage record failed: %v", err)
		}
		return idx.Add(briefindex.Doc{
			BriefID:  id,
			Identity: quota.Identity{AccountID: t.UserID}.Key(),
			Topic:    t.Query,
			Text:     resp.FormattedText,
		})
	}
}
