package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brieflyhq/briefly/internal/briefindex"
	"github.com/brieflyhq/briefly/internal/quota"
	"github.com/brieflyhq/briefly/internal/ratelimit"
	"github.com/brieflyhq/briefly/internal/research"
	"github.com/brieflyhq/briefly/internal/runtime"
	"github.com/brieflyhq/briefly/internal/search"
)

// ResearchHandler exposes the research pipeline and the quota readout.
// Both endpoints accept signed-in users and anonymous visitors.
type ResearchHandler struct {
	Service *research.Service
	Gate    *quota.Gate
	Index   *briefindex.Index
	Limiter *ratelimit.Limiter
	Secret  []byte
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.Use(runtime.EchoOptionalAuthMiddleware(h.Secret))
	g.POST("/research", h.research)
	g.GET("/quota", h.quota)
}

// identity resolves who is asking, preferring the authenticated account,
// then the browser fingerprint header, then the caller IP.
func (h *ResearchHandler) identity(c echo.Context) quota.Identity {
	id := quota.Identity{
		Fingerprint: c.Request().Header.Get("X-Client-Fingerprint"),
		IP:          c.RealIP(),
	}
	if sub, ok := runtime.SubjectFromContext(c.Request().Context()); ok {
		id.AccountID = sub
	}
	return id
}

func (h *ResearchHandler) research(c echo.Context) error {
	var req ResearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id := h.identity(c)

	if ok, err := h.Limiter.Allow(c.Request().Context(), id.Key()); err == nil && !ok {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded, slow down")
	}

	enrich := true
	if req.Enrich != nil {
		enrich = *req.Enrich
	}
	var kinds []search.Kind
	for _, s := range req.Sources {
		k, ok := search.ParseKind(s)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown source: "+s)
		}
		kinds = append(kinds, k)
	}

	resp, err := h.Service.Run(c.Request().Context(), research.Request{
		Topic:    req.Topic,
		Identity: id,
		Enrich:   enrich,
		Sources:  kinds,
	})
	if err != nil {
		var exceeded *quota.ExceededError
		switch {
		case errors.Is(err, research.ErrInvalidTopic):
			return echo.NewHTTPError(http.StatusBadRequest, "topic must be 1-200 characters")
		case errors.As(err, &exceeded):
			return c.JSON(http.StatusTooManyRequests, QuotaExceededResponse{
				Error: fmt.Sprintf("monthly research limit reached (%d of %d used)", exceeded.Used, exceeded.Limit),
				Used:  exceeded.Used,
				Limit: exceeded.Limit,
			})
		case errors.Is(err, research.ErrNoResults):
			return echo.NewHTTPError(http.StatusNotFound, "no results found for this topic")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if resp.BriefID != "" && h.Index != nil {
		if err := h.Index.Add(briefindex.Doc{
			BriefID:  resp.BriefID,
			Identity: id.Key(),
			Topic:    req.Topic,
			Text:     resp.FormattedText,
		}); err != nil {
			c.Logger().Warnf("brief index add failed: %v", err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ResearchHandler) quota(c echo.Context) error {
	st, err := h.Gate.Check(c.Request().Context(), h.identity(c))
	var exceeded *quota.ExceededError
	if err != nil && !errors.As(err, &exceeded) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, QuotaResponse{
		Used:      st.Used,
		Limit:     st.Limit(),
		Remaining: st.Remaining(),
	})
}
