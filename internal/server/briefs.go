package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/brieflyhq/briefly/internal/briefindex"
	"github.com/brieflyhq/briefly/internal/quota"
	"github.com/brieflyhq/briefly/internal/runtime"
	"github.com/brieflyhq/briefly/internal/store"
)

// BriefsHandler serves saved research history. Anonymous visitors see
// briefs keyed by their fingerprint or IP, signed-in users by account.
type BriefsHandler struct {
	Store  *store.Store
	Index  *briefindex.Index
	Secret []byte
}

func (h *BriefsHandler) Register(g *echo.Group) {
	g.Use(runtime.EchoOptionalAuthMiddleware(h.Secret))
	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

func identityKey(c echo.Context) string {
	id := quota.Identity{
		Fingerprint: c.Request().Header.Get("X-Client-Fingerprint"),
		IP:          c.RealIP(),
	}
	if sub, ok := runtime.SubjectFromContext(c.Request().Context()); ok {
		id.AccountID = sub
	}
	return id.Key()
}

func (h *BriefsHandler) list(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.Store.ListBriefs(c.Request().Context(), identityKey(c), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []store.Brief{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *BriefsHandler) get(c echo.Context) error {
	b, err := h.Store.GetBrief(c.Request().Context(), c.Param("id"), identityKey(c))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "brief not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BriefsHandler) delete(c echo.Context) error {
	id := c.Param("id")
	err := h.Store.DeleteBrief(c.Request().Context(), id, identityKey(c))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "brief not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.Index != nil {
		_ = h.Index.Delete(id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BriefsHandler) search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	k, _ := strconv.Atoi(c.QueryParam("limit"))
	if k <= 0 {
		k = 10
	}
	hits, err := h.Index.Search(identityKey(c), q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hits == nil {
		hits = []briefindex.Hit{}
	}
	return c.JSON(http.StatusOK, hits)
}
