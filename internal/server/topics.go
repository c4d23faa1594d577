package server

import (
	"errors"
	"net/http"

	"github.com/gorhill/cronexpr"
	"github.com/labstack/echo/v4"

	"github.com/brieflyhq/briefly/internal/runtime"
	"github.com/brieflyhq/briefly/internal/store"
)

// TopicsHandler manages tracked topics that the scheduler re-runs.
// Requires a signed-in account: anonymous identities cannot schedule.
type TopicsHandler struct {
	Store  *store.Store
	Secret []byte
}

func (h *TopicsHandler) Register(g *echo.Group) {
	g.Use(runtime.EchoAuthMiddleware(h.Secret))
	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("/:id", h.delete)
}

func (h *TopicsHandler) list(c echo.Context) error {
	userID := c.Get("user_id").(string)
	items, err := h.Store.ListTopics(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []store.Topic{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *TopicsHandler) create(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req TopicCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	if req.ScheduleCron == "" {
		req.ScheduleCron = "@daily"
	}
	if req.ScheduleCron != "@daily" && req.ScheduleCron != "@hourly" {
		if _, err := cronexpr.Parse(req.ScheduleCron); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid cron expression")
		}
	}
	id, err := h.Store.CreateTopic(c.Request().Context(), userID, req.Query, req.ScheduleCron, req.Enrich)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *TopicsHandler) delete(c echo.Context) error {
	userID := c.Get("user_id").(string)
	err := h.Store.DeleteTopic(c.Request().Context(), c.Param("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "topic not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
