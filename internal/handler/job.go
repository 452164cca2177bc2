package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/middleware"
)

// JobHandler serves the per-site work queue.
type JobHandler struct {
	Sites Sites
}

// Enqueue handles POST /v1/sites/:site/jobs.  A job is unique per
// (user, category); enqueueing an existing one refreshes and reactivates it.
func (h *JobHandler) Enqueue(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	var body struct {
		UserID    int64  `json:"user_id"`
		Username  string `json:"username"`
		Category  string `json:"category"`
		ServerID  int64  `json:"server_id"`
		Priority  bool   `json:"priority"`
		Skippable bool   `json:"skippable"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.UserID == 0 || body.Category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and category are required"})
	}
	req := engine.JobRequest{
		SiteID:    rt.SiteID,
		UserID:    body.UserID,
		Username:  body.Username,
		Category:  body.Category,
		ServerID:  body.ServerID,
		Priority:  body.Priority,
		Skippable: body.Skippable,
	}
	if host := middleware.HostFromContext(c); host != nil {
		req.HostID = &host.ID
	}
	job, err := rt.Scheduler.EnqueueOrUpdate(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// List handles GET /v1/sites/:site/jobs and returns active jobs in dequeue
// order.  Optional filters: server_id, user_id, category, priority, page,
// limit.
func (h *JobHandler) List(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	var filter engine.JobFilter
	if v := c.QueryParam("server_id"); v != "" {
		filter.ServerID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.QueryParam("user_id"); v != "" {
		filter.UserID, _ = strconv.ParseInt(v, 10, 64)
	}
	filter.Category = c.QueryParam("category")
	if v := c.QueryParam("priority"); v != "" {
		p := v == "true"
		filter.Priority = &p
	}
	if v := c.QueryParam("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	jobs, err := rt.Scheduler.Queue(c.Request().Context(), rt.SiteID, filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"jobs": jobs})
}

// Complete handles POST /v1/sites/:site/jobs/:id/complete and soft-finishes
// the job.
func (h *JobHandler) Complete(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid job id"})
	}
	if err := rt.Scheduler.Complete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
