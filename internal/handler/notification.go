package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// NotificationHandler serves undelivered notifications to delivery bots and
// records their progress.
type NotificationHandler struct {
	Sites Sites
}

// Pending handles GET /v1/sites/:site/notifications.  The channel query
// parameter selects the delivery channel ("discord" or "telegram"); page
// walks through older entries.
func (h *NotificationHandler) Pending(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	channel := c.QueryParam("channel")
	if channel == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "channel is required"})
	}
	page := 1
	if v := c.QueryParam("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	rows, err := rt.Notifier.Pending(c.Request().Context(), channel, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": rows})
}

// MarkSent handles POST /v1/sites/:site/notifications/:id/sent and flips
// the channel flag for one notification.
func (h *NotificationHandler) MarkSent(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	channel := c.QueryParam("channel")
	if channel == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "channel is required"})
	}
	if err := rt.Notifier.MarkDelivered(c.Request().Context(), id, channel); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
