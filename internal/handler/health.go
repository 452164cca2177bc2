package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports process liveness for load balancers and monitors.  It does
// not touch the databases; a tenant pool outage should drain traffic through
// request errors, not flap the whole instance out of rotation.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
