package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/repository"
)

// HostAuth returns an Echo middleware that authenticates a registered host
// using the X-Host-Identifier and X-Host-Secret headers.  The secret is
// verified against the bcrypt hash stored in the management schema.  On
// success the host is injected into the request context under "host" so
// handlers can attribute work to it via `c.Get("host")`.
func HostAuth(mgmt *repository.ManagementStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identifier := c.Request().Header.Get("X-Host-Identifier")
			secret := c.Request().Header.Get("X-Host-Secret")
			if identifier == "" || secret == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing host credentials"})
			}
			host, err := mgmt.AuthenticateHost(c.Request().Context(), identifier, secret)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "host lookup failed"})
			}
			if host == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid host credentials"})
			}
			c.Set("host", host)
			return next(c)
		}
	}
}

// HostFromContext returns the authenticated host stored by HostAuth, or nil
// when the route is not host-authenticated.
func HostFromContext(c echo.Context) *model.Host {
	if h, ok := c.Get("host").(*model.Host); ok {
		return h
	}
	return nil
}
