package handler // handler package contains the HTTP handlers of the archive API

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/repository"
)

// SiteRuntime bundles the engine components of one tenant site.  The server
// builds one per configured site at startup; handlers resolve it from the
// :site path parameter.
type SiteRuntime struct {
	SiteID     int64
	Name       string
	Store      engine.Store
	Reconciler *engine.Reconciler
	Scheduler  *engine.Scheduler
	Notifier   *engine.Notifier
	Ledger     *engine.Ledger
}

// Sites maps the tenant database name to its runtime.
type Sites map[string]*SiteRuntime

// site resolves the :site path parameter into a runtime, writing a 404 when
// the site is unknown.  The second return value is false when the response
// has already been written.
func (s Sites) site(c echo.Context) (*SiteRuntime, bool) {
	rt, ok := s[c.Param("site")]
	if !ok {
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "unknown site"})
		return nil, false
	}
	return rt, true
}

func timeNow() time.Time { return time.Now().UTC() }

// writeError translates engine and repository failures into HTTP responses:
// missing rows become 404, integrity conflicts 409, everything else 500.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case engine.IsConflict(err):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
