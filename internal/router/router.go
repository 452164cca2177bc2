package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/handler"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/middleware"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterSites registers the per-site archive endpoints: snapshot
// reconciliation, identity lookups, the ledger queries and the notification
// delivery feed.  The :site path parameter selects the tenant.
func RegisterSites(e *echo.Echo, sites handler.Sites) {
	identities := &handler.IdentityHandler{Sites: sites}
	notifications := &handler.NotificationHandler{Sites: sites}

	g := e.Group("/v1/sites/:site")
	g.POST("/identities/reconcile", identities.Reconcile)
	g.GET("/identities/:ref", identities.Get)
	g.GET("/identities/:id/buyers", identities.Buyers)
	g.GET("/identities/:id/paid-media", identities.PaidMedia)
	g.POST("/identities/:id/downloaded", identities.MarkDownloaded)

	g.GET("/notifications", notifications.Pending)
	g.POST("/notifications/:id/sent", notifications.MarkSent)
}

// RegisterJobs registers the work-queue endpoints.  Mutating routes require
// host authentication so queue changes are attributable to a registered
// host; reading the queue is open.
func RegisterJobs(e *echo.Echo, sites handler.Sites, mgmt *repository.ManagementStore) {
	jobs := &handler.JobHandler{Sites: sites}

	g := e.Group("/v1/sites/:site")
	g.GET("/jobs", jobs.List)

	authed := e.Group("/v1/sites/:site")
	authed.Use(middleware.HostAuth(mgmt))
	authed.POST("/jobs", jobs.Enqueue)
	authed.POST("/jobs/:id/complete", jobs.Complete)
}

// RegisterManagement registers the cross-tenant management endpoints.
func RegisterManagement(e *echo.Echo, mgmt *repository.ManagementStore, bcryptCost int) {
	hosts := &handler.HostHandler{Management: mgmt, BcryptCost: bcryptCost}
	e.POST("/v1/hosts", hosts.Register)
}
