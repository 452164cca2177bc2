package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/snapshot"
)

// IdentityHandler serves identity resolution, snapshot reconciliation and
// the access/buyer queries derived from the ledger.
type IdentityHandler struct {
	Sites Sites
}

// Reconcile handles POST /v1/sites/:site/identities/reconcile.  The body is
// one remote snapshot; the response carries the merged identity and a
// summary of what changed.  Item-level integrity errors do not fail the
// request, they are reported in the summary.
func (h *IdentityHandler) Reconcile(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	var snap snapshot.User
	if err := c.Bind(&snap); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if snap.ID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "snapshot id is required"})
	}
	identity, report, err := rt.Reconciler.ReconcileIdentity(c.Request().Context(), &snap)
	if err != nil {
		return writeError(c, err)
	}
	skipped := make([]string, 0, len(report.ItemErrors))
	for _, e := range report.ItemErrors {
		skipped = append(skipped, e.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"identity": identity,
		"session":  report.SessionID,
		"created":  report.Created,
		"updated":  report.Updated,
		"media":    report.Media,
		"skipped":  skipped,
	})
}

// Get handles GET /v1/sites/:site/identities/:ref.  The reference is either
// a numeric id or a username; usernames also match historical aliases.
func (h *IdentityHandler) Get(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	ref := c.Param("ref")
	resolver := rt.Reconciler.Resolver()
	ctx := c.Request().Context()
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		identity, err := resolver.ResolveByID(ctx, id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, identity)
	}
	identity, err := resolver.ResolveByName(ctx, ref)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, identity)
}

// Buyers handles GET /v1/sites/:site/identities/:id/buyers.  Optional query
// parameters active_credential and active_subscription narrow the result.
func (h *IdentityHandler) Buyers(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid identity id"})
	}
	filter := engine.BuyerFilter{
		ActiveCredential:   c.QueryParam("active_credential") == "true",
		ActiveSubscription: c.QueryParam("active_subscription") == "true",
	}
	buyers, err := rt.Ledger.FindBuyers(c.Request().Context(), id, filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"buyers": buyers})
}

// PaidMedia handles GET /v1/sites/:site/identities/:id/paid-media and lists
// the archived non-preview media hanging off the identity's paid content.
func (h *IdentityHandler) PaidMedia(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid identity id"})
	}
	media, err := rt.Store.Media().PaidMedia(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"media": media})
}

// MarkDownloaded handles POST /v1/sites/:site/identities/:id/downloaded and
// stamps the identity (and the subscriber's edge when given) with the time
// a download run finished.
func (h *IdentityHandler) MarkDownloaded(c echo.Context) error {
	rt, ok := h.Sites.site(c)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid identity id"})
	}
	var body struct {
		SubscriberID int64 `json:"subscriber_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := rt.Ledger.MarkDownloaded(c.Request().Context(), id, body.SubscriberID, timeNow()); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
