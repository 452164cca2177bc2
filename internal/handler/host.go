package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/repository"
)

// HostHandler serves host registration against the management schema.
type HostHandler struct {
	Management *repository.ManagementStore
	BcryptCost int
}

// Register handles POST /v1/hosts.  The response carries the generated
// secret exactly once; only its bcrypt hash is stored.
func (h *HostHandler) Register(c echo.Context) error {
	var body struct {
		Name       string `json:"name"`
		Identifier string `json:"identifier"`
		Source     string `json:"source"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Identifier = strings.TrimSpace(body.Identifier)
	if body.Name == "" || body.Identifier == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and identifier are required"})
	}
	host, secret, err := h.Management.RegisterHost(c.Request().Context(), body.Name, body.Identifier, body.Source, h.BcryptCost)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         host.ID,
		"name":       host.Name,
		"identifier": host.Identifier,
		"secret":     secret,
	})
}
