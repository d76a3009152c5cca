package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListAgents lists the project's agents for the selector.
// GET /v1/agents?refresh=1
func (h *Handler) ListAgents(c echo.Context) error {
	ctx := c.Request().Context()
	refresh := c.QueryParam("refresh") != ""

	agents, err := h.service.ListAgents(ctx, refresh)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to list agents: " + err.Error()})
	}
	if len(agents) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no agents found in this project"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": agents,
	})
}
