package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetLogs returns the session's activity log.
// GET /v1/logs?limit=200
func (h *Handler) GetLogs(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	logs, err := h.service.Logs(ctx, sessionID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"logs": logs,
	})
}
