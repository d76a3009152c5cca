// Package v1 provides the HTTP handlers for the control panel API.
package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/agentpanel/agentpanel/internal/hub"
	"github.com/agentpanel/agentpanel/internal/service"
)

// sessionCookie identifies a browser session across requests.
const sessionCookie = "panel_session"

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, h *hub.Hub) *Handler {
	return &Handler{
		service: svc,
		hub:     h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The panel is same-origin; CORS middleware gates the rest.
				return true
			},
		},
	}
}

// RegisterRoutes registers the panel routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/agents", h.ListAgents)
	e.GET("/v1/agents/:agent_id/files", h.ListAgentFiles)
	e.POST("/v1/agents/:agent_id/files", h.UploadFile)
	e.DELETE("/v1/agents/:agent_id/files/:file_id", h.DeleteAgentFile)

	e.POST("/v1/threads", h.NewThread)
	e.POST("/v1/runs", h.Ask)
	e.GET("/v1/logs", h.GetLogs)

	e.GET("/ws", h.HandleWebSocket)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// sessionID reads the session cookie, minting one on first contact, and
// makes sure the session row exists.
func (h *Handler) sessionID(c echo.Context) (string, error) {
	var id string
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		id = cookie.Value
	} else {
		id = uuid.New().String()
		c.SetCookie(&http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	if _, err := h.service.Session(c.Request().Context(), id); err != nil {
		return "", err
	}
	return id, nil
}
