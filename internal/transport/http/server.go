// Package http provides the HTTP server for the control panel.
package http

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/agentpanel/agentpanel/internal/hub"
	"github.com/agentpanel/agentpanel/internal/service"
	v1 "github.com/agentpanel/agentpanel/internal/transport/http/v1"
)

//go:embed web
var webFS embed.FS

// NewServer creates and configures the panel's HTTP server: the JSON API,
// the live-log websocket and the embedded browser UI.
func NewServer(svc *service.Service, h *hub.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	handler := v1.NewHandler(svc, h)
	handler.RegisterRoutes(e)

	// Browser UI
	web, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	e.GET("/", echo.WrapHandler(http.FileServer(http.FS(web))))

	return e
}
