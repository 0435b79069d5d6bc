// Package v1 provides the HTTP handlers of the chat API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Habibullahdevv/ai-native-book/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the API routes on g. Chat endpoints are wrapped
// with limit, which may be nil.
func (h *Handler) RegisterRoutes(g *echo.Group, limit func() echo.MiddlewareFunc) {
	chatMiddleware := func() []echo.MiddlewareFunc {
		if limit == nil {
			return nil
		}
		return []echo.MiddlewareFunc{limit()}
	}

	// Sessions
	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions/:session_id", h.GetSession)
	g.DELETE("/sessions/:session_id", h.DeleteSession)

	// Chat, each endpoint with its own rate limit bucket
	g.POST("/chat", h.Chat, chatMiddleware()...)
	g.POST("/chat/selection", h.ChatSelection, chatMiddleware()...)
	g.POST("/chat/stream", h.ChatStream, chatMiddleware()...)

	g.GET("/health", h.Health)
}

// Root returns the service banner.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":    "AI-Native Book Chat API",
		"version": "1.0.0",
		"docs":    "/api/health",
	})
}

// Health returns the status of the service and its dependencies.
// GET /api/health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Health(c.Request().Context()))
}
