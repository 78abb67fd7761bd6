// Package v1 provides the HTTP handlers for the discussion engine.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/trialogue/internal/service"
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

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Thread API
	e.POST("/v1/threads", h.CreateThread)
	e.GET("/v1/threads", h.ListThreads)
	e.GET("/v1/threads/:thread_id", h.GetThread)
	e.DELETE("/v1/threads/:thread_id", h.DeleteThread)
	e.POST("/v1/threads/:thread_id/title", h.GenerateTitle)

	// Single model invocation
	e.POST("/v1/chat", h.Chat)

	// Discussion driver API
	e.POST("/v1/discussions", h.StartDiscussion)
	e.POST("/v1/discussions/:thread_id/continue", h.ContinueDiscussion)
	e.POST("/v1/discussions/:thread_id/intervene", h.InterveneDiscussion)
	e.POST("/v1/discussions/:thread_id/exit", h.ExitDiscussion)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
