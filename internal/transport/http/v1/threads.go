package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/trialogue/internal/domain"
	"github.com/xiaot623/trialogue/internal/service"
)

// CreateThread creates a new thread.
// POST /v1/threads
func (h *Handler) CreateThread(c echo.Context) error {
	ctx := c.Request().Context()

	thread, err := h.service.CreateThread(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, thread)
}

// ListThreads lists thread summaries, most recently updated first.
// GET /v1/threads
func (h *Handler) ListThreads(c echo.Context) error {
	ctx := c.Request().Context()

	threads, err := h.service.ListThreads(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if threads == nil {
		threads = []domain.Thread{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"threads": threads,
	})
}

// GetThread retrieves a thread with its turns.
// GET /v1/threads/:thread_id
func (h *Handler) GetThread(c echo.Context) error {
	ctx := c.Request().Context()
	threadID := c.Param("thread_id")

	detail, err := h.service.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, service.ErrThreadNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "thread not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if detail.Turns == nil {
		detail.Turns = []domain.Turn{}
	}
	return c.JSON(http.StatusOK, detail)
}

// DeleteThread deletes a thread.
// DELETE /v1/threads/:thread_id
func (h *Handler) DeleteThread(c echo.Context) error {
	ctx := c.Request().Context()
	threadID := c.Param("thread_id")

	if err := h.service.DeleteThread(ctx, threadID); err != nil {
		if errors.Is(err, service.ErrThreadNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "thread not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
}

// GenerateTitleRequest is the request to regenerate a thread title.
type GenerateTitleRequest struct {
	Messages []domain.Turn `json:"messages"`
}

// GenerateTitle regenerates a thread's title from the supplied turn log.
// POST /v1/threads/:thread_id/title
func (h *Handler) GenerateTitle(c echo.Context) error {
	ctx := c.Request().Context()
	threadID := c.Param("thread_id")

	var req GenerateTitleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages are required"})
	}

	thread, err := h.service.GenerateTitle(ctx, threadID, req.Messages)
	if err != nil {
		if errors.Is(err, service.ErrThreadNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "thread not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, thread)
}
