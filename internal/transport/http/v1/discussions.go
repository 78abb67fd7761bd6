package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/trialogue/internal/engine"
	"github.com/xiaot623/trialogue/internal/service"
)

// StartDiscussionRequest is the request to submit user text to a session.
type StartDiscussionRequest struct {
	ThreadID string      `json:"thread_id,omitempty"`
	Content  string      `json:"content"`
	Mode     engine.Mode `json:"mode,omitempty"`
}

// StartDiscussion submits user text and runs the turn cycle: one reply in
// action mode, a full round in auto mode.
// POST /v1/discussions
func (h *Handler) StartDiscussion(c echo.Context) error {
	ctx := c.Request().Context()

	var req StartDiscussionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}
	if req.Mode != "" && req.Mode != engine.ModeAction && req.Mode != engine.ModeAuto {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown mode"})
	}

	result, err := h.service.StartDiscussion(ctx, req.ThreadID, req.Content, req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrThreadNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "thread not found"})
		case errors.Is(err, service.ErrSubmissionBlocked):
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "submission blocked by policy"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// ContinueDiscussion lets the next speaker reply in an action-mode session.
// POST /v1/discussions/:thread_id/continue
func (h *Handler) ContinueDiscussion(c echo.Context) error {
	ctx := c.Request().Context()
	threadID := c.Param("thread_id")

	result, err := h.service.ContinueDiscussion(ctx, threadID)
	if err != nil {
		if errors.Is(err, engine.ErrNoPendingDiscussion) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// InterveneDiscussion ends automatic cycling and gives the floor back to the
// user.
// POST /v1/discussions/:thread_id/intervene
func (h *Handler) InterveneDiscussion(c echo.Context) error {
	threadID := c.Param("thread_id")

	if err := h.service.InterveneDiscussion(threadID); err != nil {
		if errors.Is(err, engine.ErrNoPendingDiscussion) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"state": string(engine.StateIdle)})
}

// ExitDiscussion terminates the cycle without further replies.
// POST /v1/discussions/:thread_id/exit
func (h *Handler) ExitDiscussion(c echo.Context) error {
	threadID := c.Param("thread_id")

	if err := h.service.ExitDiscussion(threadID); err != nil {
		if errors.Is(err, engine.ErrNoPendingDiscussion) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"state": string(engine.StateIdle)})
}
