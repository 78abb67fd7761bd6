package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/trialogue/internal/domain"
	"github.com/xiaot623/trialogue/internal/service"
)

// Chat invokes a single model with the supplied message context.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages are required"})
	}

	resp, err := h.service.Chat(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownModel) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown model"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}
