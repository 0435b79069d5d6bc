package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// Chat answers a message with a grounded reply.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	return h.chat(c, false)
}

// ChatSelection answers a message about a passage the user selected.
// POST /api/chat/selection
func (h *Handler) ChatSelection(c echo.Context) error {
	return h.chat(c, true)
}

func (h *Handler) chat(c echo.Context, requireSelection bool) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.RequireSelection = requireSelection

	resp, err := h.service.Respond(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
