package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// CreateSession creates a new chat session.
// POST /api/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	// An empty body is a session without metadata.
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	session, err := h.service.CreateSession(c.Request().Context(), req.Metadata)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// GetSession returns a session with its messages.
// GET /api/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	result, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteSession deletes a session and its messages.
// DELETE /api/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.DeleteSession(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
