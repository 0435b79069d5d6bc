package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// sseWriter writes stream events as Server-Sent Events. Headers go out
// with the first event, so errors returned before it can still be answered
// with a JSON status.
type sseWriter struct {
	c       echo.Context
	flusher http.Flusher
	started bool
}

func (w *sseWriter) emit(event domain.StreamEvent) error {
	if !w.started {
		header := w.c.Response().Header()
		header.Set(echo.HeaderContentType, "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		header.Set("X-Accel-Buffering", "no")
		w.c.Response().WriteHeader(http.StatusOK)
		w.started = true
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// ChatStream answers a message as an SSE stream of token events ending
// with a done or error event.
// POST /api/chat/stream
func (h *Handler) ChatStream(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "streaming not supported"})
	}

	w := &sseWriter{c: c, flusher: flusher}
	err := h.service.RespondStreamed(c.Request().Context(), req, w.emit)
	if err == nil {
		return nil
	}
	if !w.started {
		return writeError(c, err)
	}
	// The client went away mid-stream; there is nobody left to answer.
	return nil
}
