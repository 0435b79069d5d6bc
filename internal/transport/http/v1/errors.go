package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindSessionNotFound:
		return http.StatusNotFound
	case domain.KindRetrievalUnavailable, domain.KindGenerationFailure, domain.KindPersistenceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody returns the client-facing body for err. Only validation and
// not-found messages are shown verbatim.
func ErrorBody(err error) domain.ErrorResponse {
	var e *domain.Error
	if errors.As(err, &e) && !e.Retryable() {
		return domain.ErrorResponse{Error: e.Message, Detail: e.Message, Retry: false}
	}
	return domain.ErrorResponse{Error: domain.MsgServiceUnavailable, Retry: true}
}

func writeError(c echo.Context, err error) error {
	return c.JSON(StatusOf(err), ErrorBody(err))
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: msg, Detail: msg})
}
