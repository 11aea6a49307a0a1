package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"family-tasks/internal/service"
)

// ErrorResponse is the body of every non-2xx reply produced by a handler.
type ErrorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotInstance), errors.Is(err, service.ErrNotTemplate):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail maps a service error to a status code. Internal errors keep their
// cause for the request log but are not shown to the client.
func fail(err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return echo.NewHTTPError(status, ErrorResponse{Error: msg}).SetInternal(err)
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: msg})
}
