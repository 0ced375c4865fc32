package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/gateway"
	"github.com/meit-app/meit/internal/registration"
)

// statusOf maps a core error onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, registration.ErrNoParentMerchant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrUniqueViolation):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, gateway.ErrNetwork):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": kind, "message": ...}.  Internal errors do
// not leak their message.
func fail(c echo.Context, err error) error {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": gateway.KindOf(err), "message": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": msg})
}
