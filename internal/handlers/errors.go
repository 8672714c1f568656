// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/luismartinez/auth-api/internal/services/auth"
	"github.com/luismartinez/auth-api/internal/services/token"
)

// errorResponse translates service errors into the JSON error envelope.
// Client-caused failures map to 400, notification delivery failures to
// 500, everything unexpected to an opaque 500.
func errorResponse(c echo.Context, err error) error {
	var dispatchErr *auth.DispatchError
	if errors.As(err, &dispatchErr) {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Failed to send email",
		})
	}

	var passwordErr *auth.PasswordValidationError
	if errors.As(err, &passwordErr) {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": passwordErr.Error(),
		})
	}

	switch {
	case errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidOrExpiredCode),
		errors.Is(err, auth.ErrAlreadyVerified),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrTokenExpired):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": err.Error(),
		})
	}

	slog.Error("request_failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"success": false,
		"message": "Internal server error",
	})
}
