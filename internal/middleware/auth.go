// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides the echo middleware of the auth API.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/luismartinez/auth-api/internal/models"
	"github.com/luismartinez/auth-api/internal/repository"
	"github.com/luismartinez/auth-api/internal/services/token"
)

// userContextKey is the echo context key the resolved user is stored
// under.
const userContextKey = "auth.user"

// UserLoader is an interface for resolving the user a session token
// references.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// RequireSession authenticates a request via its session token. The
// cookie takes precedence over the Authorization header. The resolved
// user is attached to the echo context for downstream handlers.
func RequireSession(tokens *token.Service, users UserLoader, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c, cookieName)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false,
					"message": "Access denied. No token provided.",
				})
			}

			userID, err := tokens.ParseSessionToken(raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]any{
					"success": false,
					"message": "Invalid token",
				})
			}

			user, err := users.GetUserByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return c.JSON(http.StatusNotFound, map[string]any{
						"success": false,
						"message": "User not found",
					})
				}
				return err
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user attached by
// RequireSession, or nil outside an authenticated request.
func CurrentUser(c echo.Context) *models.User {
	if user, ok := c.Get(userContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// tokenFromRequest extracts the session token from the cookie or, when
// absent, from a bearer Authorization header.
func tokenFromRequest(c echo.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
