// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the echo JSON handlers of the auth API.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/luismartinez/auth-api/internal/config"
	"github.com/luismartinez/auth-api/internal/services/auth"
)

// AuthHandlers contains handlers for the authentication routes.
type AuthHandlers struct {
	auth *auth.Service
	cfg  *config.Config
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(authService *auth.Service, cfg *config.Config) *AuthHandlers {
	return &AuthHandlers{
		auth: authService,
		cfg:  cfg,
	}
}

// Health reports service liveness.
func (h *AuthHandlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
