// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/luismartinez/auth-api/internal/middleware"
)

// SignupRequest is the request body for account registration.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new account and sets the session cookie.
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request"})
	}

	user, sessionToken, err := h.auth.Signup(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	h.setSessionCookie(c, sessionToken)

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "User created successfully",
		"user":    user,
	})
}

// LoginRequest is the request body for credential login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and returns the user plus a fresh session token,
// also delivered as a cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request"})
	}

	user, sessionToken, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	h.setSessionCookie(c, sessionToken)

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"user":    user,
		"token":   sessionToken,
	})
}

// Logout clears the session cookie. Previously issued tokens stay
// cryptographically valid until their TTL runs out; there is no
// server-side session state to invalidate.
func (h *AuthHandlers) Logout(c echo.Context) error {
	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// VerifyEmailRequest is the request body for email verification.
type VerifyEmailRequest struct {
	Code string `json:"code"`
}

// VerifyEmail consumes a verification code.
func (h *AuthHandlers) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request"})
	}

	user, err := h.auth.VerifyEmail(c.Request().Context(), req.Code)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Email verified successfully",
		"user":    user,
	})
}

// ResendVerificationEmail re-sends the verification code to the
// authenticated user.
func (h *AuthHandlers) ResendVerificationEmail(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]any{"success": false, "message": "No user found"})
	}

	if err := h.auth.ResendVerification(c.Request().Context(), user); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Verification email sent successfully",
	})
}

// ForgotPasswordRequest is the request body for the recovery flow.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword mints a reset token and mails the reset link.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request"})
	}

	if err := h.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset email sent successfully",
	})
}

// ResetPasswordRequest is the request body for completing a reset.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ResetPassword completes the recovery flow with the token from the URL.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request"})
	}

	if err := h.auth.ResetPassword(c.Request().Context(), c.Param("token"), req.NewPassword); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successfully",
	})
}

// Me returns the authenticated user.
func (h *AuthHandlers) Me(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]any{"success": false, "message": "No user found"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}
