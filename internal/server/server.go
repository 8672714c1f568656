// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the auth API together and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"github.com/luismartinez/auth-api/internal/config"
	"github.com/luismartinez/auth-api/internal/database"
	"github.com/luismartinez/auth-api/internal/handlers"
	"github.com/luismartinez/auth-api/internal/middleware"
	"github.com/luismartinez/auth-api/internal/repository"
	"github.com/luismartinez/auth-api/internal/services/auth"
	"github.com/luismartinez/auth-api/internal/services/email"
	"github.com/luismartinez/auth-api/internal/services/token"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Services
	repo := repository.New(db)

	tokens, err := token.NewService(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	mailer, err := email.NewService(&cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to create email service: %w", err)
	}

	authService := auth.NewService(repo, tokens, mailer, cfg.Server.ClientURL)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e)
	setupRoutes(e, cfg, repo, tokens, authService)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, cfg *config.Config, repo *repository.Repository, tokens *token.Service, authService *auth.Service) {
	h := handlers.NewAuth(authService, cfg)
	requireSession := middleware.RequireSession(tokens, repo, cfg.Auth.CookieName)

	e.GET("/health", h.Health)

	api := e.Group("/api/auth")
	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.POST("/verify-email", h.VerifyEmail)
	api.POST("/forgot-password", h.ForgotPassword)
	api.POST("/reset-password/:token", h.ResetPassword)
	api.POST("/resend-verification-email", h.ResendVerificationEmail, requireSession)
	api.GET("/me", h.Me, requireSession)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
