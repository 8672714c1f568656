// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/luismartinez/auth-api/internal/config"
	"github.com/luismartinez/auth-api/internal/database"
	"github.com/luismartinez/auth-api/internal/models"
	"github.com/luismartinez/auth-api/internal/repository"
	"github.com/luismartinez/auth-api/internal/services/token"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// TestAuthConfig returns a token configuration with the production
// default TTLs and a fixed test secret.
func TestAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:       "test-secret",
		SessionTTL:      7 * 24 * time.Hour,
		ResetTTL:        time.Hour,
		VerificationTTL: 24 * time.Hour,
		CookieName:      "token",
	}
}

// NewTokenService creates a token service with the test configuration.
func NewTokenService(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(TestAuthConfig())
	require.NoError(t, err)
	return svc
}

// NewTestUser creates a user with a bcrypt-hashed password.
func NewTestUser(t *testing.T, repo *repository.Repository, name, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// SentMail records a single dispatch through the FakeMailer.
type SentMail struct {
	Kind     string // verification, welcome, reset_request, reset_confirmation
	To       string
	Code     string
	Name     string
	ResetURL string
}

// FakeMailer implements email.Mailer and records every dispatch. Set
// Err to make all sends fail.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

func (m *FakeMailer) record(mail SentMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, mail)
	return nil
}

func (m *FakeMailer) SendVerification(_ context.Context, toEmail, code string) error {
	return m.record(SentMail{Kind: "verification", To: toEmail, Code: code})
}

func (m *FakeMailer) SendWelcome(_ context.Context, toEmail, name string) error {
	return m.record(SentMail{Kind: "welcome", To: toEmail, Name: name})
}

func (m *FakeMailer) SendPasswordResetRequest(_ context.Context, toEmail, resetURL string) error {
	return m.record(SentMail{Kind: "reset_request", To: toEmail, ResetURL: resetURL})
}

func (m *FakeMailer) SendPasswordResetConfirmation(_ context.Context, toEmail string) error {
	return m.record(SentMail{Kind: "reset_confirmation", To: toEmail})
}

// Last returns the most recent dispatch.
func (m *FakeMailer) Last(t *testing.T) SentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Sent)
	return m.Sent[len(m.Sent)-1]
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
