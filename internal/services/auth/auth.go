// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the account lifecycle: signup with email
// verification, login, and the password recovery flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/luismartinez/auth-api/internal/models"
	"github.com/luismartinez/auth-api/internal/repository"
	"github.com/luismartinez/auth-api/internal/services/email"
	"github.com/luismartinez/auth-api/internal/services/token"
)

var (
	ErrMissingFields = errors.New("all fields are required")
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrUserExists    = errors.New("user already exists")
	// ErrInvalidCredentials covers both unknown email and wrong
	// password. The two cases must stay indistinguishable to avoid
	// account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrExpiredCode covers both a wrong verification code and
	// an expired one; same anti-enumeration policy as login.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	ErrAlreadyVerified      = errors.New("email already verified")
)

// DispatchError marks a notification delivery failure. The state
// transition it follows has already been persisted by the time it is
// returned; callers surface it without rolling anything back.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return "notification dispatch failed: " + e.Err.Error()
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Service is the identity state machine. It consumes the credential
// store, the token service, and the notification dispatcher; all three
// are injected so tests can substitute them.
type Service struct {
	repo              *repository.Repository
	tokens            *token.Service
	mailer            email.Mailer
	clientURL         string
	passwordValidator *PasswordValidator
}

// NewService creates a new auth service. clientURL is the frontend base
// URL embedded in password reset links.
func NewService(repo *repository.Repository, tokens *token.Service, mailer email.Mailer, clientURL string) *Service {
	return &Service{
		repo:              repo,
		tokens:            tokens,
		mailer:            mailer,
		clientURL:         clientURL,
		passwordValidator: DefaultPasswordValidator(),
	}
}

// Signup registers a new unverified account, issues a session token and
// dispatches the verification email. The user record is persisted
// before the dispatch; a mail failure surfaces as DispatchError with
// the account already created.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.User, string, error) {
	if name == "" || email == "" || password == "" {
		return nil, "", ErrMissingFields
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", ErrInvalidEmail
	}

	validation := s.passwordValidator.Validate(password, email, name)
	if !validation.Valid {
		return nil, "", &PasswordValidationError{Errors: validation.Errors}
	}

	// Check if user already exists
	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	code, expiresAt, err := s.tokens.NewVerificationCode()
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Name:                  name,
		Email:                 email,
		PasswordHash:          string(passwordHash),
		VerificationToken:     &code,
		VerificationExpiresAt: &expiresAt,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Races with a concurrent signup collapse into the same
		// conflict answer as the pre-check.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrUserExists
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	sessionToken, err := s.tokens.NewSessionToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	slog.Info("signup_success", "user_id", user.ID, "email", email)

	if err := s.mailer.SendVerification(ctx, user.Email, code); err != nil {
		slog.Error("verification_email_failed", "user_id", user.ID, "error", err)
		return user, sessionToken, &DispatchError{Err: err}
	}

	return user, sessionToken, nil
}

// VerifyEmail consumes a verification code and flips the account to
// verified. The code is single use: both token fields are cleared on
// success, so a replay fails the lookup.
func (s *Service) VerifyEmail(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, ErrInvalidOrExpiredCode
	}

	user, err := s.repo.GetUserByVerificationToken(ctx, code, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, fmt.Errorf("failed to look up verification code: %w", err)
	}

	user.IsVerified = true
	user.VerificationToken = nil
	user.VerificationExpiresAt = nil

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("email_verified", "user_id", user.ID, "email", user.Email)

	if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
		slog.Error("welcome_email_failed", "user_id", user.ID, "error", err)
		return user, &DispatchError{Err: err}
	}

	return user, nil
}

// ResendVerification re-dispatches the verification email for an
// authenticated but unverified account. An expired code is replaced
// with a fresh one and persisted before sending; a still-valid code is
// resent unchanged.
func (s *Service) ResendVerification(ctx context.Context, user *models.User) error {
	if user.IsVerified || !user.HasPendingVerification() {
		return ErrAlreadyVerified
	}

	code := *user.VerificationToken
	if user.VerificationExpired(time.Now()) {
		fresh, expiresAt, err := s.tokens.NewVerificationCode()
		if err != nil {
			return err
		}

		user.VerificationToken = &fresh
		user.VerificationExpiresAt = &expiresAt
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		code = fresh

		slog.Info("verification_code_rotated", "user_id", user.ID)
	}

	if err := s.mailer.SendVerification(ctx, user.Email, code); err != nil {
		slog.Error("verification_email_failed", "user_id", user.ID, "error", err)
		return &DispatchError{Err: err}
	}

	return nil
}

// Login authenticates by email and password and issues a fresh session
// token. Unknown email and wrong password yield the identical error.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*models.User, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform a bcrypt comparison to
			// prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", emailAddr, "reason", "user_not_found")
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", emailAddr, "reason", "invalid_password")
		return nil, "", ErrInvalidCredentials
	}

	sessionToken, err := s.tokens.NewSessionToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to update last login: %w", err)
	}

	slog.Info("login_success", "user_id", user.ID, "email", emailAddr)
	return user, sessionToken, nil
}

// ForgotPassword starts the recovery flow: mint a reset token, persist
// it with its expiry, and mail the reset link. Unknown emails get the
// same rejection as a failed login.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	resetToken, err := s.tokens.NewResetToken(user.ID)
	if err != nil {
		return err
	}

	expiresAt := time.Now().UTC().Add(s.tokens.ResetTTL())
	user.ResetToken = &resetToken
	user.ResetExpiresAt = &expiresAt

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.clientURL, resetToken)

	slog.Info("password_reset_requested", "user_id", user.ID)

	if err := s.mailer.SendPasswordResetRequest(ctx, user.Email, resetURL); err != nil {
		slog.Error("reset_email_failed", "user_id", user.ID, "error", err)
		return &DispatchError{Err: err}
	}

	return nil
}

// ResetPassword completes the recovery flow. The token signature is
// checked first; the stored token must still be present and match the
// presented one (single use), and the stored expiry must not have
// passed. On success the password is replaced and the reset state
// cleared before the confirmation mail goes out.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	userID, err := s.tokens.ParseResetToken(rawToken)
	if err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return token.ErrInvalidToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	// A consumed or superseded token no longer matches the stored one.
	if user.ResetToken == nil || *user.ResetToken != rawToken {
		return token.ErrInvalidToken
	}
	if user.ResetExpiresAt == nil || time.Now().After(*user.ResetExpiresAt) {
		return token.ErrTokenExpired
	}

	validation := s.passwordValidator.Validate(newPassword, user.Email, user.Name)
	if !validation.Valid {
		return &PasswordValidationError{Errors: validation.Errors}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(passwordHash)
	user.ResetToken = nil
	user.ResetExpiresAt = nil

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("password_reset_success", "user_id", user.ID)

	if err := s.mailer.SendPasswordResetConfirmation(ctx, user.Email); err != nil {
		slog.Error("reset_confirmation_email_failed", "user_id", user.ID, "error", err)
		return &DispatchError{Err: err}
	}

	return nil
}
