// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luismartinez/auth-api/internal/repository"
	"github.com/luismartinez/auth-api/internal/services/auth"
	"github.com/luismartinez/auth-api/internal/services/token"
	"github.com/luismartinez/auth-api/internal/testutil"
)

const clientURL = "http://localhost:3000"

func newAuthService(t *testing.T) (*auth.Service, *repository.Repository, *token.Service, *testutil.FakeMailer) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	tokens := testutil.NewTokenService(t)
	mailer := &testutil.FakeMailer{}
	return auth.NewService(repo, tokens, mailer, clientURL), repo, tokens, mailer
}

func TestSignup_Success(t *testing.T) {
	svc, repo, tokens, mailer := newAuthService(t)
	ctx := context.Background()

	user, sessionToken, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")

	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "pw123456", user.PasswordHash)

	// The session token is bound to the new account.
	userID, err := tokens.ParseSessionToken(sessionToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// A verification email went out carrying the pending code.
	sent := mailer.Last(t)
	assert.Equal(t, "verification", sent.Kind)
	assert.Equal(t, "a@x.com", sent.To)
	require.NotNil(t, user.VerificationToken)
	assert.Equal(t, *user.VerificationToken, sent.Code)

	stored, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, stored.HasPendingVerification())
}

func TestSignup_MissingFields(t *testing.T) {
	svc, _, _, _ := newAuthService(t)

	for _, tc := range []struct{ name, email, password string }{
		{"", "a@x.com", "pw123456"},
		{"Alice", "", "pw123456"},
		{"Alice", "a@x.com", ""},
	} {
		_, _, err := svc.Signup(context.Background(), tc.name, tc.email, tc.password)
		assert.ErrorIs(t, err, auth.ErrMissingFields)
	}
}

func TestSignup_InvalidEmail(t *testing.T) {
	svc, _, _, _ := newAuthService(t)

	_, _, err := svc.Signup(context.Background(), "Alice", "not-an-email", "pw123456")

	assert.ErrorIs(t, err, auth.ErrInvalidEmail)
}

func TestSignup_WeakPassword(t *testing.T) {
	svc, _, _, _ := newAuthService(t)

	_, _, err := svc.Signup(context.Background(), "Alice", "a@x.com", "short")

	var validationErr *auth.PasswordValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, repo, _, _ := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, "Mallory", "a@x.com", "different-pw")
	assert.ErrorIs(t, err, auth.ErrUserExists)

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSignup_DispatchFailureLeavesUserPersisted(t *testing.T) {
	svc, repo, _, mailer := newAuthService(t)
	mailer.Err = errors.New("smtp down")

	_, _, err := svc.Signup(context.Background(), "Alice", "a@x.com", "pw123456")

	var dispatchErr *auth.DispatchError
	require.ErrorAs(t, err, &dispatchErr)

	// The record was created before the dispatch; no rollback.
	_, err = repo.GetUserByEmail(context.Background(), "a@x.com")
	assert.NoError(t, err)
}

func TestVerifyEmail_FullFlow(t *testing.T) {
	svc, repo, _, mailer := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	code := mailer.Last(t).Code

	user, err := svc.VerifyEmail(ctx, code)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.Nil(t, user.VerificationToken)
	assert.Nil(t, user.VerificationExpiresAt)

	sent := mailer.Last(t)
	assert.Equal(t, "welcome", sent.Kind)
	assert.Equal(t, "Alice", sent.Name)

	// The flip is persisted and irreversible.
	stored, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	// The code is single use; replay is rejected.
	_, err = svc.VerifyEmail(ctx, code)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredCode)
}

func TestVerifyEmail_UnknownCode(t *testing.T) {
	svc, _, _, _ := newAuthService(t)

	_, err := svc.VerifyEmail(context.Background(), "000000")

	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredCode)
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	svc, repo, _, mailer := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	code := mailer.Last(t).Code

	user, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	expired := time.Now().UTC().Add(-time.Minute)
	user.VerificationExpiresAt = &expired
	require.NoError(t, repo.UpdateUser(ctx, user))

	// Expired and wrong codes map to the same rejection.
	_, err = svc.VerifyEmail(ctx, code)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredCode)
}

func TestResendVerification_StillValidCodeUnchanged(t *testing.T) {
	svc, repo, _, mailer := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	original := mailer.Last(t).Code

	user, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, svc.ResendVerification(ctx, user))

	sent := mailer.Last(t)
	assert.Equal(t, "verification", sent.Kind)
	assert.Equal(t, original, sent.Code)
}

func TestResendVerification_ExpiredCodeRotated(t *testing.T) {
	svc, repo, _, mailer := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	user, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	expired := time.Now().UTC().Add(-time.Minute)
	user.VerificationExpiresAt = &expired
	require.NoError(t, repo.UpdateUser(ctx, user))

	require.NoError(t, svc.ResendVerification(ctx, user))

	// A fresh code with a fresh expiry was persisted before sending.
	stored, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationExpiresAt)
	assert.True(t, stored.VerificationExpiresAt.After(time.Now().UTC()))
	assert.Equal(t, *stored.VerificationToken, mailer.Last(t).Code)
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	svc, _, _, mailer := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	user, err := svc.VerifyEmail(ctx, mailer.Last(t).Code)
	require.NoError(t, err)

	err = svc.ResendVerification(ctx, user)
	assert.ErrorIs(t, err, auth.ErrAlreadyVerified)
}

func TestLogin_Success(t *testing.T) {
	svc, repo, tokens, _ := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	user, sessionToken, err := svc.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)

	userID, err := tokens.ParseSessionToken(sessionToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	stored, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)
}

func TestLogin_FailureIsIndistinguishable(t *testing.T) {
	svc, _, _, _ := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, "a@x.com", "not-the-password")
	_, _, unknownEmail := svc.Login(ctx, "nobody@x.com", "pw123456")

	// Unknown email and wrong password must be the same error.
	assert.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, auth.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	svc, _, _, _ := newAuthService(t)

	err := svc.ForgotPassword(context.Background(), "nobody@x.com")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestForgotPassword_MintsTokenAndSendsLink(t *testing.T) {
	svc, repo, tokens, mailer := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com"))

	stored, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	require.NotNil(t, stored.ResetExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), *stored.ResetExpiresAt, time.Minute)

	sent := mailer.Last(t)
	assert.Equal(t, "reset_request", sent.Kind)
	assert.Equal(t, clientURL+"/reset-password/"+*stored.ResetToken, sent.ResetURL)

	userID, err := tokens.ParseResetToken(*stored.ResetToken)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, userID)
}

func resetTokenFromMail(t *testing.T, mailer *testutil.FakeMailer) string {
	t.Helper()
	sent := mailer.Last(t)
	require.Equal(t, "reset_request", sent.Kind)
	return strings.TrimPrefix(sent.ResetURL, clientURL+"/reset-password/")
}

func TestResetPassword_FullFlow(t *testing.T) {
	svc, _, _, mailer := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com"))
	resetToken := resetTokenFromMail(t, mailer)

	require.NoError(t, svc.ResetPassword(ctx, resetToken, "newpw123"))
	assert.Equal(t, "reset_confirmation", mailer.Last(t).Kind)

	// Old password no longer works, the new one does.
	_, _, err = svc.Login(ctx, "a@x.com", "pw123456")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "a@x.com", "newpw123")
	assert.NoError(t, err)

	// The reset token is single use.
	err = svc.ResetPassword(ctx, resetToken, "anotherpw1")
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestResetPassword_StoredExpiryInPast(t *testing.T) {
	svc, repo, _, mailer := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "Alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "a@x.com"))
	resetToken := resetTokenFromMail(t, mailer)

	user, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	expired := time.Now().UTC().Add(-time.Minute)
	user.ResetExpiresAt = &expired
	require.NoError(t, repo.UpdateUser(ctx, user))

	// Signature still valid, stored expiry decides.
	err = svc.ResetPassword(ctx, resetToken, "newpw123")
	assert.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestResetPassword_ForgedToken(t *testing.T) {
	svc, _, _, _ := newAuthService(t)

	err := svc.ResetPassword(context.Background(), "forged-token", "newpw123")

	assert.ErrorIs(t, err, token.ErrInvalidToken)
}
