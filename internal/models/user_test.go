// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luismartinez/auth-api/internal/models"
)

func TestUser_JSONHidesSecrets(t *testing.T) {
	code := "123456"
	reset := "reset-token"
	expires := time.Now().Add(time.Hour)

	user := models.User{
		ID:                    1,
		Name:                  "Alice",
		Email:                 "a@x.com",
		PasswordHash:          "super-secret-hash",
		VerificationToken:     &code,
		VerificationExpiresAt: &expires,
		ResetToken:            &reset,
		ResetExpiresAt:        &expires,
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	body := string(data)
	assert.NotContains(t, body, "super-secret-hash")
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "123456")
	assert.NotContains(t, body, "reset-token")
	assert.Contains(t, body, "a@x.com")
}

func TestUser_HasPendingVerification(t *testing.T) {
	var user models.User
	assert.False(t, user.HasPendingVerification())

	code := "123456"
	expires := time.Now().Add(time.Hour)
	user.VerificationToken = &code
	user.VerificationExpiresAt = &expires
	assert.True(t, user.HasPendingVerification())
}

func TestUser_VerificationExpired(t *testing.T) {
	code := "123456"
	now := time.Now()

	past := now.Add(-time.Minute)
	user := models.User{VerificationToken: &code, VerificationExpiresAt: &past}
	assert.True(t, user.VerificationExpired(now))

	future := now.Add(time.Minute)
	user.VerificationExpiresAt = &future
	assert.False(t, user.VerificationExpired(now))

	// No pending code means nothing to expire.
	assert.False(t, (&models.User{}).VerificationExpired(now))
}
