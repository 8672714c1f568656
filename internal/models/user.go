// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// User is the persistent account record. The password hash and pending
// token state never leave the server; json tags hide them everywhere.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID                    int64      `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	Email                 string     `db:"email" json:"email"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	IsVerified            bool       `db:"is_verified" json:"is_verified"`
	VerificationToken     *string    `db:"verification_token" json:"-"`
	VerificationExpiresAt *time.Time `db:"verification_expires_at" json:"-"`
	ResetToken            *string    `db:"reset_token" json:"-"`
	ResetExpiresAt        *time.Time `db:"reset_expires_at" json:"-"`
	LastLogin             *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// HasPendingVerification reports whether a verification code is still
// outstanding for this account.
func (u *User) HasPendingVerification() bool {
	return u.VerificationToken != nil && u.VerificationExpiresAt != nil
}

// VerificationExpired reports whether the pending verification code has
// passed its expiry. False when no code is pending.
func (u *User) VerificationExpired(now time.Time) bool {
	return u.HasPendingVerification() && u.VerificationExpiresAt.Before(now)
}
