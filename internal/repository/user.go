// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/luismartinez/auth-api/internal/models"
)

// CreateUser inserts a new user and fills in the generated ID and
// timestamps. Returns ErrDuplicateEmail when the email is taken.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, is_verified, verification_token, verification_expires_at, reset_token, reset_expires_at, last_login, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Name, user.Email, user.PasswordHash, user.IsVerified,
		user.VerificationToken, user.VerificationExpiresAt,
		user.ResetToken, user.ResetExpiresAt,
		user.LastLogin, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return wrapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByVerificationToken retrieves the user holding the given
// verification code, provided the code has not expired yet. Expired or
// unknown codes both come back as ErrNotFound.
func (r *Repository) GetUserByVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT * FROM users WHERE verification_token = ? AND verification_expires_at > ?`,
		token, now)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UpdateUser persists all mutable fields of an existing user.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, is_verified = ?,
		 verification_token = ?, verification_expires_at = ?,
		 reset_token = ?, reset_expires_at = ?, last_login = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name, user.Email, user.PasswordHash, user.IsVerified,
		user.VerificationToken, user.VerificationExpiresAt,
		user.ResetToken, user.ResetExpiresAt,
		user.LastLogin, user.UpdatedAt, user.ID)
	if err != nil {
		return wrapError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUsers returns the total number of users.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, err
	}
	return count, nil
}
