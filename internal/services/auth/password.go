// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"strings"
)

// PasswordValidator validates passwords against the configured policy.
type PasswordValidator struct {
	MinLength           int
	CheckUserSimilarity bool
}

// DefaultPasswordValidator returns a validator with sensible defaults.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:           8,
		CheckUserSimilarity: true,
	}
}

// ValidationError represents a single password validation error.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps multiple validation errors.
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// Messages returns all error messages.
func (e *PasswordValidationError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return messages
}

// ValidationResult holds all validation errors.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks a password against all configured rules. The user
// attributes (email, name) are rejected as passwords when similarity
// checking is on.
func (v *PasswordValidator) Validate(password string, userAttributes ...string) ValidationResult {
	var errors []ValidationError

	if len(password) < v.MinLength {
		errors = append(errors, ValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
		})
	}

	if v.CheckUserSimilarity {
		lower := strings.ToLower(password)
		for _, attr := range userAttributes {
			if attr == "" {
				continue
			}
			if lower == strings.ToLower(attr) {
				errors = append(errors, ValidationError{
					Code:    "too_similar",
					Message: "Password must not be identical to your email or name.",
				})
				break
			}
		}
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}
