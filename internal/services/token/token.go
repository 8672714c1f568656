// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token mints and validates the three credential kinds: opaque
// email verification codes, signed session tokens, and signed password
// reset tokens. Verification codes are validated by a store lookup;
// session and reset tokens are self-contained HS256 JWTs.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/luismartinez/auth-api/internal/config"
)

var (
	// ErrInvalidToken is returned for malformed tokens, signature
	// mismatches, and wrong-scope tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed reset tokens whose
	// lifetime has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Scope values bind a signed token to a single use-context. A session
// token can never be replayed as a reset token or vice versa.
const (
	ScopeSession = "session"
	ScopeReset   = "password_reset"
)

// Claims are the JWT claims carried by session and reset tokens.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Service issues and validates tokens according to the configured
// expiry policies.
type Service struct {
	secret          []byte
	sessionTTL      time.Duration
	resetTTL        time.Duration
	verificationTTL time.Duration
}

// NewService creates a token service. The signing secret is mandatory.
func NewService(cfg *config.AuthConfig) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}

	return &Service{
		secret:          []byte(cfg.JWTSecret),
		sessionTTL:      cfg.SessionTTL,
		resetTTL:        cfg.ResetTTL,
		verificationTTL: cfg.VerificationTTL,
	}, nil
}

// VerificationTTL returns the configured verification code lifetime.
func (s *Service) VerificationTTL() time.Duration {
	return s.verificationTTL
}

// ResetTTL returns the configured reset token lifetime.
func (s *Service) ResetTTL() time.Duration {
	return s.resetTTL
}

// NewVerificationCode generates a six digit verification code and its
// expiry instant. The code is opaque; validity is established later by
// a store lookup, not by anything encoded in the code itself.
func (s *Service) NewVerificationCode() (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate verification code: %w", err)
	}

	code := strconv.FormatInt(n.Int64()+100000, 10)
	// UTC keeps stored expiries comparable inside SQLite.
	return code, time.Now().UTC().Add(s.verificationTTL), nil
}

// NewSessionToken issues a signed session token for the given user.
func (s *Service) NewSessionToken(userID int64) (string, error) {
	return s.sign(userID, ScopeSession, s.sessionTTL)
}

// NewResetToken issues a signed password reset token for the given user.
func (s *Service) NewResetToken(userID int64) (string, error) {
	return s.sign(userID, ScopeReset, s.resetTTL)
}

func (s *Service) sign(userID int64, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", scope, err)
	}
	return signed, nil
}

// ParseSessionToken validates a session token and returns the user ID
// it was issued for. All failures collapse into ErrInvalidToken;
// session validation fails closed uniformly.
func (s *Service) ParseSessionToken(raw string) (int64, error) {
	userID, err := s.parse(raw, ScopeSession)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// ParseResetToken validates a reset token and returns the user ID it
// was issued for. A well-formed token past its lifetime yields
// ErrTokenExpired; anything forged or malformed yields ErrInvalidToken.
func (s *Service) ParseResetToken(raw string) (int64, error) {
	userID, err := s.parse(raw, ScopeReset)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrInvalidToken
	}
	return userID, nil
}

func (s *Service) parse(raw, scope string) (int64, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}

	if claims.Scope != scope {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
