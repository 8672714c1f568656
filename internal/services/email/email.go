// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email dispatches the transactional mails of the auth flows.
package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/luismartinez/auth-api/internal/config"
)

// Mailer is the notification dispatcher consumed by the auth service.
// Implementations send and return; delivery is never retried here.
type Mailer interface {
	SendVerification(ctx context.Context, toEmail, code string) error
	SendWelcome(ctx context.Context, toEmail, name string) error
	SendPasswordResetRequest(ctx context.Context, toEmail, resetURL string) error
	SendPasswordResetConfirmation(ctx context.Context, toEmail string) error
}

// Service sends mail via SMTP using go-mail.
type Service struct {
	cfg *config.SMTPConfig
}

var _ Mailer = (*Service)(nil)

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{cfg: cfg}, nil
}

// SendVerification sends the email verification code.
func (s *Service) SendVerification(ctx context.Context, toEmail, code string) error {
	body := fmt.Sprintf(
		"Welcome!\n\nYour verification code is: %s\n\nIt expires in 24 hours. If you did not create an account, you can ignore this email.\n",
		code)
	return s.send(ctx, toEmail, "Verify your email", body)
}

// SendWelcome sends the post-verification welcome mail.
func (s *Service) SendWelcome(ctx context.Context, toEmail, name string) error {
	body := fmt.Sprintf("Hi %s,\n\nyour email address has been verified. Welcome aboard!\n", name)
	return s.send(ctx, toEmail, "Welcome", body)
}

// SendPasswordResetRequest sends the reset link mail.
func (s *Service) SendPasswordResetRequest(ctx context.Context, toEmail, resetURL string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\nReset your password here: %s\n\nThe link expires in one hour. If you did not request this, you can ignore this email.\n",
		resetURL)
	return s.send(ctx, toEmail, "Reset your password", body)
}

// SendPasswordResetConfirmation confirms a completed password reset.
func (s *Service) SendPasswordResetConfirmation(ctx context.Context, toEmail string) error {
	body := "Your password has been changed.\n\nIf this was not you, request a new password reset immediately.\n"
	return s.send(ctx, toEmail, "Your password was changed", body)
}

// send delivers a single plain-text mail via SMTP.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
