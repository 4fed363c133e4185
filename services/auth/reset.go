package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/token"
	"go.uber.org/zap"
)

// RequestReset emails a password reset link. The link is built from the
// requesting host when one is known and from the configured app URL
// otherwise.
func (s *Service) RequestReset(ctx context.Context, email string, host HostContext) (string, error) {
	account, err := s.lookup(ctx, email)
	if err != nil {
		return "", err
	}

	tok, err := s.codec.Issue(account.Email, token.PurposeReset, 0)
	if err != nil {
		return "", fmt.Errorf("failed to issue reset token: %w", err)
	}

	link := BuildLink(s.resetBase(host), ResetPath, tok)
	msg, err := s.composer.PasswordReset(account.Email, accounts.DisplayName(account.Email), link, humanizeDuration(s.codec.TTL(token.PurposeReset)))
	if err != nil {
		return "", fmt.Errorf("failed to compose reset email: %w", err)
	}

	if err := s.deliver(ctx, msg); err != nil {
		s.logger.Error("failed to send password reset email", zap.Error(err), zap.Uint("account_id", account.ID))
		return "", fmt.Errorf("failed to send password reset email: %w", err)
	}

	s.logger.Info("password reset email sent", zap.Uint("account_id", account.ID))
	return tok, nil
}

func (s *Service) resetBase(host HostContext) string {
	if host.Host == "" {
		return s.baseURL
	}
	scheme := host.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + host.Host
}

// RedeemReset checks a reset token and returns the email it names.
func (s *Service) RedeemReset(ctx context.Context, tokenString string) (string, error) {
	email, err := s.codec.Redeem(tokenString, token.PurposeReset)
	if err != nil {
		s.logger.Debug("reset token rejected", zap.Error(err))
		return "", err
	}

	account, err := s.lookup(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrAccountNotFound
		}
		return "", err
	}

	return account.Email, nil
}

// ApplyNewCredential replaces the password of the account. Secrets are
// compared after trimming, but stored exactly as given.
func (s *Service) ApplyNewCredential(ctx context.Context, email, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrEmptySecret
	}

	if err := s.store.SetCredential(ctx, email, secret); err != nil {
		var policy *accounts.PolicyError
		switch {
		case errors.As(err, &policy):
			return fmt.Errorf("%w: %w", ErrWeakSecret, err)
		case errors.Is(err, accounts.ErrNotFound):
			return ErrAccountNotFound
		default:
			return fmt.Errorf("failed to update credential: %w", err)
		}
	}

	s.logger.Info("password reset completed", zap.String("email", accounts.NormalizeEmail(email)))
	return nil
}

// ResetPassword redeems a reset token and applies the new secret in one
// step.
func (s *Service) ResetPassword(ctx context.Context, tokenString, secret string) (string, error) {
	email, err := s.RedeemReset(ctx, tokenString)
	if err != nil {
		return "", err
	}
	if err := s.ApplyNewCredential(ctx, email, secret); err != nil {
		return "", err
	}
	return email, nil
}
