package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/token"
	"go.uber.org/zap"
)

// RequestVerification emails a confirmation link to a pending account and
// returns the token that was sent. Active accounts get ErrAlreadyVerified
// and no mail.
func (s *Service) RequestVerification(ctx context.Context, email string) (string, error) {
	account, err := s.lookup(ctx, email)
	if err != nil {
		return "", err
	}

	if account.Active {
		s.logger.Debug("verification requested for active account", zap.Uint("account_id", account.ID))
		return "", ErrAlreadyVerified
	}

	tok, err := s.codec.Issue(account.Email, token.PurposeVerify, 0)
	if err != nil {
		return "", fmt.Errorf("failed to issue verification token: %w", err)
	}

	msg, err := s.composer.Verification(account.Email, accounts.DisplayName(account.Email), BuildLink(s.baseURL, VerifyPath, tok))
	if err != nil {
		return "", fmt.Errorf("failed to compose verification email: %w", err)
	}

	if err := s.deliver(ctx, msg); err != nil {
		s.logger.Error("failed to send verification email", zap.Error(err), zap.Uint("account_id", account.ID))
		return "", fmt.Errorf("failed to send verification email: %w", err)
	}

	s.logger.Info("verification email sent", zap.Uint("account_id", account.ID))
	return tok, nil
}

// RedeemVerification activates the account named by a verify token.
// Redeeming again before expiry is a successful no-op.
func (s *Service) RedeemVerification(ctx context.Context, tokenString string) (string, error) {
	email, err := s.codec.Redeem(tokenString, token.PurposeVerify)
	if err != nil {
		s.logger.Debug("verification token rejected", zap.Error(err))
		return "", err
	}

	account, err := s.lookup(ctx, email)
	if err != nil {
		return "", err
	}

	if account.Active {
		return account.Email, nil
	}

	if err := s.store.SetActive(ctx, account.Email, true); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to activate account: %w", err)
	}

	s.logger.Info("account verified", zap.Uint("account_id", account.ID))
	return account.Email, nil
}
