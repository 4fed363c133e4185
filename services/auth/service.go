package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"github.com/tech-arch1tect/ecostep/services/mail"
	"github.com/tech-arch1tect/ecostep/services/token"
)

var (
	ErrNotFound         = errors.New("no account is registered for this email")
	ErrAccountNotFound  = errors.New("token refers to an account that no longer exists")
	ErrAlreadyVerified  = errors.New("account is already verified")
	ErrEmptySecret      = errors.New("new password must not be blank")
	ErrWeakSecret       = errors.New("new password does not meet the password policy")
	ErrMailNotAvailable = errors.New("mail is not configured")
)

const (
	VerifyPath = "/email/verify/"
	ResetPath  = "/reset-password/"
)

// AccountStore is the slice of account persistence the flows need.
type AccountStore interface {
	Find(ctx context.Context, email string) (*accounts.Account, error)
	Save(ctx context.Context, account *accounts.Account) error
	SetActive(ctx context.Context, email string, active bool) error
	SetCredential(ctx context.Context, email, secret string) error
}

// HostContext carries the scheme and host of the request that asked for a
// password reset so the emailed link points back at the same site.
type HostContext struct {
	Scheme string
	Host   string
}

// Service runs the email verification and password reset flows. It keeps no
// state of its own; tokens are self-contained and accounts live in the
// store.
type Service struct {
	store    AccountStore
	codec    *token.Codec
	sender   mail.Sender
	composer *mail.Composer
	baseURL  string
	logger   *logging.Service
}

func NewService(cfg *config.Config, store AccountStore, codec *token.Codec, sender mail.Sender, composer *mail.Composer, logger *logging.Service) *Service {
	return &Service{
		store:    store,
		codec:    codec,
		sender:   sender,
		composer: composer,
		baseURL:  strings.TrimRight(cfg.App.URL, "/"),
		logger:   logger.Named("auth"),
	}
}

func (s *Service) lookup(ctx context.Context, email string) (*accounts.Account, error) {
	account, err := s.store.Find(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	return account, nil
}

func (s *Service) deliver(ctx context.Context, msg *mail.Message) error {
	if s.sender == nil {
		return fmt.Errorf("%w: %w", mail.ErrTransport, ErrMailNotAvailable)
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrTransport) {
			return err
		}
		return fmt.Errorf("%w: %w", mail.ErrTransport, err)
	}
	return nil
}

// BuildLink appends the token to base+path as the "token" query parameter.
func BuildLink(base, path, tokenString string) string {
	q := url.Values{}
	q.Set("token", tokenString)
	return base + path + "?" + q.Encode()
}

// humanizeDuration renders expiry windows the way they read in an email:
// "30 minutes", "24 hours", "1 hour 30 minutes".
func humanizeDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)

	unit := func(n int, name string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", name)
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	switch {
	case hours > 0 && minutes > 0:
		return unit(hours, "hour") + " " + unit(minutes, "minute")
	case hours > 0:
		return unit(hours, "hour")
	default:
		return unit(minutes, "minute")
	}
}
