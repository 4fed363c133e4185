package accounts

import (
	"context"
	"errors"

	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
)

// Service covers signup and login. Verification and password reset live in
// the auth package and reach accounts only through the Store.
type Service struct {
	store  *Store
	hasher *Hasher
	logger *logging.Service
}

func NewService(store *Store, hasher *Hasher, logger *logging.Service) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		logger: logger.Named("accounts"),
	}
}

// Register creates a pending (inactive) account. An email that already
// belongs to an active account yields ErrAlreadyActive; one that belongs to
// a pending account yields ErrEmailTaken.
func (s *Service) Register(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)

	existing, err := s.store.Find(ctx, email)
	switch {
	case err == nil && existing.Active:
		return nil, ErrAlreadyActive
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Email:        email,
		PasswordHash: hash,
		Active:       false,
	}
	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", zap.Uint("account_id", account.ID))
	return account, nil
}

// Authenticate checks credentials. The password is verified before the
// active flag so an inactive account is only revealed to its owner.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.store.Find(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.store.CheckCredential(account, password) {
		s.logger.Warn("login with wrong password", zap.Uint("account_id", account.ID))
		return nil, ErrInvalidCredentials
	}

	if !account.Active {
		return account, ErrInactive
	}

	return account, nil
}

func (s *Service) Find(ctx context.Context, email string) (*Account, error) {
	return s.store.Find(ctx, email)
}

func (s *Service) Get(ctx context.Context, id uint) (*Account, error) {
	return s.store.FindByID(ctx, id)
}

// Activate marks an account active without a token; used by the
// operator CLI.
func (s *Service) Activate(ctx context.Context, email string) error {
	return s.store.SetActive(ctx, email, true)
}
