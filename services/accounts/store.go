package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrAlreadyActive      = errors.New("account is already active")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("account has not been verified")
)

// Store persists accounts in the "accounts" table. Emails are normalised
// before every lookup.
type Store struct {
	db     *gorm.DB
	hasher *Hasher
	logger *logging.Service
}

func NewStore(db *gorm.DB, hasher *Hasher, logger *logging.Service) *Store {
	return &Store{
		db:     db,
		hasher: hasher,
		logger: logger.Named("accounts"),
	}
}

func (s *Store) Find(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}

func (s *Store) FindByID(ctx context.Context, id uint) (*Account, error) {
	var account Account
	if err := s.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}

// Create inserts a new account. A unique-index violation is reported as
// ErrEmailTaken.
func (s *Store) Create(ctx context.Context, account *Account) error {
	account.Email = NormalizeEmail(account.Email)

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(account)
	if result.Error != nil {
		return fmt.Errorf("failed to create account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEmailTaken
	}
	return nil
}

func (s *Store) Save(ctx context.Context, account *Account) error {
	account.Email = NormalizeEmail(account.Email)
	if err := s.db.WithContext(ctx).Save(account).Error; err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// SetActive flips the active flag. VerifiedAt is stamped the first time an
// account becomes active.
func (s *Store) SetActive(ctx context.Context, email string, active bool) error {
	account, err := s.Find(ctx, email)
	if err != nil {
		return err
	}

	if account.Active == active {
		return nil
	}

	account.Active = active
	if active && account.VerifiedAt == nil {
		now := time.Now()
		account.VerifiedAt = &now
	}

	if err := s.Save(ctx, account); err != nil {
		return err
	}

	s.logger.Info("account activation changed", zap.Uint("account_id", account.ID), zap.Bool("active", active))
	return nil
}

// SetCredential hashes secret under the password policy and stores it.
func (s *Store) SetCredential(ctx context.Context, email, secret string) error {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&Account{}).
		Where("email = ?", NormalizeEmail(email)).
		Update("password_hash", hash)
	if result.Error != nil {
		return fmt.Errorf("failed to update credential: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("account credential updated", zap.String("email", NormalizeEmail(email)))
	return nil
}

func (s *Store) CheckCredential(account *Account, secret string) bool {
	return s.hasher.Compare(account.PasswordHash, secret)
}
