package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupTestDB(t *testing.T, models ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection would get its own empty :memory: database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func CleanupTestDB(t *testing.T, db *gorm.DB, tables ...string) {
	for _, table := range tables {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
}

// CreateAccount inserts an account directly, bypassing registration.
func CreateAccount(t *testing.T, db *gorm.DB, email, password string, active bool) *accounts.Account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	account := &accounts.Account{
		Email:        accounts.NormalizeEmail(email),
		PasswordHash: string(hash),
		Active:       active,
	}
	if active {
		now := time.Now()
		account.VerifiedAt = &now
	}
	require.NoError(t, db.WithContext(context.Background()).Create(account).Error)
	return account
}

func ReloadAccount(t *testing.T, db *gorm.DB, email string) *accounts.Account {
	var account accounts.Account
	require.NoError(t, db.Where("email = ?", accounts.NormalizeEmail(email)).First(&account).Error)
	return &account
}
