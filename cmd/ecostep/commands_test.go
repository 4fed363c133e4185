package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/token"
	"github.com/tech-arch1tect/ecostep/testutils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setEnv(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ecostep.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", dsn)
	t.Setenv("TOKEN_SECRET", testutils.TestTokenSecret)
	t.Setenv("APP_URL", "https://ecostep.test/")
	t.Setenv("LOG_LEVEL", "error")
	return dsn
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateAndActivate(t *testing.T) {
	dsn := setEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	testutils.CreateAccount(t, db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)

	out, err = run(t, "accounts", "activate", "A@Example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "a@example.com is active")

	account := testutils.ReloadAccount(t, db, testutils.TestEmails.Pending)
	assert.True(t, account.Active)
	assert.NotNil(t, account.VerifiedAt)

	_, err = run(t, "accounts", "activate", testutils.TestEmails.Unknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestTokenIssue(t *testing.T) {
	setEnv(t)

	out, err := run(t, "token", "issue", "--email", "Jane@Example.com", "--purpose", "reset")
	require.NoError(t, err)

	link := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(link, "https://ecostep.test/reset-password/?token="), link)

	codec, err := token.NewCodec(config.TokenConfig{
		Secret:    testutils.TestTokenSecret,
		VerifyTTL: time.Hour,
		ResetTTL:  time.Hour,
	})
	require.NoError(t, err)

	email, err := codec.Redeem(strings.TrimPrefix(link, "https://ecostep.test/reset-password/?token="), token.PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", email)
}

func TestTokenIssue_Validation(t *testing.T) {
	setEnv(t)

	_, err := run(t, "token", "issue")
	assert.ErrorContains(t, err, "--email is required")

	_, err = run(t, "token", "issue", "--email", "a@example.com", "--purpose", "login")
	assert.ErrorContains(t, err, "--purpose must be")
}

func TestLoadConfigFailure(t *testing.T) {
	setEnv(t)
	t.Setenv("TOKEN_SECRET", "short")

	_, err := run(t, "migrate")
	assert.ErrorContains(t, err, "failed to load config")
}
