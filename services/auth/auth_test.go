package auth_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/auth"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"github.com/tech-arch1tect/ecostep/services/mail"
	"github.com/tech-arch1tect/ecostep/services/token"
	"github.com/tech-arch1tect/ecostep/testutils"
	"gorm.io/gorm"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	db     *gorm.DB
	store  *accounts.Store
	codec  *token.Codec
	clock  *clock
	sender *testutils.RecordingSender
	svc    *auth.Service
}

func newFixture(t *testing.T) *fixture {
	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, &accounts.Account{})
	store := accounts.NewStore(db, accounts.NewHasher(cfg.Auth), logging.NewNop())

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	codec, err := token.NewCodec(cfg.Token, token.WithClock(clk.Now))
	require.NoError(t, err)

	composer, err := mail.NewComposer(cfg.App.TeamName)
	require.NoError(t, err)

	sender := &testutils.RecordingSender{}
	return &fixture{
		db:     db,
		store:  store,
		codec:  codec,
		clock:  clk,
		sender: sender,
		svc:    auth.NewService(cfg, store, codec, sender, composer, logging.NewNop()),
	}
}

func tokenFromLink(t *testing.T, body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.Contains(line, "token=") {
			u, err := url.Parse(strings.TrimSpace(line))
			require.NoError(t, err)
			return u.Query().Get("token")
		}
	}
	t.Fatal("no link in message body")
	return ""
}

func TestRequestVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("sends confirmation link to pending account", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, "jane.doe@example.com", testutils.TestPasswords.Valid, false)

		tok, err := f.svc.RequestVerification(ctx, "jane.doe@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, tok)

		require.Equal(t, 1, f.sender.Count())
		msg := f.sender.Last()
		assert.Equal(t, []string{"jane.doe@example.com"}, msg.To)
		assert.Equal(t, "Email confirmation link", msg.Subject)
		assert.True(t, strings.HasPrefix(msg.TextBody, "Hi Jane Doe,\n"))
		assert.Contains(t, msg.TextBody, "http://localhost:8080/email/verify/?token="+tok)
		assert.Equal(t, tok, tokenFromLink(t, msg.TextBody))
	})

	t.Run("active account gets no mail", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)

		_, err := f.svc.RequestVerification(ctx, testutils.TestEmails.Active)
		assert.ErrorIs(t, err, auth.ErrAlreadyVerified)
		assert.Equal(t, 0, f.sender.Count())
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestVerification(ctx, testutils.TestEmails.Unknown)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.Equal(t, 0, f.sender.Count())
	})

	t.Run("transport failure is surfaced", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)
		f.sender.Err = errors.New("smtp down")

		_, err := f.svc.RequestVerification(ctx, testutils.TestEmails.Pending)
		assert.ErrorIs(t, err, mail.ErrTransport)
	})

	t.Run("sender errors already marked as transport", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)

		sender := &testutils.MockMailSender{}
		sender.On("Send", mock.Anything, mock.AnythingOfType("*mail.Message")).
			Return(errors.Join(mail.ErrTransport, errors.New("421 try later"))).Once()

		composer, err := mail.NewComposer("EcoStep Team")
		require.NoError(t, err)
		svc := auth.NewService(testutils.GetTestConfig(), f.store, f.codec, sender, composer, logging.NewNop())

		_, err = svc.RequestVerification(ctx, testutils.TestEmails.Pending)
		assert.ErrorIs(t, err, mail.ErrTransport)
		sender.AssertExpectations(t)
	})

	t.Run("nil sender is a transport failure", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)

		composer, err := mail.NewComposer("EcoStep Team")
		require.NoError(t, err)
		svc := auth.NewService(testutils.GetTestConfig(), f.store, f.codec, nil, composer, logging.NewNop())

		_, err = svc.RequestVerification(ctx, testutils.TestEmails.Pending)
		assert.ErrorIs(t, err, mail.ErrTransport)
		assert.ErrorIs(t, err, auth.ErrMailNotAvailable)
	})
}

func TestRedeemVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("activates pending account", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)

		tok, err := f.svc.RequestVerification(ctx, testutils.TestEmails.Pending)
		require.NoError(t, err)

		email, err := f.svc.RedeemVerification(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, testutils.TestEmails.Pending, email)

		account := testutils.ReloadAccount(t, f.db, testutils.TestEmails.Pending)
		assert.True(t, account.Active)
		assert.NotNil(t, account.VerifiedAt)
	})

	t.Run("replay is idempotent", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)
		tok, err := f.codec.Issue(testutils.TestEmails.Pending, token.PurposeVerify, 0)
		require.NoError(t, err)

		_, err = f.svc.RedeemVerification(ctx, tok)
		require.NoError(t, err)
		email, err := f.svc.RedeemVerification(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, testutils.TestEmails.Pending, email)
		assert.True(t, testutils.ReloadAccount(t, f.db, testutils.TestEmails.Pending).Active)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)
		tok, err := f.codec.Issue(testutils.TestEmails.Pending, token.PurposeVerify, time.Second)
		require.NoError(t, err)

		f.clock.Advance(2 * time.Second)

		_, err = f.svc.RedeemVerification(ctx, tok)
		assert.ErrorIs(t, err, token.ErrExpired)
		assert.False(t, testutils.ReloadAccount(t, f.db, testutils.TestEmails.Pending).Active)
	})

	t.Run("malformed token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RedeemVerification(ctx, "not-a-token")
		assert.ErrorIs(t, err, token.ErrMalformed)
	})

	t.Run("reset token cannot verify", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)
		tok, err := f.codec.Issue(testutils.TestEmails.Pending, token.PurposeReset, 0)
		require.NoError(t, err)

		_, err = f.svc.RedeemVerification(ctx, tok)
		assert.ErrorIs(t, err, token.ErrPurposeMismatch)
		assert.False(t, testutils.ReloadAccount(t, f.db, testutils.TestEmails.Pending).Active)
	})

	t.Run("account deleted after issue", func(t *testing.T) {
		f := newFixture(t)
		tok, err := f.codec.Issue("gone@example.com", token.PurposeVerify, 0)
		require.NoError(t, err)

		_, err = f.svc.RedeemVerification(ctx, tok)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestRequestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("link uses request host", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)

		tok, err := f.svc.RequestReset(ctx, testutils.TestEmails.Active, auth.HostContext{Scheme: "https", Host: "ecostep.example"})
		require.NoError(t, err)

		msg := f.sender.Last()
		require.NotNil(t, msg)
		assert.Equal(t, "Reset your password", msg.Subject)
		assert.Contains(t, msg.HTMLBody, "https://ecostep.example/reset-password/?token="+tok)
		assert.Contains(t, msg.HTMLBody, "30 minutes")
		assert.Contains(t, msg.TextBody, "Hi B,")
	})

	t.Run("falls back to app url", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)

		tok, err := f.svc.RequestReset(ctx, testutils.TestEmails.Active, auth.HostContext{})
		require.NoError(t, err)
		assert.Contains(t, f.sender.Last().TextBody, "http://localhost:8080/reset-password/?token="+tok)
	})

	t.Run("scheme defaults to http", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)

		_, err := f.svc.RequestReset(ctx, testutils.TestEmails.Active, auth.HostContext{Host: "127.0.0.1:9000"})
		require.NoError(t, err)
		assert.Contains(t, f.sender.Last().TextBody, "http://127.0.0.1:9000/reset-password/?token=")
	})

	t.Run("unknown email sends nothing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestReset(ctx, testutils.TestEmails.Unknown, auth.HostContext{})
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.Equal(t, 0, f.sender.Count())
	})

	t.Run("pending accounts may reset too", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Pending, testutils.TestPasswords.Valid, false)
		_, err := f.svc.RequestReset(ctx, testutils.TestEmails.Pending, auth.HostContext{})
		assert.NoError(t, err)
	})

	t.Run("transport failure", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)
		f.sender.Err = errors.New("connection reset")

		_, err := f.svc.RequestReset(ctx, testutils.TestEmails.Active, auth.HostContext{})
		assert.ErrorIs(t, err, mail.ErrTransport)
	})
}

func TestRedeemReset(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)
		tok, err := f.codec.Issue(testutils.TestEmails.Active, token.PurposeReset, 0)
		require.NoError(t, err)

		email, err := f.svc.RedeemReset(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, testutils.TestEmails.Active, email)
	})

	t.Run("expires after thirty minutes", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)
		tok, err := f.codec.Issue(testutils.TestEmails.Active, token.PurposeReset, 0)
		require.NoError(t, err)

		f.clock.Advance(29 * time.Minute)
		_, err = f.svc.RedeemReset(ctx, tok)
		require.NoError(t, err)

		f.clock.Advance(2 * time.Minute)
		_, err = f.svc.RedeemReset(ctx, tok)
		assert.ErrorIs(t, err, token.ErrExpired)
	})

	t.Run("verify token cannot reset", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)
		tok, err := f.codec.Issue(testutils.TestEmails.Active, token.PurposeVerify, 0)
		require.NoError(t, err)

		_, err = f.svc.RedeemReset(ctx, tok)
		assert.ErrorIs(t, err, token.ErrPurposeMismatch)
	})

	t.Run("account gone", func(t *testing.T) {
		f := newFixture(t)
		tok, err := f.codec.Issue("gone@example.com", token.PurposeReset, 0)
		require.NoError(t, err)

		_, err = f.svc.RedeemReset(ctx, tok)
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})

	t.Run("garbage", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RedeemReset(ctx, "a.b.c")
		assert.ErrorIs(t, err, token.ErrMalformed)
	})
}

func TestApplyNewCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("blank secrets", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)

		for _, secret := range []string{"", "   ", "\t\n"} {
			assert.ErrorIs(t, f.svc.ApplyNewCredential(ctx, testutils.TestEmails.Active, secret), auth.ErrEmptySecret)
		}
	})

	t.Run("weak secret", func(t *testing.T) {
		f := newFixture(t)
		testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)

		err := f.svc.ApplyNewCredential(ctx, testutils.TestEmails.Active, testutils.TestPasswords.TooShort)
		assert.ErrorIs(t, err, auth.ErrWeakSecret)
		assert.Contains(t, err.Error(), "at least 8 characters")
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.ApplyNewCredential(ctx, testutils.TestEmails.Unknown, testutils.TestPasswords.Other)
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})
}

func TestResetScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutils.CreateAccount(t, f.db, testutils.TestEmails.Active, testutils.TestPasswords.Valid, true)
	accountsSvc := accounts.NewService(f.store, accounts.NewHasher(testutils.GetTestConfig().Auth), logging.NewNop())

	tok, err := f.svc.RequestReset(ctx, testutils.TestEmails.Active, auth.HostContext{})
	require.NoError(t, err)

	email, err := f.svc.RedeemReset(ctx, tok)
	require.NoError(t, err)
	require.NoError(t, f.svc.ApplyNewCredential(ctx, email, "newpass123"))

	_, err = accountsSvc.Authenticate(ctx, testutils.TestEmails.Active, "newpass123")
	assert.NoError(t, err)

	_, err = accountsSvc.Authenticate(ctx, testutils.TestEmails.Active, testutils.TestPasswords.Valid)
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)

	t.Run("reset password in one step", func(t *testing.T) {
		tok, err := f.codec.Issue(testutils.TestEmails.Active, token.PurposeReset, 0)
		require.NoError(t, err)

		email, err := f.svc.ResetPassword(ctx, tok, "thirdpass123")
		require.NoError(t, err)
		assert.Equal(t, testutils.TestEmails.Active, email)

		_, err = accountsSvc.Authenticate(ctx, testutils.TestEmails.Active, "thirdpass123")
		assert.NoError(t, err)
	})

	t.Run("reset password with bad token leaves credential", func(t *testing.T) {
		_, err := f.svc.ResetPassword(ctx, "junk", "fourthpass123")
		assert.ErrorIs(t, err, token.ErrMalformed)

		_, err = accountsSvc.Authenticate(ctx, testutils.TestEmails.Active, "thirdpass123")
		assert.NoError(t, err)
	})
}
