package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/ecostep/config"
)

const testSecret = "a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p6q7r8s9t0u1v2w3x4y5z6"

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCodec(t *testing.T) (*Codec, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	codec, err := NewCodec(config.TokenConfig{
		Secret:    testSecret,
		VerifyTTL: 24 * time.Hour,
		ResetTTL:  30 * time.Minute,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	return codec, clock
}

func TestNewCodec(t *testing.T) {
	t.Run("rejects short secret", func(t *testing.T) {
		codec, err := NewCodec(config.TokenConfig{Secret: "short"})

		assert.Nil(t, codec)
		assert.ErrorIs(t, err, ErrWeakSecret)
	})

	t.Run("ttl per purpose", func(t *testing.T) {
		codec, _ := newTestCodec(t)

		assert.Equal(t, 24*time.Hour, codec.TTL(PurposeVerify))
		assert.Equal(t, 30*time.Minute, codec.TTL(PurposeReset))
	})
}

func TestCodec_IssueAndRedeem(t *testing.T) {
	codec, clock := newTestCodec(t)

	tests := []struct {
		name    string
		email   string
		purpose Purpose
		ttl     time.Duration
	}{
		{"verify with explicit ttl", "a@example.com", PurposeVerify, time.Hour},
		{"reset with explicit ttl", "b@example.com", PurposeReset, time.Minute},
		{"verify with default ttl", "c@example.com", PurposeVerify, 0},
		{"reset with default ttl", "d+tag@example.co.uk", PurposeReset, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenString, err := codec.Issue(tt.email, tt.purpose, tt.ttl)
			require.NoError(t, err)
			assert.NotContains(t, tokenString, "+")
			assert.NotContains(t, tokenString, "/")

			clock.Advance(time.Second)
			email, err := codec.Redeem(tokenString, tt.purpose)

			require.NoError(t, err)
			assert.Equal(t, tt.email, email)
		})
	}
}

func TestCodec_IssueValidation(t *testing.T) {
	codec, _ := newTestCodec(t)

	_, err := codec.Issue("a@example.com", Purpose("login"), time.Hour)
	assert.Error(t, err)

	_, err = codec.Issue("  ", PurposeVerify, time.Hour)
	assert.Error(t, err)
}

func TestCodec_TokensAreUnique(t *testing.T) {
	codec, _ := newTestCodec(t)

	first, err := codec.Issue("a@example.com", PurposeVerify, time.Hour)
	require.NoError(t, err)
	second, err := codec.Issue("a@example.com", PurposeVerify, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCodec_Expired(t *testing.T) {
	t.Run("one second token redeemed two seconds later", func(t *testing.T) {
		codec, clock := newTestCodec(t)

		tokenString, err := codec.Issue("a@example.com", PurposeVerify, time.Second)
		require.NoError(t, err)

		clock.Advance(2 * time.Second)
		email, err := codec.Redeem(tokenString, PurposeVerify)

		assert.Empty(t, email)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("sub-second issue time rounds expiry up", func(t *testing.T) {
		codec, clock := newTestCodec(t)
		issued := clock.Now()
		clock.Advance(500 * time.Millisecond)

		tokenString, err := codec.Issue("a@example.com", PurposeVerify, time.Second)
		require.NoError(t, err)

		claims := jwt.MapClaims{}
		_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
		require.NoError(t, err)
		assert.Equal(t, float64(issued.Add(2*time.Second).Unix()), claims["exp"])

		clock.Advance(900 * time.Millisecond)
		email, err := codec.Redeem(tokenString, PurposeVerify)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", email)

		clock.Advance(600 * time.Millisecond)
		_, err = codec.Redeem(tokenString, PurposeVerify)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("reset token outlives its thirty minute window", func(t *testing.T) {
		codec, clock := newTestCodec(t)

		tokenString, err := codec.Issue("b@example.com", PurposeReset, 0)
		require.NoError(t, err)

		clock.Advance(29 * time.Minute)
		_, err = codec.Redeem(tokenString, PurposeReset)
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)
		_, err = codec.Redeem(tokenString, PurposeReset)
		assert.ErrorIs(t, err, ErrExpired)
	})
}

func TestCodec_Malformed(t *testing.T) {
	codec, clock := newTestCodec(t)

	valid, err := codec.Issue("a@example.com", PurposeVerify, time.Hour)
	require.NoError(t, err)

	otherCodec, err := NewCodec(config.TokenConfig{
		Secret:    strings.Repeat("z", 48),
		VerifyTTL: time.Hour,
		ResetTTL:  time.Hour,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	foreign, err := otherCodec.Issue("a@example.com", PurposeVerify, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tamperedPayload, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:   "attacker@example.com",
		Purpose: PurposeVerify,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SigningString()
	require.NoError(t, err)
	tampered := tamperedPayload + "." + parts[2]

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email:   "a@example.com",
		Purpose: PurposeVerify,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:   "a@example.com",
		Purpose: PurposeVerify,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Purpose: PurposeVerify,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"garbage", "not-a-token"},
		{"three garbage segments", "aaa.bbb.ccc"},
		{"signed with another key", foreign},
		{"tampered payload", tampered},
		{"alg none", noneToken},
		{"missing expiry", noExpiry},
		{"missing email", noEmail},
		{"truncated signature", valid[:len(valid)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := codec.Redeem(tt.token, PurposeVerify)

			assert.Empty(t, email)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCodec_PurposeMismatch(t *testing.T) {
	codec, _ := newTestCodec(t)

	verifyToken, err := codec.Issue("a@example.com", PurposeVerify, time.Hour)
	require.NoError(t, err)
	resetToken, err := codec.Issue("a@example.com", PurposeReset, time.Hour)
	require.NoError(t, err)

	_, err = codec.Redeem(verifyToken, PurposeReset)
	assert.ErrorIs(t, err, ErrPurposeMismatch)

	_, err = codec.Redeem(resetToken, PurposeVerify)
	assert.ErrorIs(t, err, ErrPurposeMismatch)
}

func TestCodec_WireFormat(t *testing.T) {
	codec, clock := newTestCodec(t)

	tokenString, err := codec.Issue("a@example.com", PurposeReset, 30*time.Minute)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", claims["email"])
	assert.Equal(t, "reset", claims["purpose"])
	assert.Equal(t, float64(clock.Now().Add(30*time.Minute).Unix()), claims["exp"])
	assert.NotEmpty(t, claims["jti"])
}
