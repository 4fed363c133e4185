// Package token issues and redeems signed, time-limited claims that prove
// control of an email address for a single purpose (account verification
// or password reset). Tokens are not persisted; everything needed to
// validate one travels inside it.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
)

var (
	ErrMalformed       = errors.New("token is malformed or has an invalid signature")
	ErrExpired         = errors.New("token has expired")
	ErrPurposeMismatch = errors.New("token was issued for a different purpose")
	ErrWeakSecret      = errors.New("token signing secret must be at least 32 bytes")
)

const minSecretLength = 32

type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

func (p Purpose) Valid() bool {
	return p == PurposeVerify || p == PurposeReset
}

type Claims struct {
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret    []byte
	verifyTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
	logger    *logging.Service
}

type Option func(*Codec)

// WithClock replaces time.Now for both issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func WithLogger(logger *logging.Service) Option {
	return func(c *Codec) {
		c.logger = logger.Named("token")
	}
}

func NewCodec(cfg config.TokenConfig, opts ...Option) (*Codec, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, ErrWeakSecret
	}

	c := &Codec{
		secret:    []byte(cfg.Secret),
		verifyTTL: cfg.VerifyTTL,
		resetTTL:  cfg.ResetTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured validity window for a purpose.
func (c *Codec) TTL(purpose Purpose) time.Duration {
	if purpose == PurposeReset {
		return c.resetTTL
	}
	return c.verifyTTL
}

// Issue signs {email, purpose, iat, exp}. exp is carried in whole Unix
// seconds, so now + ttl is rounded up to the next second and a token stays
// valid for at least ttl. A zero ttl uses the configured window for the
// purpose.
func (c *Codec) Issue(email string, purpose Purpose, ttl time.Duration) (string, error) {
	if !purpose.Valid() {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("token email cannot be empty")
	}
	if ttl <= 0 {
		ttl = c.TTL(purpose)
	}

	now := c.now()
	claims := Claims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry(now, ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		c.logger.Error("failed to sign token", zap.Error(err), zap.String("purpose", string(purpose)))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	c.logger.Debug("token issued",
		zap.String("purpose", string(purpose)),
		zap.Time("expires_at", claims.ExpiresAt.Time))
	return signed, nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if floor := exp.Truncate(time.Second); !floor.Equal(exp) {
		return floor.Add(time.Second)
	}
	return exp
}

// Redeem verifies the signature, expiry and purpose of a token and returns
// the email it was issued for.
func (c *Codec) Redeem(tokenString string, expected Purpose) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			c.logger.Info("expired token presented", zap.String("purpose", string(expected)))
			return "", ErrExpired
		}
		c.logger.Warn("malformed token presented", zap.Error(err), zap.String("purpose", string(expected)))
		return "", ErrMalformed
	}

	if claims.Email == "" {
		return "", ErrMalformed
	}

	if claims.Purpose != expected {
		c.logger.Warn("token purpose mismatch",
			zap.String("expected", string(expected)),
			zap.String("actual", string(claims.Purpose)))
		return "", ErrPurposeMismatch
	}

	return claims.Email, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.secret, nil
}
