package accounts

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tech-arch1tect/ecostep/config"
	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordHashingFailed = errors.New("failed to hash password")

// PolicyError lists every requirement a password failed.
type PolicyError struct {
	Problems []string
}

func (e *PolicyError) Error() string {
	return "password " + strings.Join(e.Problems, "; ")
}

type Hasher struct {
	cfg config.AuthConfig
}

func NewHasher(cfg config.AuthConfig) *Hasher {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Hasher{cfg: cfg}
}

func (h *Hasher) Validate(password string) error {
	var problems []string

	if len(password) < h.cfg.MinLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters", h.cfg.MinLength))
	}
	if len(password) > 72 {
		problems = append(problems, "must be at most 72 bytes")
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []string
	if h.cfg.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if h.cfg.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if h.cfg.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if h.cfg.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}
	if len(missing) > 0 {
		problems = append(problems, "must contain at least "+strings.Join(missing, ", "))
	}

	if len(problems) > 0 {
		return &PolicyError{Problems: problems}
	}
	return nil
}

func (h *Hasher) Hash(password string) (string, error) {
	if err := h.Validate(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPasswordHashingFailed, err)
	}
	return string(hash), nil
}

func (h *Hasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
