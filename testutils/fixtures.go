package testutils

import (
	"time"

	"github.com/tech-arch1tect/ecostep/config"
	"golang.org/x/crypto/bcrypt"
)

const TestTokenSecret = "test-signing-key-0123456789abcdefghij"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:     "EcoStep",
			URL:      "http://localhost:8080",
			TeamName: "EcoStep Team",
		},
		Server: config.ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "json",
			Output: "stdout",
		},
		Templates: config.TemplatesConfig{
			Extension: ".html",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Session: config.SessionConfig{
			Enabled:  true,
			Store:    "memory",
			Name:     "ecostep_session",
			MaxAge:   24 * time.Hour,
			Path:     "/",
			HttpOnly: true,
			SameSite: "lax",
		},
		Token: config.TokenConfig{
			Secret:    TestTokenSecret,
			VerifyTTL: 24 * time.Hour,
			ResetTTL:  30 * time.Minute,
		},
		Auth: config.AuthConfig{
			MinLength:  8,
			BcryptCost: bcrypt.MinCost,
		},
		Mail: config.MailConfig{
			Driver:      "log",
			FromAddress: "no-reply@ecostep.test",
			FromName:    "EcoStep",
		},
		RateLimit: config.RateLimitConfig{
			Enabled:   true,
			Store:     "memory",
			Rate:      5,
			Period:    time.Minute,
			CountMode: config.CountAll,
		},
		CSRF: config.CSRFConfig{
			Enabled:     false,
			TokenLength: 32,
			TokenLookup: "form:csrf_token",
			ContextKey:  "csrf",
			CookieName:  "_csrf",
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

var TestPasswords = struct {
	Valid    string
	Other    string
	TooShort string
}{
	Valid:    "oldpass123",
	Other:    "newpass123",
	TooShort: "short",
}

var TestEmails = struct {
	Pending string
	Active  string
	Unknown string
}{
	Pending: "a@example.com",
	Active:  "b@example.com",
	Unknown: "nobody@example.com",
}
