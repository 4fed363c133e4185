package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Templates TemplatesConfig `envPrefix:"TEMPLATES_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	Token     TokenConfig     `envPrefix:"TOKEN_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	CSRF      CSRFConfig      `envPrefix:"CSRF_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

type AppConfig struct {
	Name     string `env:"NAME" envDefault:"EcoStep"`
	URL      string `env:"URL" envDefault:"http://localhost:8080"`
	TeamName string `env:"TEAM_NAME" envDefault:"EcoStep Team"`
}

type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	Host           string   `env:"HOST" envDefault:"localhost"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	// AllowedHosts limits which Host headers absolute links may be built
	// from. Empty means only the host of APP_URL. An entry starting with a
	// dot also matches its subdomains.
	AllowedHosts []string `env:"ALLOWED_HOSTS" envSeparator:","`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type TemplatesConfig struct {
	// Dir overrides the embedded page templates when set.
	Dir         string `env:"DIR"`
	Extension   string `env:"EXTENSION" envDefault:".html"`
	Development bool   `env:"DEVELOPMENT" envDefault:"false"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"ecostep.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type SessionConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Store    string        `env:"STORE" envDefault:"database"`
	Name     string        `env:"NAME" envDefault:"ecostep_session"`
	MaxAge   time.Duration `env:"MAX_AGE" envDefault:"336h"`
	Path     string        `env:"PATH" envDefault:"/"`
	Domain   string        `env:"DOMAIN"`
	Secure   bool          `env:"SECURE" envDefault:"false"`
	HttpOnly bool          `env:"HTTP_ONLY" envDefault:"true"`
	SameSite string        `env:"SAME_SITE" envDefault:"lax"`
}

// TokenConfig holds the process-wide signing key and expiry windows for
// email verification and password reset links.
type TokenConfig struct {
	Secret    string        `env:"SECRET"`
	VerifyTTL time.Duration `env:"VERIFY_TTL" envDefault:"24h"`
	ResetTTL  time.Duration `env:"RESET_TTL" envDefault:"30m"`
}

type AuthConfig struct {
	MinLength      int  `env:"MIN_LENGTH" envDefault:"8"`
	RequireUpper   bool `env:"REQUIRE_UPPER" envDefault:"false"`
	RequireLower   bool `env:"REQUIRE_LOWER" envDefault:"false"`
	RequireNumber  bool `env:"REQUIRE_NUMBER" envDefault:"false"`
	RequireSpecial bool `env:"REQUIRE_SPECIAL" envDefault:"false"`
	BcryptCost     int  `env:"BCRYPT_COST" envDefault:"10"`
}

type MailConfig struct {
	Driver      string        `env:"DRIVER" envDefault:"log"`
	Host        string        `env:"HOST" envDefault:"localhost"`
	Port        int           `env:"PORT" envDefault:"587"`
	Username    string        `env:"USERNAME"`
	Password    string        `env:"PASSWORD"`
	Encryption  string        `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress string        `env:"FROM_ADDRESS" envDefault:"no-reply@ecostep.local"`
	FromName    string        `env:"FROM_NAME" envDefault:"EcoStep"`
	MaxRetries  uint64        `env:"MAX_RETRIES" envDefault:"3"`
	RetryDelay  time.Duration `env:"RETRY_DELAY" envDefault:"500ms"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"15s"`
	SESRegion   string        `env:"SES_REGION" envDefault:"us-east-1"`
}

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type RateLimitConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"true"`
	Store     string        `env:"STORE" envDefault:"memory"`
	RedisURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Rate      int           `env:"RATE" envDefault:"10"`
	Period    time.Duration `env:"PERIOD" envDefault:"1m"`
	CountMode CountingMode  `env:"COUNT_MODE" envDefault:"all"`
}

type CSRFConfig struct {
	Enabled        bool   `env:"ENABLED" envDefault:"true"`
	TokenLength    uint8  `env:"TOKEN_LENGTH" envDefault:"32"`
	TokenLookup    string `env:"TOKEN_LOOKUP" envDefault:"form:csrf_token,header:X-CSRF-Token"`
	ContextKey     string `env:"CONTEXT_KEY" envDefault:"csrf"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"_csrf"`
	CookieDomain   string `env:"COOKIE_DOMAIN"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieMaxAge   int    `env:"COOKIE_MAX_AGE" envDefault:"86400"`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"lax"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validateTokenConfig(&c.Token); err != nil {
		return err
	}

	switch c.Mail.Driver {
	case "smtp", "ses", "log":
	default:
		return fmt.Errorf("unsupported mail driver: %s (supported: smtp, ses, log)", c.Mail.Driver)
	}

	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported rate limit store: %s (supported: memory, redis)", c.RateLimit.Store)
	}

	return nil
}

// HostAllowed reports whether a request Host header may be used to build
// absolute links. Ports are ignored.
func (c *Config) HostAllowed(host string) bool {
	name := hostname(host)
	if name == "" {
		return false
	}

	allowed := c.Server.AllowedHosts
	if len(allowed) == 0 {
		u, err := url.Parse(c.App.URL)
		if err != nil {
			return false
		}
		allowed = []string{u.Host}
	}

	for _, entry := range allowed {
		pattern := hostname(entry)
		switch {
		case pattern == "":
			continue
		case strings.HasPrefix(pattern, "."):
			if name == pattern[1:] || strings.HasSuffix(name, pattern) {
				return true
			}
		case name == pattern:
			return true
		}
	}
	return false
}

func hostname(hostport string) string {
	h := strings.ToLower(strings.TrimSpace(hostport))
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.TrimSuffix(strings.Trim(h, "[]"), ".")
}

// TrustsProxy reports whether remoteAddr (host:port or bare IP) is one of
// the trusted proxies. Invalid entries never match.
func (s ServerConfig) TrustsProxy(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, proxy := range s.TrustedProxies {
		proxy = strings.TrimSpace(proxy)
		if pip := net.ParseIP(proxy); pip != nil {
			if pip.Equal(ip) {
				return true
			}
			continue
		}
		if _, ipNet, err := net.ParseCIDR(proxy); err == nil && ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

func validateTokenConfig(cfg *TokenConfig) error {
	if len(cfg.Secret) < 32 {
		return fmt.Errorf("token secret must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.Secret)
	for _, pattern := range []string{"changeme", "change-me", "secret-key", "example"} {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("token secret contains weak patterns")
		}
	}

	if cfg.VerifyTTL <= 0 || cfg.ResetTTL <= 0 {
		return fmt.Errorf("token expiry windows must be positive")
	}

	return nil
}
