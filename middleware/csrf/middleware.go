package csrf

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/ecostep/config"
)

const defaultContextKey = "csrf"

// Middleware protects unsafe methods with a double-submit cookie. Missing
// and mismatched tokens both produce a 403.
func Middleware(cfg *config.CSRFConfig) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	var sameSite http.SameSite
	switch cfg.CookieSameSite {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "none":
		sameSite = http.SameSiteNoneMode
	default:
		sameSite = http.SameSiteDefaultMode
	}

	contextKey := cfg.ContextKey
	if contextKey == "" {
		contextKey = defaultContextKey
	}

	csrf := middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLength:    cfg.TokenLength,
		TokenLookup:    cfg.TokenLookup,
		ContextKey:     contextKey,
		CookieName:     cfg.CookieName,
		CookieDomain:   cfg.CookieDomain,
		CookiePath:     cfg.CookiePath,
		CookieMaxAge:   cfg.CookieMaxAge,
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: cfg.CookieHTTPOnly,
		CookieSameSite: sameSite,
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "CSRF verification failed").SetInternal(err)
		},
	})

	if contextKey == defaultContextKey {
		return csrf
	}

	// GetToken always reads the default key.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return csrf(func(c echo.Context) error {
			c.Set(defaultContextKey, c.Get(contextKey))
			return next(c)
		})
	}
}

// GetToken returns the token to embed in forms, or "" when protection is
// off.
func GetToken(c echo.Context) string {
	if token, ok := c.Get(defaultContextKey).(string); ok {
		return token
	}
	return ""
}
