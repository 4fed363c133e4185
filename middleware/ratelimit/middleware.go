package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      config.CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
	Logger         *logging.Service
}

// Middleware applies a fixed-window limit per key. Store failures let the
// request through and are logged.
func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}
	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}
	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.KeyGenerator(c)
			resetTime := time.Now().Add(cfg.Period)

			count, existingReset, exists, err := cfg.Store.Get(ctx, key)
			if err != nil {
				cfg.Logger.Error("rate limit store unavailable", zap.Error(err))
				return next(c)
			}
			if exists {
				resetTime = existingReset
			}

			reject := func() error {
				setHeaders(c, cfg.Rate, 0, resetTime)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetTime).Seconds())+1))
				cfg.Logger.Warn("rate limit reached", zap.String("key", key), zap.String("path", c.Path()))
				return cfg.OnLimitReached(c)
			}

			// the increment decides, so concurrent requests cannot all pass
			// on the same stale count
			if cfg.CountMode == config.CountAll {
				newCount, err := cfg.Store.Increment(ctx, key, resetTime)
				if err != nil {
					cfg.Logger.Error("rate limit increment failed", zap.Error(err))
					return next(c)
				}
				if newCount > cfg.Rate {
					return reject()
				}
				setHeaders(c, cfg.Rate, cfg.Rate-newCount, resetTime)
				return next(c)
			}

			if count >= cfg.Rate {
				return reject()
			}

			setHeaders(c, cfg.Rate, cfg.Rate-count, resetTime)
			err = next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}

			var counted bool
			switch cfg.CountMode {
			case config.CountFailures:
				counted = status >= http.StatusBadRequest
			case config.CountSuccess:
				counted = status < http.StatusBadRequest
			}
			if counted {
				if _, incErr := cfg.Store.Increment(ctx, key, resetTime); incErr != nil {
					cfg.Logger.Error("rate limit increment failed", zap.Error(incErr))
				}
			}

			return err
		}
	}
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

func DefaultKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()
	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}
	return "rate_limit:" + realIP
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
}
