package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"github.com/tech-arch1tect/ecostep/services/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewStore(ctx context.Context, cfg config.RateLimitConfig) (Store, error) {
	switch cfg.Store {
	case "redis":
		return NewRedisStoreFromURL(ctx, cfg.RedisURL)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", cfg.Store)
	}
}

func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (Store, error) {
	store, err := NewStore(context.Background(), cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	if rs, ok := store.(*RedisStore); ok {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return rs.Close()
			},
		})
	}

	logger.Info("rate limit store ready", zap.String("store", cfg.RateLimit.Store))
	return store, nil
}

// Limiter is the per-IP budget shared by every form submission. Only POST
// requests are counted; rejected requests surface as a 429 HTTPError.
type Limiter struct {
	middleware echo.MiddlewareFunc
	enabled    bool
}

func NewLimiter(cfg *config.Config, store Store, m *metrics.Service, logger *logging.Service) *Limiter {
	return &Limiter{
		enabled: cfg.RateLimit.Enabled,
		middleware: Middleware(&Config{
			Store:     store,
			Rate:      cfg.RateLimit.Rate,
			Period:    cfg.RateLimit.Period,
			CountMode: cfg.RateLimit.CountMode,
			Logger:    logger.Named("ratelimit"),
			OnLimitReached: func(c echo.Context) error {
				m.RecordRateLimited(c.Path())
				return DefaultOnLimitReached(c)
			},
		}),
	}
}

func (l *Limiter) Middleware() echo.MiddlewareFunc {
	if l == nil || !l.enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		limited := l.middleware(next)
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodPost {
				return next(c)
			}
			return limited(c)
		}
	}
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(NewLimiter),
)
