package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/config"
	"go.uber.org/fx"
)

// ProvideService returns nil when metrics are disabled; every method on a
// nil *Service is a no-op.
func ProvideService(cfg *config.Config) *Service {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return NewService()
}

// RegisterRoute exposes the registry on the configured path.
func RegisterRoute(e *echo.Echo, cfg *config.Config, s *Service) {
	if s == nil {
		return
	}
	path := cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	e.GET(path, echo.WrapHandler(s.Handler()))
}

var Module = fx.Options(
	fx.Provide(ProvideService),
)
