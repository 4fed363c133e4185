package templates

import (
	"context"

	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/fx"
)

func ProvideService(cfg *config.Config, logger *logging.Service) *Service {
	return New(cfg.Templates, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideService),
	fx.Invoke(func(lc fx.Lifecycle, svc *Service) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return svc.LoadTemplates()
			},
		})
	}),
)
