package session

import (
	"context"

	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func registerCleanup(lc fx.Lifecycle, tracker *Tracker, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			removed, err := tracker.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("failed to clean up expired sessions", zap.Error(err))
				return nil
			}
			if removed > 0 {
				logger.Info("removed expired sessions", zap.Int64("count", removed))
			}
			return nil
		},
	})
}

var Module = fx.Module("session",
	fx.Provide(ProvideSessionManager),
	fx.Provide(NewTracker),
	fx.Provide(NewService),
	fx.Invoke(registerCleanup),
)
