package app

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/server"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const stopTimeout = 30 * time.Second

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	db     *gorm.DB
	server *server.Server
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the application and blocks until SIGINT/SIGTERM or a fatal
// server error, then stops gracefully. It returns the process exit code.
func (a *App) Run() int {
	if err := a.Start(context.Background()); err != nil {
		a.logger.Error("failed to start application", zap.Error(err))
		return 1
	}

	signal := <-a.fx.Wait()
	a.logger.Info("shutting down", zap.Any("signal", signal.Signal))

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := a.Stop(ctx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
		return 1
	}
	return signal.ExitCode
}

func (a *App) Echo() *echo.Echo {
	return a.server.Echo()
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}
