package app

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/database"
	"github.com/tech-arch1tect/ecostep/handlers"
	"github.com/tech-arch1tect/ecostep/middleware/csrf"
	"github.com/tech-arch1tect/ecostep/middleware/ratelimit"
	"github.com/tech-arch1tect/ecostep/server"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/assessment"
	"github.com/tech-arch1tect/ecostep/services/auth"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"github.com/tech-arch1tect/ecostep/services/mail"
	"github.com/tech-arch1tect/ecostep/services/metrics"
	"github.com/tech-arch1tect/ecostep/services/sitemap"
	"github.com/tech-arch1tect/ecostep/services/templates"
	"github.com/tech-arch1tect/ecostep/services/token"
	"github.com/tech-arch1tect/ecostep/session"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Models are migrated on start when DATABASE_AUTO_MIGRATE is set, and by
// the migrate command.
func Models() []any {
	return []any{
		&accounts.Account{},
		&session.UserSession{},
		&assessment.Result{},
	}
}

type AppBuilder struct {
	config    *config.Config
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.errors = append(b.errors, errors.New("config cannot be nil"))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.errors = append(b.errors, fmt.Errorf("failed to load config: %w", err))
		return b
	}
	b.config = cfg
	return b
}

// WithFxOptions adds options after the application graph, e.g. fx.Decorate
// in tests.
func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}

	a := &App{config: b.config}

	options := []fx.Option{
		Options(b.config),
		fx.Populate(&a.server, &a.db, &a.logger),
	}
	options = append(options, b.fxOptions...)

	a.fx = fx.New(options...)
	if err := a.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	return a, nil
}

// Options is the full dependency graph of the web application.
func Options(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Supply(database.WithModels(Models()...)),
		fx.NopLogger,

		logging.Module,
		database.Module,
		metrics.Module,
		templates.Module,
		token.Module,
		accounts.Module,
		mail.Module,
		auth.Module,
		session.Module,
		assessment.Module,
		sitemap.Module,
		ratelimit.Module,
		handlers.Module,
		server.Module,

		fx.Invoke(registerMiddleware),
		fx.Invoke(registerRoutes),
	)
}

// registerMiddleware installs the global chain. Metrics sit outside the
// session so they observe the final status; CSRF runs inside it so its
// rejections are rendered before the session commits.
func registerMiddleware(srv *server.Server, cfg *config.Config, m *metrics.Service, manager *session.Manager, sessions *session.Service) {
	e := srv.Echo()
	e.Use(m.Middleware())
	if cfg.Session.Enabled {
		e.Use(session.Middleware(manager))
		e.Use(sessions.TouchMiddleware())
	}
	e.Use(csrf.Middleware(&cfg.CSRF))
}

func registerRoutes(srv *server.Server, cfg *config.Config, h *handlers.Handler, limiter *ratelimit.Limiter, m *metrics.Service, db *gorm.DB) {
	e := srv.Echo()
	handlers.RegisterRoutes(e, h, limiter)
	metrics.RegisterRoute(e, cfg, m)
	server.RegisterHealth(e, db)
}
