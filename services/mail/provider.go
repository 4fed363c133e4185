package mail

import (
	"context"
	"fmt"

	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"github.com/tech-arch1tect/ecostep/services/metrics"
	"go.uber.org/fx"
)

// NewSender builds the configured driver and wraps it with retry.
func NewSender(cfg config.MailConfig, logger *logging.Service) (Sender, error) {
	var (
		base Sender
		err  error
	)

	switch cfg.Driver {
	case "smtp":
		base, err = NewSMTPSender(cfg, logger)
	case "ses":
		base, err = NewSESSender(context.Background(), cfg, logger)
	case "log", "":
		base = NewLogSender(logger)
	default:
		return nil, fmt.Errorf("unsupported mail driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries == 0 {
		return base, nil
	}
	return NewRetrySender(base, cfg.MaxRetries, cfg.RetryDelay, logger), nil
}

func ProvideSender(cfg *config.Config, m *metrics.Service, logger *logging.Service) (Sender, error) {
	sender, err := NewSender(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return sender, nil
	}
	return NewInstrumentedSender(sender, m), nil
}

func ProvideComposer(cfg *config.Config) (*Composer, error) {
	return NewComposer(cfg.App.TeamName)
}

var Module = fx.Options(
	fx.Provide(ProvideSender),
	fx.Provide(ProvideComposer),
)
