package token

import (
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/fx"
)

func ProvideCodec(cfg *config.Config, logger *logging.Service) (*Codec, error) {
	return NewCodec(cfg.Token, WithLogger(logger))
}

var Module = fx.Options(
	fx.Provide(ProvideCodec),
)
