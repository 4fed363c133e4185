package accounts

import (
	"github.com/tech-arch1tect/ecostep/config"
	"go.uber.org/fx"
)

func ProvideHasher(cfg *config.Config) *Hasher {
	return NewHasher(cfg.Auth)
}

var Module = fx.Options(
	fx.Provide(ProvideHasher),
	fx.Provide(NewStore),
	fx.Provide(NewService),
)
