package auth

import (
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"go.uber.org/fx"
)

func ProvideAccountStore(store *accounts.Store) AccountStore {
	return store
}

var Module = fx.Options(
	fx.Provide(ProvideAccountStore),
	fx.Provide(NewService),
)
