package handlers

import (
	"github.com/tech-arch1tect/ecostep/session"
	"go.uber.org/fx"
)

func ProvideSessionStore(s *session.Service) SessionStore {
	return s
}

var Module = fx.Options(
	fx.Provide(ProvideSessionStore),
	fx.Provide(New),
)
