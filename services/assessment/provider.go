package assessment

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(LoadQuestionnaire),
	fx.Provide(NewService),
)
