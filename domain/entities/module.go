package entities

import (
	"go.uber.org/fx"
)

var Module = fx.Module("entities",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
