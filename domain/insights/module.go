package insights

import (
	"go.uber.org/fx"
)

var Module = fx.Module("insights",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
