package pipeline

import (
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/engramdb/engram/internal/config"
)

var Module = fx.Module("pipeline",
	fx.Provide(
		func(db bun.IDB, cfg *config.Config, log *slog.Logger) *Repository {
			return NewRepository(db, cfg.Pipeline.ClaimTTL, log)
		},
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
