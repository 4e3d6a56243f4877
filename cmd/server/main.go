// Package main provides the entry point for the Engram memory server
//
// @title Engram API
// @version 0.3.0
// @description Semantic memory engine: capture observations, embed them and search by meaning
// @host localhost:5580
// @BasePath /
// @schemes http
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/engramdb/engram/domain/entities"
	"github.com/engramdb/engram/domain/graph"
	"github.com/engramdb/engram/domain/health"
	"github.com/engramdb/engram/domain/insights"
	"github.com/engramdb/engram/domain/observations"
	"github.com/engramdb/engram/domain/pipeline"
	"github.com/engramdb/engram/domain/scheduler"
	"github.com/engramdb/engram/domain/search"
	"github.com/engramdb/engram/domain/tracing"
	"github.com/engramdb/engram/internal/config"
	"github.com/engramdb/engram/internal/database"
	"github.com/engramdb/engram/internal/server"
	"github.com/engramdb/engram/pkg/embeddings"
	"github.com/engramdb/engram/pkg/logger"
)

func main() {
	// Load .env files if present (for local development)
	// Note: Load() won't overwrite existing vars, Overload() will
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		server.Module,
		tracing.Module,

		// Embeddings module (provider facade with failover)
		embeddings.Module,

		// Domain modules
		health.Module,
		entities.Module,
		observations.Module,
		pipeline.Module,
		search.Module,
		graph.Module,
		insights.Module,

		// Scheduler module (cron-based background embedding)
		scheduler.Module,
	).Run()
}
