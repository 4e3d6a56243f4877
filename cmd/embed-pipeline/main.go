// Command embed-pipeline runs the embedding pipeline outside the
// server, either once or in a polling loop.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/engramdb/engram/domain/pipeline"
	"github.com/engramdb/engram/internal/config"
	"github.com/engramdb/engram/pkg/embeddings"
	"github.com/engramdb/engram/pkg/logger"
)

func main() {
	batch := flag.Int("batch", 0, "max observations per run (0 uses the claim default)")
	loop := flag.Bool("loop", false, "keep polling instead of running once")
	interval := flag.Duration("interval", time.Minute, "polling interval when -loop is set")
	flag.Parse()

	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.NewConfig(log)
	if err != nil {
		log.Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN())))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	embedder := embeddings.NewFailoverFromConfig(cfg, log)
	repo := pipeline.NewRepository(db, cfg.Pipeline.ClaimTTL, log)
	svc := pipeline.NewService(repo, embedder, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		report, err := svc.Run(ctx, *batch)
		if err != nil {
			log.Error("pipeline run failed", logger.Error(err))
			return
		}
		log.Info("pipeline run finished",
			slog.String("run_id", report.RunID),
			slog.Int("claimed", report.Claimed),
			slog.Int("processed", report.Processed),
			slog.Int("split", report.Split),
			slog.Int("errors", report.Errors),
		)
	}

	runOnce()
	if !*loop {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
