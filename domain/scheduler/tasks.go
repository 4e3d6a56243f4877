package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/engramdb/engram/domain/pipeline"
	"github.com/engramdb/engram/pkg/logger"
)

// EmbedPipelineTask runs the embedding pipeline on a schedule so new
// observations get vectors without anyone calling the API.
type EmbedPipelineTask struct {
	svc        *pipeline.Service
	batchLimit int
	log        *slog.Logger
}

// NewEmbedPipelineTask creates a new embedding pipeline task
func NewEmbedPipelineTask(svc *pipeline.Service, batchLimit int, log *slog.Logger) *EmbedPipelineTask {
	return &EmbedPipelineTask{
		svc:        svc,
		batchLimit: batchLimit,
		log:        log.With(logger.Scope("scheduler.embed_pipeline")),
	}
}

// Run executes one pipeline pass
func (t *EmbedPipelineTask) Run(ctx context.Context) error {
	start := time.Now()

	report, err := t.svc.Run(ctx, t.batchLimit)
	if err != nil {
		t.log.Error("scheduled pipeline run failed",
			logger.Error(err),
			slog.Duration("duration", time.Since(start)))
		return err
	}

	if report.Claimed > 0 {
		t.log.Info("scheduled pipeline run completed",
			slog.String("run_id", report.RunID),
			slog.Int("processed", report.Processed),
			slog.Int("split", report.Split),
			slog.Int("errors", report.Errors),
			slog.Duration("duration", time.Since(start)))
	}
	return nil
}
