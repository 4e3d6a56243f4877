package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/engramdb/engram/internal/config"
	"github.com/engramdb/engram/pkg/embeddings"
	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/metrics"
	"github.com/engramdb/engram/pkg/textchunk"
)

// Embedder produces one embedding vector per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the persistence surface the pipeline drives.
type Store interface {
	ClaimPending(ctx context.Context, limit int) ([]*Pending, error)
	WriteEmbeddings(ctx context.Context, updates []Update) error
	Release(ctx context.Context, ids []int64) error
	SplitAndArchive(ctx context.Context, original *Pending, chunks []Chunk) error
}

// Report summarizes one pipeline run.
type Report struct {
	RunID     string        `json:"run_id"`
	Claimed   int           `json:"claimed"`
	Processed int           `json:"processed"`
	Split     int           `json:"split"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration_ms"`
}

// Service runs the embedding pipeline: claim unembedded observations,
// chunk the oversized ones, embed, and write back in batches.
type Service struct {
	store    Store
	embedder Embedder
	chunkCfg textchunk.Config
	batch    int
	log      *slog.Logger
}

// NewService creates a new pipeline service
func NewService(repo *Repository, embedder *embeddings.Failover, cfg *config.Config, log *slog.Logger) *Service {
	return newService(repo, embedder, textchunk.Config{
		MaxChars:     cfg.Pipeline.MaxChunkChars,
		OverlapChars: cfg.Pipeline.ChunkOverlap,
	}, cfg.Pipeline.BatchCommitSize, log)
}

func newService(store Store, embedder Embedder, chunkCfg textchunk.Config, batch int, log *slog.Logger) *Service {
	if batch <= 0 {
		batch = 10
	}
	return &Service{
		store:    store,
		embedder: embedder,
		chunkCfg: chunkCfg,
		batch:    batch,
		log:      log.With(logger.Scope("pipeline")),
	}
}

// Run claims up to limit pending observations and embeds them. A row
// whose embedding fails is counted, released and skipped; only a store
// failure aborts the run, releasing the remaining claims.
func (s *Service) Run(ctx context.Context, limit int) (*Report, error) {
	started := time.Now()
	report := &Report{RunID: uuid.NewString()}
	metrics.PipelineRuns.Inc()
	defer func() {
		report.Duration = time.Since(started)
		metrics.PipelineRunDuration.Observe(report.Duration.Seconds())
	}()

	claimed, err := s.store.ClaimPending(ctx, limit)
	if err != nil {
		return report, err
	}
	report.Claimed = len(claimed)
	if len(claimed) == 0 {
		return report, nil
	}

	s.log.Info("pipeline run started",
		slog.String("run_id", report.RunID),
		slog.Int("claimed", len(claimed)),
	)

	var pending []Update
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.store.WriteEmbeddings(ctx, pending); err != nil {
			return err
		}
		report.Processed += len(pending)
		metrics.PipelineProcessed.Add(float64(len(pending)))
		pending = pending[:0]
		return nil
	}

	for i, row := range claimed {
		if err := ctx.Err(); err != nil {
			s.releaseFrom(ctx, claimed[i:], pending)
			return report, err
		}

		split, err := s.processRow(ctx, row, &pending)
		if err != nil {
			var re rowError
			if !errors.As(err, &re) {
				// store failure, nothing more can be written
				s.releaseFrom(ctx, claimed[i:], pending)
				return report, err
			}
			report.Errors++
			metrics.PipelineErrors.Inc()
			s.log.Warn("observation skipped",
				slog.Int64("id", row.ID),
				logger.Error(re.err),
			)
			if err := s.store.Release(ctx, []int64{row.ID}); err != nil {
				s.log.Error("failed to release claim",
					slog.Int64("id", row.ID),
					logger.Error(err),
				)
			}
			continue
		}
		if split {
			report.Split++
			report.Processed++
			metrics.PipelineSplits.Inc()
			metrics.PipelineProcessed.Inc()
		}
		if len(pending) >= s.batch {
			if err := flush(); err != nil {
				s.releaseFrom(ctx, claimed[i+1:], pending)
				return report, err
			}
		}
	}
	if err := flush(); err != nil {
		s.releaseFrom(ctx, nil, pending)
		return report, err
	}

	s.log.Info("pipeline run finished",
		slog.String("run_id", report.RunID),
		slog.Int("processed", report.Processed),
		slog.Int("split", report.Split),
		slog.Int("errors", report.Errors),
		slog.Duration("took", time.Since(started)),
	)
	return report, nil
}

func (s *Service) processRow(ctx context.Context, row *Pending, pending *[]Update) (split bool, err error) {
	result := textchunk.Split(row.Text, s.chunkCfg)

	if len(result.Chunks) <= 1 {
		vec, err := s.embedder.Embed(ctx, row.Text)
		if err != nil {
			return false, rowError{err}
		}
		*pending = append(*pending, Update{ID: row.ID, Vector: vec})
		return false, nil
	}

	if result.Degraded {
		s.log.Warn("no clean split boundary found, cutting at word boundaries",
			slog.Int64("id", row.ID),
			slog.Int("chars", len(row.Text)),
		)
	}

	chunks := make([]Chunk, 0, len(result.Chunks))
	for _, text := range result.Chunks {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return false, rowError{err}
		}
		chunks = append(chunks, Chunk{Text: text, Vector: vec})
	}

	if err := s.store.SplitAndArchive(ctx, row, chunks); err != nil {
		return false, err
	}
	return true, nil
}

// releaseFrom returns unprocessed claims to the pool, including rows
// already embedded but not yet flushed.
func (s *Service) releaseFrom(ctx context.Context, remaining []*Pending, buffered []Update) {
	ids := make([]int64, 0, len(remaining)+len(buffered))
	for _, row := range remaining {
		ids = append(ids, row.ID)
	}
	for _, u := range buffered {
		ids = append(ids, u.ID)
	}
	if err := s.store.Release(context.WithoutCancel(ctx), ids); err != nil {
		s.log.Error("failed to release claims", logger.Error(err))
	}
}

// rowError marks a failure scoped to one observation. Anything else
// coming out of processRow is a store failure and aborts the run.
type rowError struct {
	err error
}

func (e rowError) Error() string { return e.err.Error() }

func (e rowError) Unwrap() error { return e.err }
