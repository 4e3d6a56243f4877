package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/engramdb/engram/domain/entities"
	"github.com/engramdb/engram/domain/observations"
	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/pgutils"
)

// Pending is an observation claimed for embedding.
type Pending struct {
	ID            int64                  `bun:"id"`
	EntityID      int64                  `bun:"entity_id"`
	Text          string                 `bun:"text"`
	SequenceIndex int                    `bun:"sequence_index"`
	Category      string                 `bun:"category"`
	Importance    float64                `bun:"importance"`
	Tags          []string               `bun:"tags,array"`
	Metadata      *observations.Metadata `bun:"metadata"`
	CreatedAt     time.Time              `bun:"created_at"`
}

// Update is one computed embedding ready to be written back.
type Update struct {
	ID     int64
	Vector []float32
}

// Chunk is one piece of a split observation with its embedding.
type Chunk struct {
	Text   string
	Vector []float32
}

// Repository handles the pipeline's claim and write-back SQL.
type Repository struct {
	db       bun.IDB
	claimTTL time.Duration
	log      *slog.Logger
}

// NewRepository creates a new pipeline repository
func NewRepository(db bun.IDB, claimTTL time.Duration, log *slog.Logger) *Repository {
	if claimTTL <= 0 {
		claimTTL = 10 * time.Minute
	}
	return &Repository{
		db:       db,
		claimTTL: claimTTL,
		log:      log.With(logger.Scope("pipeline.repo")),
	}
}

// ClaimPending atomically claims up to limit unembedded observations.
// SKIP LOCKED lets concurrent workers claim disjoint sets; claims older
// than the TTL are treated as abandoned and reclaimed.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]*Pending, error) {
	// limit <= 0 claims everything pending
	limitClause := "LIMIT ALL"
	args := []any{intervalLiteral(r.claimTTL)}
	if limit > 0 {
		limitClause = "LIMIT ?"
		args = append(args, limit)
	}

	var rows []*Pending
	err := r.db.NewRaw(`
		UPDATE memory.observations o
		SET embed_claimed_at = now(),
		    embed_attempts = o.embed_attempts + 1
		FROM (
			SELECT id
			FROM memory.observations
			WHERE embedding IS NULL
			  AND (embed_claimed_at IS NULL OR embed_claimed_at < now() - ?::interval)
			ORDER BY id ASC
			`+limitClause+`
			FOR UPDATE SKIP LOCKED
		) claimed
		WHERE o.id = claimed.id
		RETURNING o.id, o.entity_id, o.text, o.sequence_index, o.category,
		          o.importance, o.tags, o.metadata, o.created_at
	`, args...).Scan(ctx, &rows)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// WriteEmbeddings writes a batch of embeddings in one transaction and
// clears the claims.
func (r *Repository) WriteEmbeddings(ctx context.Context, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, u := range updates {
			_, err := tx.ExecContext(ctx, `
				UPDATE memory.observations
				SET embedding = ?::vector, embed_claimed_at = NULL
				WHERE id = ?
			`, pgutils.FormatVector(u.Vector), u.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Release clears claims without writing embeddings, so the rows become
// claimable again immediately.
func (r *Repository) Release(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.NewUpdate().
		Model((*observations.Observation)(nil)).
		Set("embed_claimed_at = NULL").
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// SplitAndArchive replaces an oversized observation with its embedded
// chunks. The original is copied to the archive and deleted, and the
// entity's observation count is adjusted, all in one transaction.
func (r *Repository) SplitAndArchive(ctx context.Context, original *Pending, chunks []Chunk) error {
	if len(chunks) == 0 {
		return apperror.NewInternal("split produced no chunks", nil)
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO memory.observations_archive
				(id, entity_id, text, sequence_index, category, importance,
				 tags, metadata, created_at, archived_at)
			SELECT id, entity_id, text, sequence_index, category, importance,
			       tags, metadata, created_at, now()
			FROM memory.observations
			WHERE id = ?
		`, original.ID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM memory.observations WHERE id = ?", original.ID); err != nil {
			return err
		}

		metaJSON, err := json.Marshal(original.Metadata)
		if err != nil {
			return err
		}

		for _, chunk := range chunks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO memory.observations
					(entity_id, text, sequence_index, category, importance,
					 tags, metadata, created_at, embedding)
				VALUES (?,
				        ?,
				        (SELECT COALESCE(MAX(sequence_index), 0) + 1
				         FROM memory.observations WHERE entity_id = ?),
				        ?, ?, ?, ?::jsonb, ?, ?::vector)
			`, original.EntityID, chunk.Text, original.EntityID,
				original.Category, original.Importance,
				pgdialect.Array(original.Tags), string(metaJSON), original.CreatedAt,
				pgutils.FormatVector(chunk.Vector))
			if err != nil {
				return err
			}
		}

		return entities.IncrementObservationCount(ctx, tx, original.EntityID, len(chunks)-1)
	})
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}

	r.log.Info("observation split",
		slog.Int64("id", original.ID),
		slog.Int("chunks", len(chunks)),
	)
	return nil
}

// PendingCount reports how many observations still lack an embedding.
func (r *Repository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.NewRaw(
		"SELECT COUNT(*) FROM memory.observations WHERE embedding IS NULL",
	).Scan(ctx, &count)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return count, nil
}

func intervalLiteral(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int(d.Seconds()))
}
