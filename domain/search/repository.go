package search

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/pgutils"
)

// Hit is one similarity search result.
type Hit struct {
	ID         int64     `json:"observation_id"`
	EntityID   int64     `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	Text       string    `json:"text"`
	Category   string    `json:"category"`
	Importance float64   `json:"importance"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity"`
	Source     string    `json:"source"`
}

// Repository runs pgvector similarity queries.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new search repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("search.repo")),
	}
}

const activeQuery = `
	SELECT o.id, o.entity_id, e.name AS entity_name, o.text, o.category,
	       o.importance, o.tags, o.created_at,
	       1 - (o.embedding <=> ?::vector) AS similarity,
	       'active' AS source
	FROM memory.observations o
	JOIN memory.entities e ON e.id = o.entity_id
	WHERE o.embedding IS NOT NULL`

const archiveQuery = `
	SELECT oa.id, oa.entity_id, e.name AS entity_name, oa.text, oa.category,
	       oa.importance, oa.tags, oa.created_at,
	       1 - (oa.embedding <=> ?::vector) AS similarity,
	       'archive' AS source
	FROM memory.observations_archive oa
	JOIN memory.entities e ON e.id = oa.entity_id
	WHERE oa.embedding IS NOT NULL`

// rankClause ranks hits by similarity with the id as a tie-break, so
// rows scoring identically (chunk siblings, most often) page stably
// across repeated queries.
const rankClause = `
	) hits
	WHERE hits.similarity >= ?
	ORDER BY hits.similarity DESC, hits.id ASC
	LIMIT ?`

// Search returns the k most similar observations above the similarity
// floor, scanning the archive too when includeArchive is set.
func (r *Repository) Search(ctx context.Context, vector []float32, k int, minSimilarity float64, includeArchive bool) ([]Hit, error) {
	vec := pgutils.FormatVector(vector)

	query := "SELECT * FROM (" + activeQuery
	args := []any{vec}
	if includeArchive {
		query += "\n\tUNION ALL\n" + archiveQuery
		args = append(args, vec)
	}
	query += rankClause
	args = append(args, minSimilarity, k)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// SimilarTo returns the k nearest active neighbors of a stored
// observation, excluding the observation itself.
func (r *Repository) SimilarTo(ctx context.Context, id int64, k int, minSimilarity float64) ([]Hit, error) {
	literal, err := r.embeddingOf(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM ("+activeQuery+"\n\t  AND o.id != ?"+rankClause,
		literal, id, minSimilarity, k)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// embeddingOf fetches the stored vector for one observation in its
// text literal form, reusable as a query vector.
func (r *Repository) embeddingOf(ctx context.Context, id int64) (string, error) {
	var literal sql.NullString
	err := r.db.NewRaw(
		"SELECT embedding::text FROM memory.observations WHERE id = ?", id,
	).Scan(ctx, &literal)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.ErrObservationNotFound
	}
	if err != nil {
		return "", apperror.ErrDatabase.WithInternal(err)
	}
	if !literal.Valid {
		return "", apperror.ErrObservationNotFound.WithMessage("observation has no embedding yet")
	}
	return literal.String, nil
}

func scanHits(rows *sql.Rows) ([]Hit, error) {
	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.EntityID, &h.EntityName, &h.Text,
			&h.Category, &h.Importance, pq.Array(&h.Tags), &h.CreatedAt,
			&h.Similarity, &h.Source); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return hits, nil
}
