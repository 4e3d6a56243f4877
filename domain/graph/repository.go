package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/logger"
)

// EntityTags is one entity with every distinct tag across its
// observations, the raw material for graph construction.
type EntityTags struct {
	ID               int64
	Name             string
	Category         string
	ObservationCount int
	Tags             []string
}

// Repository loads graph source data.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new graph repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("graph.repo")),
	}
}

// EntityTagSets returns entities with at least minObservations
// observations plus their distinct tags, ordered by id. A non-zero
// window restricts both the observation count and the tag set to
// observations created inside it.
func (r *Repository) EntityTagSets(ctx context.Context, minObservations int, since, until time.Time) ([]EntityTags, error) {
	if minObservations < 1 {
		minObservations = 1
	}

	query := `
		SELECT e.id, e.name, e.category,
		       COUNT(DISTINCT o.id) AS observation_count,
		       COALESCE(array_agg(DISTINCT t.tag) FILTER (WHERE t.tag IS NOT NULL), '{}') AS tags
		FROM memory.entities e
		JOIN memory.observations o ON o.entity_id = e.id
		LEFT JOIN LATERAL UNNEST(o.tags) AS t(tag) ON true`
	query, args := windowFilter(query, since, until, nil)
	query += `
		GROUP BY e.id, e.name, e.category
		HAVING COUNT(DISTINCT o.id) >= ?
		ORDER BY e.id ASC`
	args = append(args, minObservations)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var out []EntityTags
	for rows.Next() {
		var et EntityTags
		if err := rows.Scan(&et.ID, &et.Name, &et.Category,
			&et.ObservationCount, pq.Array(&et.Tags)); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		out = append(out, et)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// windowFilter appends created_at bounds to query. Both edges are
// inclusive, so a caller asking for [from, to] sees observations
// landing exactly on either boundary.
func windowFilter(query string, since, until time.Time, args []any) (string, []any) {
	if !since.IsZero() {
		query += "\n\t\tWHERE o.created_at >= ?"
		args = append(args, since)
	}
	if !until.IsZero() {
		if since.IsZero() {
			query += "\n\t\tWHERE o.created_at <= ?"
		} else {
			query += " AND o.created_at <= ?"
		}
		args = append(args, until)
	}
	return query, args
}
