package entities

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/pgutils"
)

// Repository handles entity persistence
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new entities repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("entities.repo")),
	}
}

// GetByID fetches a single entity.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Entity, error) {
	entity := new(Entity)
	err := r.db.NewSelect().Model(entity).Where("e.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrEntityNotFound
	}
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return entity, nil
}

// GetByName fetches an entity by its unique name.
func (r *Repository) GetByName(ctx context.Context, name string) (*Entity, error) {
	entity := new(Entity)
	err := r.db.NewSelect().Model(entity).Where("e.name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrEntityNotFound
	}
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return entity, nil
}

// GetOrCreate returns the entity with the given name, creating it when
// missing. Concurrent creation races are resolved by re-reading after
// a unique violation.
func (r *Repository) GetOrCreate(ctx context.Context, name, category string, metadata map[string]any) (*Entity, error) {
	entity, err := r.GetByName(ctx, name)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, apperror.ErrEntityNotFound) {
		return nil, err
	}

	if category == "" {
		category = "general"
	}
	entity = &Entity{
		Name:     name,
		Category: category,
		Metadata: metadata,
	}
	_, err = r.db.NewInsert().Model(entity).Returning("*").Exec(ctx)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			// Lost the race; the winner's row is authoritative.
			return r.GetByName(ctx, name)
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	r.log.Info("entity created",
		slog.Int64("id", entity.ID),
		slog.String("name", entity.Name),
	)
	return entity, nil
}

// List returns all entities, most observed first.
func (r *Repository) List(ctx context.Context, limit int) ([]*Entity, error) {
	var out []*Entity
	q := r.db.NewSelect().Model(&out).
		Order("observation_count DESC").
		Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// IncrementObservationCount bumps the denormalized counter after an
// insert. Must run in the same transaction as the observation write.
func IncrementObservationCount(ctx context.Context, db bun.IDB, entityID int64, delta int) error {
	_, err := db.NewUpdate().Model((*Entity)(nil)).
		Set("observation_count = observation_count + ?", delta).
		Set("updated_at = now()").
		Where("id = ?", entityID).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}
