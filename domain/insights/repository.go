package insights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/logger"
)

// Counts are the headline numbers of the memory store.
type Counts struct {
	Entities     int `json:"entities"`
	Observations int `json:"observations"`
	Archived     int `json:"archived"`
	Pending      int `json:"pending_embeddings"`
	DistinctTags int `json:"distinct_tags"`
}

// TimelineBucket is activity aggregated over one time bucket.
type TimelineBucket struct {
	Bucket        time.Time `json:"bucket"`
	Count         int       `json:"count"`
	AvgImportance float64   `json:"avg_importance"`
}

// TagPair is two tags that appear together on observations.
type TagPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Count  int    `json:"count"`
}

// WeekdayActivity is observation volume for one ISO weekday, where
// Monday is 1 and Sunday is 7.
type WeekdayActivity struct {
	Weekday int `json:"weekday"`
	Count   int `json:"count"`
}

// FocusTag is a heavily used tag in the recent window.
type FocusTag struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopEntity is one of the most observed entities.
type TopEntity struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	ObservationCount int    `json:"observation_count"`
}

// Milestone is a high importance observation.
type Milestone struct {
	ID         int64     `json:"id"`
	EntityName string    `json:"entity_name"`
	Text       string    `json:"text"`
	Importance float64   `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository runs the aggregate queries behind stats and insights.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new insights repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("insights.repo")),
	}
}

// Counts returns the store's headline numbers in one round trip.
func (r *Repository) Counts(ctx context.Context) (*Counts, error) {
	counts := new(Counts)
	err := r.db.NewRaw(`
		SELECT
			(SELECT COUNT(*) FROM memory.entities) AS entities,
			(SELECT COUNT(*) FROM memory.observations) AS observations,
			(SELECT COUNT(*) FROM memory.observations_archive) AS archived,
			(SELECT COUNT(*) FROM memory.observations WHERE embedding IS NULL) AS pending,
			(SELECT COUNT(DISTINCT t.tag)
			 FROM memory.observations o, UNNEST(o.tags) AS t(tag)) AS distinct_tags
	`).Scan(ctx, &counts.Entities, &counts.Observations, &counts.Archived,
		&counts.Pending, &counts.DistinctTags)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return counts, nil
}

// DatabaseSize returns the size of the current database in bytes.
func (r *Repository) DatabaseSize(ctx context.Context) (int64, error) {
	var size int64
	err := r.db.NewRaw("SELECT pg_database_size(current_database())").Scan(ctx, &size)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return size, nil
}

// TopEntities returns the most observed entities.
func (r *Repository) TopEntities(ctx context.Context, limit int) ([]TopEntity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.category, e.observation_count
		FROM memory.entities e
		WHERE e.observation_count > 0
		ORDER BY e.observation_count DESC, e.id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var out []TopEntity
	for rows.Next() {
		var e TopEntity
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.ObservationCount); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// Timeline buckets observation activity by day, week or month.
func (r *Repository) Timeline(ctx context.Context, granularity string, since, until time.Time) ([]TimelineBucket, error) {
	query := `
		SELECT DATE_TRUNC(?, o.created_at) AS bucket,
		       COUNT(*) AS count,
		       AVG(o.importance) AS avg_importance
		FROM memory.observations o`
	args := []any{granularity}
	if !since.IsZero() {
		query += "\n\t\tWHERE o.created_at >= ?"
		args = append(args, since)
	}
	// Inclusive upper edge, matching the graph time window.
	if !until.IsZero() {
		if since.IsZero() {
			query += "\n\t\tWHERE o.created_at <= ?"
		} else {
			query += " AND o.created_at <= ?"
		}
		args = append(args, until)
	}
	query += `
		GROUP BY bucket
		ORDER BY bucket ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var out []TimelineBucket
	for rows.Next() {
		var b TimelineBucket
		if err := rows.Scan(&b.Bucket, &b.Count, &b.AvgImportance); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// TagPairs returns tag pairs that co-occur on at least minCount
// observations, strongest first.
func (r *Repository) TagPairs(ctx context.Context, minCount int) ([]TagPair, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.tag, b.tag, COUNT(*) AS count
		FROM memory.observations o,
		     UNNEST(o.tags) AS a(tag),
		     UNNEST(o.tags) AS b(tag)
		WHERE a.tag < b.tag
		GROUP BY a.tag, b.tag
		HAVING COUNT(*) >= ?
		ORDER BY count DESC, a.tag ASC, b.tag ASC
	`, minCount)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var out []TagPair
	for rows.Next() {
		var p TagPair
		if err := rows.Scan(&p.First, &p.Second, &p.Count); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// WeekdayActivity returns observation volume per ISO weekday.
func (r *Repository) WeekdayActivity(ctx context.Context) ([]WeekdayActivity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT EXTRACT(ISODOW FROM o.created_at)::int AS weekday,
		       COUNT(*) AS count
		FROM memory.observations o
		GROUP BY weekday
		ORDER BY weekday ASC
	`)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var out []WeekdayActivity
	for rows.Next() {
		var w WeekdayActivity
		if err := rows.Scan(&w.Weekday, &w.Count); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// FocusTags returns the top tags of the recent window.
func (r *Repository) FocusTags(ctx context.Context, window time.Duration, limit int) ([]FocusTag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.tag, COUNT(*) AS count
		FROM memory.observations o, UNNEST(o.tags) AS t(tag)
		WHERE o.created_at >= now() - ?::interval
		GROUP BY t.tag
		ORDER BY count DESC, t.tag ASC
		LIMIT ?
	`, intervalLiteral(window), limit)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var out []FocusTag
	for rows.Next() {
		var f FocusTag
		if err := rows.Scan(&f.Tag, &f.Count); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// Milestones returns high importance observations, newest first.
func (r *Repository) Milestones(ctx context.Context, minImportance float64, limit int) ([]Milestone, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, e.name, o.text, o.importance, o.created_at
		FROM memory.observations o
		JOIN memory.entities e ON e.id = o.entity_id
		WHERE o.importance >= ?
		ORDER BY o.created_at DESC
		LIMIT ?
	`, minImportance, limit)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var out []Milestone
	for rows.Next() {
		var m Milestone
		if err := rows.Scan(&m.ID, &m.EntityName, &m.Text, &m.Importance, &m.CreatedAt); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

func intervalLiteral(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("%d days", days)
}
