package observations

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/engramdb/engram/domain/entities"
	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/mathutil"
)

// Repository handles observation persistence
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new observations repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("observations.repo")),
	}
}

// Create inserts an observation, assigning the next sequence index for
// its entity and bumping the entity's observation count, all in one
// transaction.
func (r *Repository) Create(ctx context.Context, obs *Observation) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var next int
		err := tx.NewRaw(
			"SELECT COALESCE(MAX(sequence_index), 0) + 1 FROM memory.observations WHERE entity_id = ?",
			obs.EntityID,
		).Scan(ctx, &next)
		if err != nil {
			return err
		}
		obs.SequenceIndex = next

		if _, err := tx.NewInsert().Model(obs).Returning("*").Exec(ctx); err != nil {
			return err
		}

		return entities.IncrementObservationCount(ctx, tx, obs.EntityID, 1)
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	EntityID       int64
	Category       string
	Tag            string
	Search         string
	MinImportance  float64
	Since          time.Time
	Until          time.Time
	IncludeArchive bool
	Limit          int
	Offset         int
}

// Row is an observation joined with its entity name for read APIs.
type Row struct {
	Observation `bun:",extend"`

	EntityName string `bun:"entity_name,scanonly" json:"entity_name"`
	Pending    bool   `bun:"pending,scanonly" json:"pending"`
	Archived   bool   `bun:"archived,scanonly" json:"archived"`
}

// listArchiveUnion feeds List when archived rows are included. Both
// branches project the same column list so the union lines up.
const listArchiveUnion = `(
	SELECT id, entity_id, text, sequence_index, category, importance,
	       tags, metadata, created_at, embedding, FALSE AS archived
	FROM memory.observations
	UNION ALL
	SELECT id, entity_id, text, sequence_index, category, importance,
	       tags, metadata, created_at, embedding, TRUE AS archived
	FROM memory.observations_archive
) AS o`

// List returns observations newest first, with entity names attached.
func (r *Repository) List(ctx context.Context, f Filter) ([]*Row, error) {
	limit := mathutil.ClampLimit(f.Limit, 50, 200)

	tableExpr := "memory.observations AS o"
	if f.IncludeArchive {
		tableExpr = listArchiveUnion
	}

	var rows []*Row
	q := r.db.NewSelect().Model(&rows).
		ModelTableExpr(tableExpr).
		ColumnExpr("o.*").
		ColumnExpr("e.name AS entity_name").
		ColumnExpr("o.embedding IS NULL AS pending").
		Join("JOIN memory.entities e ON e.id = o.entity_id").
		OrderExpr("o.created_at DESC").
		Limit(limit).
		Offset(f.Offset)

	if f.EntityID > 0 {
		q = q.Where("o.entity_id = ?", f.EntityID)
	}
	if f.Category != "" {
		q = q.Where("o.category = ?", f.Category)
	}
	if f.Tag != "" {
		q = q.Where("? = ANY(o.tags)", f.Tag)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where("(o.text ILIKE ? OR o.metadata->>'url' ILIKE ?)", pattern, pattern)
	}
	if f.MinImportance > 0 {
		q = q.Where("o.importance >= ?", f.MinImportance)
	}
	if !f.Since.IsZero() {
		q = q.Where("o.created_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		// Half-open on purpose: the date filter sets Until to the start
		// of the next day.
		q = q.Where("o.created_at < ?", f.Until)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// GetByID fetches a single observation, falling back to the archive
// when the row was split and retired. The second return value reports
// which store answered ("active" or "archive").
func (r *Repository) GetByID(ctx context.Context, id int64) (*Row, string, error) {
	row := new(Row)
	err := r.db.NewSelect().
		Model(row).
		ModelTableExpr("memory.observations AS o").
		ColumnExpr("o.*").
		ColumnExpr("e.name AS entity_name").
		ColumnExpr("o.embedding IS NULL AS pending").
		Join("JOIN memory.entities e ON e.id = o.entity_id").
		Where("o.id = ?", id).
		Scan(ctx)
	if err == nil {
		return row, "active", nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", apperror.ErrDatabase.WithInternal(err)
	}

	archived := new(Archived)
	err = r.db.NewSelect().Model(archived).Where("oa.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", apperror.ErrObservationNotFound
	}
	if err != nil {
		return nil, "", apperror.ErrDatabase.WithInternal(err)
	}

	return &Row{Observation: Observation{
		ID:            archived.ID,
		EntityID:      archived.EntityID,
		Text:          archived.Text,
		SequenceIndex: archived.SequenceIndex,
		Category:      archived.Category,
		Importance:    archived.Importance,
		Tags:          archived.Tags,
		Metadata:      archived.Metadata,
		CreatedAt:     archived.CreatedAt,
	}}, "archive", nil
}

// Delete removes an observation from the active table or, when it was
// already split and retired, from the archive. An active delete also
// decrements the entity's observation count. The return value reports
// which store held the row.
func (r *Repository) Delete(ctx context.Context, id int64) (string, error) {
	var source string
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var entityID int64
		err := tx.NewRaw(
			"DELETE FROM memory.observations WHERE id = ? RETURNING entity_id", id,
		).Scan(ctx, &entityID)
		if err == nil {
			source = "active"
			return entities.IncrementObservationCount(ctx, tx, entityID, -1)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		res, err := tx.NewDelete().Model((*Archived)(nil)).Where("oa.id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.ErrObservationNotFound
		}
		source = "archive"
		return nil
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return "", appErr
		}
		return "", apperror.ErrDatabase.WithInternal(err)
	}
	return source, nil
}

// ListArchive returns archived originals, newest archive event first.
func (r *Repository) ListArchive(ctx context.Context, limit, offset int) ([]*Archived, error) {
	limit = mathutil.ClampLimit(limit, 50, 200)

	var rows []*Archived
	err := r.db.NewSelect().Model(&rows).
		OrderExpr("oa.archived_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// TagCount is one tag with its usage count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts returns every tag in use with its frequency, most used
// first.
func (r *Repository) TagCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.tag, COUNT(*) AS count
		FROM memory.observations o, UNNEST(o.tags) AS t(tag)
		GROUP BY t.tag
		ORDER BY count DESC, t.tag ASC
	`)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

// Memory is the compact shape returned by the URL and domain lookups
// that power the capture client.
type Memory struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	Category   string    `json:"category"`
	Importance float64   `json:"importance"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	EntityName string    `json:"entity_name"`
	URL        string    `json:"url,omitempty"`
}

const memoryTextLimit = 300

// ByDomain returns memories loosely associated with a domain: URL,
// domain metadata or the text itself may mention it.
func (r *Repository) ByDomain(ctx context.Context, domain string, limit int) ([]Memory, error) {
	limit = mathutil.ClampLimit(limit, 20, 100)
	needle := "%" + domain + "%"

	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.text, o.category, o.importance, o.tags, o.created_at,
		       e.name AS entity_name, COALESCE(o.metadata->>'url', '') AS url
		FROM memory.observations o
		LEFT JOIN memory.entities e ON e.id = o.entity_id
		WHERE o.metadata->>'url' ILIKE ?
		   OR o.metadata->>'domain' ILIKE ?
		   OR o.text ILIKE ?
		ORDER BY o.created_at DESC
		LIMIT ?
	`, needle, needle, needle, limit)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// ByURL returns memories for one page with strict priority: exact URL
// first, then stored pages this URL is a subpage of, then subpages of
// this URL. Domain-only matches are excluded on purpose; they produced
// too many false positives.
func (r *Repository) ByURL(ctx context.Context, normalizedURL, urlPrefix string, limit int) ([]Memory, error) {
	limit = mathutil.ClampLimit(limit, 10, 50)

	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.text, o.category, o.importance, o.tags, o.created_at,
		       e.name AS entity_name, COALESCE(o.metadata->>'url', '') AS url,
		       CASE
		           WHEN LOWER(o.metadata->>'url') = ? THEN 0
		           WHEN ? LIKE LOWER(o.metadata->>'url') || '%' THEN 1
		           WHEN LOWER(o.metadata->>'url') LIKE ? || '%' THEN 2
		           ELSE 3
		       END AS match_priority
		FROM memory.observations o
		LEFT JOIN memory.entities e ON e.id = o.entity_id
		WHERE LOWER(o.metadata->>'url') = ?
		   OR ? LIKE LOWER(o.metadata->>'url') || '%'
		   OR LOWER(o.metadata->>'url') LIKE ? || '%'
		ORDER BY match_priority, o.created_at DESC
		LIMIT ?
	`, normalizedURL, normalizedURL, urlPrefix,
		normalizedURL, normalizedURL, urlPrefix, limit)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer rows.Close()

	return scanMemoriesWithPriority(rows)
}

func scanMemories(rows *sql.Rows) ([]Memory, error) {
	var out []Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ID, &m.Text, &m.Category, &m.Importance,
			pq.Array(&m.Tags), &m.CreatedAt, &m.EntityName, &m.URL); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		m.Text = truncateText(m.Text, memoryTextLimit)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

func scanMemoriesWithPriority(rows *sql.Rows) ([]Memory, error) {
	var out []Memory
	for rows.Next() {
		var m Memory
		var priority int
		if err := rows.Scan(&m.ID, &m.Text, &m.Category, &m.Importance,
			pq.Array(&m.Tags), &m.CreatedAt, &m.EntityName, &m.URL, &priority); err != nil {
			return nil, apperror.ErrDatabase.WithInternal(err)
		}
		m.Text = truncateText(m.Text, memoryTextLimit)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return out, nil
}

func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := strings.ToValidUTF8(text[:max], "")
	return cut
}
