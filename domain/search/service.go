package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/embeddings"
	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/mathutil"
	"github.com/engramdb/engram/pkg/metrics"
)

const (
	DefaultK             = 30
	MaxK                 = 100
	DefaultMinSimilarity = 0.5
)

// Embedder turns the query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store runs the similarity queries.
type Store interface {
	Search(ctx context.Context, vector []float32, k int, minSimilarity float64, includeArchive bool) ([]Hit, error)
	SimilarTo(ctx context.Context, id int64, k int, minSimilarity float64) ([]Hit, error)
}

// Query is a semantic search request. Zero K and MinSimilarity take
// the defaults; MinSimilarity is clamped to [0, 1] and K to [1, 100].
type Query struct {
	Text           string   `json:"text"`
	K              int      `json:"k"`
	MinSimilarity  *float64 `json:"min_similarity"`
	IncludeArchive bool     `json:"include_archive"`
}

// Result is a search response with its effective parameters.
type Result struct {
	Query         string  `json:"query"`
	K             int     `json:"k"`
	MinSimilarity float64 `json:"min_similarity"`
	Hits          []Hit   `json:"results"`
	Count         int     `json:"count"`
}

// Service implements semantic search over stored observations.
type Service struct {
	store    Store
	embedder Embedder
	log      *slog.Logger
}

// NewService creates a new search service
func NewService(repo *Repository, embedder *embeddings.Failover, log *slog.Logger) *Service {
	return newService(repo, embedder, log)
}

func newService(store Store, embedder Embedder, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		log:      log.With(logger.Scope("search")),
	}
}

// Search embeds the query text and returns the most similar
// observations. An embedding provider outage surfaces as 503 so the
// caller can tell "no matches" from "cannot match right now".
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Text == "" {
		return nil, apperror.NewBadRequest("query is required")
	}

	k := q.K
	if k == 0 {
		k = DefaultK
	}
	k = mathutil.ClampInt(k, 1, MaxK)

	minSim := DefaultMinSimilarity
	if q.MinSimilarity != nil {
		minSim = mathutil.ClampFloat(*q.MinSimilarity, 0, 1)
	}

	started := time.Now()
	vector, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		metrics.SearchRequests.WithLabelValues("unavailable").Inc()
		s.log.Error("query embedding failed", logger.Error(err))
		return nil, apperror.ErrEmbeddings.WithInternal(err)
	}

	hits, err := s.store.Search(ctx, vector, k, minSim, q.IncludeArchive)
	if err != nil {
		metrics.SearchRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SearchRequests.WithLabelValues("ok").Inc()
	metrics.SearchLatency.Observe(time.Since(started).Seconds())

	return &Result{
		Query:         q.Text,
		K:             k,
		MinSimilarity: minSim,
		Hits:          hits,
		Count:         len(hits),
	}, nil
}

// Similar returns the nearest neighbors of a stored observation.
func (s *Service) Similar(ctx context.Context, id int64, k int, minSimilarity *float64) (*Result, error) {
	if k == 0 {
		k = DefaultK
	}
	k = mathutil.ClampInt(k, 1, MaxK)

	minSim := DefaultMinSimilarity
	if minSimilarity != nil {
		minSim = mathutil.ClampFloat(*minSimilarity, 0, 1)
	}

	hits, err := s.store.SimilarTo(ctx, id, k, minSim)
	if err != nil {
		return nil, err
	}

	return &Result{
		K:             k,
		MinSimilarity: minSim,
		Hits:          hits,
		Count:         len(hits),
	}, nil
}
