package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/mathutil"
)

const (
	DefaultMinObservations = 2
	DefaultHops            = 2
)

// Service builds and queries the derived knowledge graph.
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new graph service
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("graph")),
	}
}

// Params narrow which observations feed the graph.
type Params struct {
	MinObservations int
	Since           time.Time
	Until           time.Time
}

// Build returns the full derived graph.
func (s *Service) Build(ctx context.Context, p Params) (*Graph, error) {
	minObs := p.MinObservations
	if minObs == 0 {
		minObs = DefaultMinObservations
	}

	entities, err := s.repo.EntityTagSets(ctx, minObs, p.Since, p.Until)
	if err != nil {
		return nil, err
	}

	g := Build(entities)
	s.log.Debug("graph built",
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("edges", len(g.Edges)),
	)
	return g, nil
}

// Neighborhood returns the subgraph around one entity. An entity
// missing from the graph yields an empty result, not an error.
func (s *Service) Neighborhood(ctx context.Context, p Params, center int64, hops int) (*Graph, error) {
	hops = mathutil.ClampInt(hops, 0, maxHops)

	g, err := s.Build(ctx, p)
	if err != nil {
		return nil, err
	}

	sub, ok := g.Neighborhood(center, hops)
	if !ok {
		return &Graph{Nodes: []Node{}, Edges: []Edge{}}, nil
	}
	return sub, nil
}

// TimeWindow rebuilds the graph from observations created inside the
// window. When nodeID is non-nil the result is restricted to that node's
// 1-hop neighborhood in the slice; a node absent from the slice yields an
// empty graph rather than an error, so timeline animations can scrub
// through periods where an entity has no activity.
func (s *Service) TimeWindow(ctx context.Context, p Params, nodeID *int64) (*Graph, error) {
	g, err := s.Build(ctx, p)
	if err != nil {
		return nil, err
	}

	if nodeID == nil {
		return g, nil
	}

	sub, ok := g.Neighborhood(*nodeID, 1)
	if !ok {
		return &Graph{Nodes: []Node{}, Edges: []Edge{}}, nil
	}
	return sub, nil
}

// Path returns a shortest path between two entities.
func (s *Service) Path(ctx context.Context, p Params, from, to int64) (*Path, error) {
	g, err := s.Build(ctx, p)
	if err != nil {
		return nil, err
	}

	path := g.ShortestPath(from, to)
	return &path, nil
}
