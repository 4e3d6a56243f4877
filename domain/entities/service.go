package entities

import (
	"context"
	"log/slog"
	"strings"

	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/logger"
)

// Service provides entity operations
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new entities service
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("entities.svc")),
	}
}

// Get returns a single entity by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Entity, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns entities ordered by observation count.
func (s *Service) List(ctx context.Context, limit int) ([]*Entity, error) {
	return s.repo.List(ctx, limit)
}

// Create registers an entity explicitly. Ingestion normally creates
// entities on demand; this exists for pre-seeding known subjects.
func (s *Service) Create(ctx context.Context, name, category string, metadata map[string]any) (*Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ErrBadRequest.WithMessage("entity name required")
	}
	return s.repo.GetOrCreate(ctx, name, category, metadata)
}
