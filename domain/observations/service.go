package observations

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/engramdb/engram/domain/entities"
	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/classify"
	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/mathutil"
)

// Service implements observation ingestion and the read APIs.
type Service struct {
	repo       *Repository
	entities   *entities.Repository
	classifier *classify.Classifier
	log        *slog.Logger
}

// NewService creates a new observations service
func NewService(repo *Repository, ents *entities.Repository, classifier *classify.Classifier, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		entities:   ents,
		classifier: classifier,
		log:        log.With(logger.Scope("observations.service")),
	}
}

// IngestInput is one incoming memory. EntityName is optional; when
// absent the registrable domain of the URL is used as the entity.
type IngestInput struct {
	Text       string    `json:"text"`
	EntityName string    `json:"entity_name"`
	Category   string    `json:"category"`
	Importance float64   `json:"importance"`
	Tags       []string  `json:"tags"`
	Metadata   *Metadata `json:"metadata"`
}

// Ingest stores one observation. Missing category, tags and importance
// are filled in by the rule classifier; the owning entity is created on
// first sight.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*Observation, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperror.NewBadRequest("text is required")
	}

	meta := in.Metadata
	if meta == nil {
		meta = &Metadata{}
	}
	if meta.Domain == "" && meta.URL != "" {
		meta.Domain = RegistrableDomain(meta.URL)
	}

	entityName := strings.TrimSpace(in.EntityName)
	if entityName == "" {
		entityName = meta.Domain
	}
	if entityName == "" {
		entityName = "unsorted"
	}

	entity, err := s.entities.GetOrCreate(ctx, entityName, "", nil)
	if err != nil {
		return nil, err
	}

	category := in.Category
	if category == "" {
		category = s.classifier.Category(text)
	}
	tags := in.Tags
	if len(tags) == 0 {
		tags = s.classifier.Tags(text)
	}
	importance := in.Importance
	if importance <= 0 {
		importance = s.classifier.Importance(text)
	} else {
		importance = mathutil.ClampFloat(importance, 0.1, 1.0)
	}

	obs := &Observation{
		EntityID:   entity.ID,
		Text:       text,
		Category:   category,
		Importance: importance,
		Tags:       tags,
		Metadata:   meta,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, obs); err != nil {
		return nil, err
	}

	s.log.Info("observation ingested",
		slog.Int64("id", obs.ID),
		slog.String("entity", entity.Name),
		slog.String("category", obs.Category),
		slog.Int("chars", len(obs.Text)),
	)
	return obs, nil
}

// List returns observations matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]*Row, error) {
	return s.repo.List(ctx, f)
}

// Get returns one observation and whether it came from the archive.
func (s *Service) Get(ctx context.Context, id int64) (*Row, string, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes one observation, active or archived, and reports
// which store held it.
func (s *Service) Delete(ctx context.Context, id int64) (string, error) {
	source, err := s.repo.Delete(ctx, id)
	if err != nil {
		return "", err
	}
	s.log.Info("observation deleted",
		slog.Int64("id", id),
		slog.String("source", source),
	)
	return source, nil
}

// ListArchive returns archived originals of split observations.
func (s *Service) ListArchive(ctx context.Context, limit, offset int) ([]*Archived, error) {
	return s.repo.ListArchive(ctx, limit, offset)
}

// TagCounts returns tag usage frequencies.
func (s *Service) TagCounts(ctx context.Context) ([]TagCount, error) {
	return s.repo.TagCounts(ctx)
}

// MemoriesByDomain returns memories matching a domain string.
func (s *Service) MemoriesByDomain(ctx context.Context, domain string, limit int) ([]Memory, error) {
	domain = strings.TrimSpace(strings.ToLower(domain))
	if domain == "" {
		return nil, apperror.NewBadRequest("domain is required")
	}
	return s.repo.ByDomain(ctx, domain, limit)
}

// URLMatches is the result of a page lookup.
type URLMatches struct {
	URL      string   `json:"url"`
	Matching string   `json:"matching"`
	Memories []Memory `json:"memories"`
}

// MemoriesByURL returns memories tied to one page. Matching reports
// "exact" when the first hit's URL equals the query, "prefix" when it
// only shares a path prefix, and "none" for an empty result.
func (s *Service) MemoriesByURL(ctx context.Context, rawURL string, limit int) (*URLMatches, error) {
	normalized, prefix, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, apperror.NewBadRequest("invalid url")
	}

	memories, err := s.repo.ByURL(ctx, normalized, prefix, limit)
	if err != nil {
		return nil, err
	}

	matching := "none"
	if len(memories) > 0 {
		matching = "prefix"
		if strings.ToLower(strings.TrimSuffix(memories[0].URL, "/")) == normalized {
			matching = "exact"
		}
	}
	return &URLMatches{URL: normalized, Matching: matching, Memories: memories}, nil
}

// NormalizeURL lowercases a URL and strips the trailing slash. It
// returns the normalized full URL and the host+path prefix used for
// subpage matching.
func NormalizeURL(rawURL string) (normalized, prefix string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", err
	}
	if u.Host == "" {
		return "", "", &url.Error{Op: "parse", URL: rawURL, Err: url.InvalidHostError("")}
	}

	path := strings.TrimSuffix(u.Path, "/")
	normalized = strings.ToLower(u.Scheme + "://" + u.Host + path)
	prefix = strings.ToLower(u.Host + path)
	return normalized, prefix, nil
}

// RegistrableDomain extracts the eTLD+1 from a URL, falling back to
// the bare host when the public suffix list has no answer.
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
