package insights

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/logger"
)

const (
	focusWindow        = 30 * 24 * time.Hour
	focusTopN          = 5
	tagPairMinCount    = 5
	milestoneThreshold = 0.9
	milestoneLimit     = 20
	topEntityLimit     = 10
)

// Stats is the full system status snapshot.
type Stats struct {
	Counts        *Counts     `json:"counts"`
	TopEntities   []TopEntity `json:"top_entities"`
	DatabaseBytes int64       `json:"database_bytes"`
	Load1         float64     `json:"load_1m"`
	MemoryUsedPct float64     `json:"memory_used_pct"`
	Goroutines    int         `json:"goroutines"`
	CollectedAt   string      `json:"collected_at"`
	Warnings      []string    `json:"warnings,omitempty"`
}

// Report bundles every derived insight in one response.
type Report struct {
	TagPairs   []TagPair         `json:"tag_pairs"`
	Weekdays   []WeekdayActivity `json:"weekday_activity"`
	Focus      []FocusTag        `json:"recent_focus"`
	Milestones []Milestone       `json:"milestones"`
}

// Service computes stats, timelines and derived insights.
type Service struct {
	repo *Repository
	log  *slog.Logger

	// swappable for tests
	loadAvg  func(context.Context) (*load.AvgStat, error)
	memStats func(context.Context) (*mem.VirtualMemoryStat, error)
}

// NewService creates a new insights service
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		log:      log.With(logger.Scope("insights")),
		loadAvg:  load.AvgWithContext,
		memStats: mem.VirtualMemoryWithContext,
	}
}

// Stats returns storage counts plus host health. Host metric failures
// degrade to warnings instead of failing the request.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	size, err := s.repo.DatabaseSize(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.TopEntities(ctx, topEntityLimit)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Counts:        counts,
		TopEntities:   top,
		DatabaseBytes: size,
		Goroutines:    runtime.NumGoroutine(),
		CollectedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	if avg, err := s.loadAvg(ctx); err != nil {
		stats.Warnings = append(stats.Warnings, "load average unavailable")
		s.log.Warn("load average collection failed", logger.Error(err))
	} else {
		stats.Load1 = avg.Load1
	}
	if vm, err := s.memStats(ctx); err != nil {
		stats.Warnings = append(stats.Warnings, "memory stats unavailable")
		s.log.Warn("memory stats collection failed", logger.Error(err))
	} else {
		stats.MemoryUsedPct = vm.UsedPercent
	}

	return stats, nil
}

// Timeline returns bucketed activity. Granularity must be day, week or
// month; empty defaults to day.
func (s *Service) Timeline(ctx context.Context, granularity string, since, until time.Time) ([]TimelineBucket, error) {
	switch granularity {
	case "":
		granularity = "day"
	case "day", "week", "month":
	default:
		return nil, apperror.NewBadRequest("granularity must be day, week or month")
	}
	return s.repo.Timeline(ctx, granularity, since, until)
}

// Insights assembles the derived report: frequently paired tags,
// weekday rhythm, the last month's focus and recent milestones.
func (s *Service) Insights(ctx context.Context) (*Report, error) {
	pairs, err := s.repo.TagPairs(ctx, tagPairMinCount)
	if err != nil {
		return nil, err
	}
	weekdays, err := s.repo.WeekdayActivity(ctx)
	if err != nil {
		return nil, err
	}
	focus, err := s.repo.FocusTags(ctx, focusWindow, focusTopN)
	if err != nil {
		return nil, err
	}
	milestones, err := s.repo.Milestones(ctx, milestoneThreshold, milestoneLimit)
	if err != nil {
		return nil, err
	}

	return &Report{
		TagPairs:   pairs,
		Weekdays:   weekdays,
		Focus:      focus,
		Milestones: milestones,
	}, nil
}
