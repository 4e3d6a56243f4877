package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/engramdb/engram/pkg/logger"
	"github.com/engramdb/engram/pkg/metrics"
)

// Failover tries each configured provider in order and returns the
// first successful embedding. A request served by anything but the
// first provider counts as degraded service.
type Failover struct {
	providers []Client
	dimension int
	limiter   *rate.Limiter
	log       *slog.Logger
}

// NewFailover builds a facade over providers, in priority order.
// dimension is the expected vector size; rps throttles requests across
// all providers (0 disables throttling).
func NewFailover(providers []Client, dimension int, rps float64, log *slog.Logger) *Failover {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Failover{
		providers: providers,
		dimension: dimension,
		limiter:   limiter,
		log:       log.With(logger.Scope("embeddings")),
	}
}

// Dimension returns the expected vector size.
func (f *Failover) Dimension() int {
	return f.dimension
}

// Embed returns one vector for text, trying providers in order.
// A wrong-sized vector aborts immediately with ErrDimensionMismatch;
// only transport and server errors move on to the next provider. When
// every provider fails the error wraps ErrProviderUnavailable along
// with each provider's failure.
func (f *Failover) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(f.providers) == 0 {
		return nil, ErrProviderUnavailable
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var failures []error
	for i, p := range f.providers {
		start := time.Now()
		vec, err := p.Embed(ctx, text)
		metrics.EmbedLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.EmbedRequests.WithLabelValues(p.Name(), "error").Inc()
			failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))
			f.log.Warn("embedding provider failed",
				slog.String("provider", p.Name()),
				logger.Error(err),
			)
			continue
		}

		if len(vec) != f.dimension {
			metrics.EmbedRequests.WithLabelValues(p.Name(), "dimension_mismatch").Inc()
			return nil, fmt.Errorf("%w: %s returned %d, want %d",
				ErrDimensionMismatch, p.Name(), len(vec), f.dimension)
		}

		metrics.EmbedRequests.WithLabelValues(p.Name(), "ok").Inc()
		if i > 0 {
			metrics.EmbedFailovers.Inc()
			f.log.Warn("serving degraded, fallback provider answered",
				slog.String("provider", p.Name()),
			)
		}
		return vec, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, errors.Join(failures...))
}
