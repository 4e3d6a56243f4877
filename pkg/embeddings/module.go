package embeddings

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/engramdb/engram/internal/config"
)

// Module provides the embeddings fx.Module
var Module = fx.Module("embeddings",
	fx.Provide(NewFailoverFromConfig),
)

// NewFailoverFromConfig builds the provider chain from configuration:
// Ollama primary, then the OpenAI-compatible fallback when configured.
func NewFailoverFromConfig(cfg *config.Config, log *slog.Logger) *Failover {
	ec := cfg.Embeddings

	providers := []Client{
		NewOllamaClient(ec.PrimaryURL, ec.PrimaryModel, ec.Timeout),
	}
	if ec.HasFallback() {
		providers = append(providers, NewOpenAIClient(ec.FallbackURL, ec.FallbackModel, ec.Timeout))
	}

	log.Info("embedding providers configured",
		slog.String("primary", ec.PrimaryURL),
		slog.Bool("fallback", ec.HasFallback()),
		slog.Int("dimension", ec.Dimension),
	)

	return NewFailover(providers, ec.Dimension, ec.RequestsPerSecond, log)
}
