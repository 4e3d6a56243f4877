package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"5580"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// ClassifyRulesFile overrides the embedded classifier rules
	ClassifyRulesFile string `env:"CLASSIFY_RULES_FILE" envDefault:""`

	// Database settings
	Database DatabaseConfig

	// Embedding provider settings
	Embeddings EmbeddingsConfig

	// Embedding pipeline settings
	Pipeline PipelineConfig

	// Background scheduler settings
	Scheduler SchedulerConfig

	// OpenTelemetry settings
	Otel OtelConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"engram"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"engram"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// EmbeddingsConfig holds embedding provider configuration.
// The primary endpoint speaks the Ollama API, the fallback the
// OpenAI-compatible API that LM Studio and friends expose.
type EmbeddingsConfig struct {
	// Primary provider (Ollama API)
	PrimaryURL   string `env:"EMBEDDINGS_PRIMARY_URL" envDefault:"http://localhost:11434"`
	PrimaryModel string `env:"EMBEDDINGS_PRIMARY_MODEL" envDefault:"nomic-embed-text"`

	// Fallback provider (OpenAI-compatible API)
	FallbackURL   string `env:"EMBEDDINGS_FALLBACK_URL" envDefault:"http://localhost:1234"`
	FallbackModel string `env:"EMBEDDINGS_FALLBACK_MODEL" envDefault:"text-embedding-nomic-embed-text-v1.5"`

	// Expected vector dimension; vectors of any other size are rejected
	Dimension int `env:"EMBEDDINGS_DIMENSION" envDefault:"768"`

	// Per-request timeout against either provider
	Timeout time.Duration `env:"EMBEDDINGS_TIMEOUT" envDefault:"15s"`

	// Requests per second across all providers (0 disables throttling)
	RequestsPerSecond float64 `env:"EMBEDDINGS_RPS" envDefault:"0"`
}

// HasFallback returns true if a fallback provider is configured
func (e *EmbeddingsConfig) HasFallback() bool {
	return e.FallbackURL != ""
}

// PipelineConfig holds embedding pipeline settings
type PipelineConfig struct {
	// MaxChunkChars is the chunking threshold; longer observations are split
	MaxChunkChars int `env:"PIPELINE_MAX_CHUNK_CHARS" envDefault:"800"`

	// ChunkOverlap is the number of trailing characters carried into the next chunk
	ChunkOverlap int `env:"PIPELINE_CHUNK_OVERLAP" envDefault:"50"`

	// BatchCommitSize is how many plain embedding writes are flushed per transaction
	BatchCommitSize int `env:"PIPELINE_BATCH_COMMIT_SIZE" envDefault:"10"`

	// ClaimTTL is how long a pipeline claim on a row is honored before
	// another run may pick it up again
	ClaimTTL time.Duration `env:"PIPELINE_CLAIM_TTL" envDefault:"10m"`
}

// SchedulerConfig holds background scheduler settings
type SchedulerConfig struct {
	Enabled bool `env:"SCHEDULER_ENABLED" envDefault:"true"`

	// EmbedInterval is how often the embedding pipeline runs
	EmbedInterval time.Duration `env:"SCHEDULER_EMBED_INTERVAL" envDefault:"5m"`

	// EmbedBatchLimit caps rows per scheduled run (0 means no cap)
	EmbedBatchLimit int `env:"SCHEDULER_EMBED_BATCH_LIMIT" envDefault:"0"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.String("embeddings_primary", cfg.Embeddings.PrimaryURL),
	)

	return cfg, nil
}
