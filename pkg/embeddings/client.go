// Package embeddings provides embedding generation against local model
// servers, with automatic failover from the primary provider to a
// fallback speaking the OpenAI-compatible API.
package embeddings

import (
	"context"
	"errors"
	"strings"
)

// DefaultDimension is the vector size produced by nomic-embed-text.
const DefaultDimension = 768

var (
	// ErrProviderUnavailable means every configured provider failed.
	ErrProviderUnavailable = errors.New("no embedding provider available")

	// ErrDimensionMismatch means a provider answered with a vector of
	// the wrong size. This is a configuration fault, not an outage, so
	// it never triggers failover.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Client generates an embedding vector for a single text.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// cleanText collapses whitespace runs. Model servers tokenize cleaner
// input more consistently, and it keeps chunk labels on one line.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
