package observations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		normalized string
		prefix     string
	}{
		{
			name:       "trailing slash stripped",
			raw:        "https://example.com/docs/",
			normalized: "https://example.com/docs",
			prefix:     "example.com/docs",
		},
		{
			name:       "mixed case lowered",
			raw:        "HTTPS://Example.COM/Docs/Guide",
			normalized: "https://example.com/docs/guide",
			prefix:     "example.com/docs/guide",
		},
		{
			name:       "bare host",
			raw:        "https://example.com",
			normalized: "https://example.com",
			prefix:     "example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, prefix, err := NormalizeURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.normalized, normalized)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestNormalizeURLRejectsHostless(t *testing.T) {
	_, _, err := NormalizeURL("not a url")
	assert.Error(t, err)
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://docs.github.com/en/actions", "github.com"},
		{"https://news.ycombinator.com/item?id=1", "ycombinator.com"},
		{"https://foo.bar.co.uk/page", "bar.co.uk"},
		{"https://localhost:8080/x", "localhost"},
		{"not a url", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RegistrableDomain(tt.raw), tt.raw)
	}
}
