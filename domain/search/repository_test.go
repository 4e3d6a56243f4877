package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Equal similarity scores must not reorder across queries; the id is
// the secondary sort key so the LIMIT boundary stays stable when chunk
// siblings score identically.
func TestRankClauseBreaksTiesByID(t *testing.T) {
	assert.Contains(t, rankClause, "ORDER BY hits.similarity DESC, hits.id ASC")
}
