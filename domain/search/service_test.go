package search

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdb/engram/pkg/apperror"
	"github.com/engramdb/engram/pkg/embeddings"
)

type fakeStore struct {
	lastK         int
	lastMinSim    float64
	lastArchive   bool
	lastSimilarID int64
	hits          []Hit
}

func (f *fakeStore) Search(_ context.Context, _ []float32, k int, minSimilarity float64, includeArchive bool) ([]Hit, error) {
	f.lastK = k
	f.lastMinSim = minSimilarity
	f.lastArchive = includeArchive
	return f.hits, nil
}

func (f *fakeStore) SimilarTo(_ context.Context, id int64, k int, minSimilarity float64) ([]Hit, error) {
	f.lastSimilarID = id
	f.lastK = k
	f.lastMinSim = minSimilarity
	return f.hits, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, 768), nil
}

func testService(store Store, embedder Embedder) *Service {
	return newService(store, embedder, slog.New(slog.DiscardHandler))
}

func floatPtr(f float64) *float64 { return &f }

func TestSearchDefaults(t *testing.T) {
	store := &fakeStore{hits: []Hit{{ID: 1, Similarity: 0.9}}}
	svc := testService(store, &fakeEmbedder{})

	result, err := svc.Search(context.Background(), Query{Text: "postgres tuning"})
	require.NoError(t, err)

	assert.Equal(t, DefaultK, store.lastK)
	assert.Equal(t, DefaultMinSimilarity, store.lastMinSim)
	assert.False(t, store.lastArchive)
	assert.Equal(t, 1, result.Count)
}

func TestSearchClampsParameters(t *testing.T) {
	tests := []struct {
		name       string
		q          Query
		wantK      int
		wantMinSim float64
	}{
		{
			name:       "k above max",
			q:          Query{Text: "x", K: 500},
			wantK:      MaxK,
			wantMinSim: DefaultMinSimilarity,
		},
		{
			name:       "k below min",
			q:          Query{Text: "x", K: -3},
			wantK:      1,
			wantMinSim: DefaultMinSimilarity,
		},
		{
			name:       "min similarity above one",
			q:          Query{Text: "x", MinSimilarity: floatPtr(2.5)},
			wantK:      DefaultK,
			wantMinSim: 1,
		},
		{
			name:       "negative min similarity",
			q:          Query{Text: "x", MinSimilarity: floatPtr(-0.3)},
			wantK:      DefaultK,
			wantMinSim: 0,
		},
		{
			name:       "explicit zero min similarity kept",
			q:          Query{Text: "x", MinSimilarity: floatPtr(0)},
			wantK:      DefaultK,
			wantMinSim: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := testService(store, &fakeEmbedder{})

			_, err := svc.Search(context.Background(), tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantK, store.lastK)
			assert.Equal(t, tt.wantMinSim, store.lastMinSim)
		})
	}
}

func TestSearchRequiresQueryText(t *testing.T) {
	svc := testService(&fakeStore{}, &fakeEmbedder{})

	_, err := svc.Search(context.Background(), Query{})
	require.Error(t, err)

	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.HTTPStatus)
}

func TestSearchProviderOutageIs503(t *testing.T) {
	embedder := &fakeEmbedder{
		err: fmt.Errorf("%w: connection refused", embeddings.ErrProviderUnavailable),
	}
	svc := testService(&fakeStore{}, embedder)

	_, err := svc.Search(context.Background(), Query{Text: "anything"})
	require.Error(t, err)

	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, 503, appErr.HTTPStatus)
	assert.Equal(t, "embeddings_unavailable", appErr.Code)
}

func TestSearchIncludeArchive(t *testing.T) {
	store := &fakeStore{}
	svc := testService(store, &fakeEmbedder{})

	_, err := svc.Search(context.Background(), Query{Text: "x", IncludeArchive: true})
	require.NoError(t, err)
	assert.True(t, store.lastArchive)
}

func TestSimilarUsesDefaults(t *testing.T) {
	store := &fakeStore{}
	svc := testService(store, &fakeEmbedder{})

	_, err := svc.Similar(context.Background(), 42, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), store.lastSimilarID)
	assert.Equal(t, DefaultK, store.lastK)
	assert.Equal(t, DefaultMinSimilarity, store.lastMinSim)
}
