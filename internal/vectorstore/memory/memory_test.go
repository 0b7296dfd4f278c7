package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huda/internal/domain"
	"huda/internal/filter"
	"huda/internal/vectorstore"
)

func seed(t *testing.T, distance domain.Distance) *Storage {
	t.Helper()
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.CreateCollection(ctx, "ayahs", 3, distance))
	require.NoError(t, s.Upsert(ctx, "ayahs", []vectorstore.Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]any{"text": "first", "surah_number": 1}},
		{ID: "b", Vector: []float32{0, 1, 0}, Payload: map[string]any{"text": "second", "surah_number": 2}},
		{ID: "c", Vector: []float32{0.9, 0.1, 0}, Payload: map[string]any{"text": "third", "surah_number": 2}},
	}))
	return s
}

func TestStorage_CollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	_, err := s.Collection(ctx, "ayahs")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.CreateCollection(ctx, "ayahs", 4, domain.DistanceCosine))
	assert.ErrorIs(t, s.CreateCollection(ctx, "ayahs", 4, domain.DistanceCosine), domain.ErrAlreadyExists)
	assert.ErrorIs(t, s.CreateCollection(ctx, "bad", 0, domain.DistanceCosine), domain.ErrValidation)

	info, err := s.Collection(ctx, "ayahs")
	require.NoError(t, err)
	assert.Equal(t, 4, info.VectorSize)
	assert.Equal(t, domain.DistanceCosine, info.Distance)

	require.NoError(t, s.DeleteCollection(ctx, "ayahs"))
	assert.ErrorIs(t, s.DeleteCollection(ctx, "ayahs"), domain.ErrNotFound)
}

func TestStorage_QueryOrdersByScore(t *testing.T) {
	s := seed(t, domain.DistanceCosine)
	results, err := s.Query(context.Background(), "ayahs", []float32{1, 0, 0}, nil, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestStorage_QueryEuclidAscending(t *testing.T) {
	s := seed(t, domain.DistanceEuclid)
	results, err := s.Query(context.Background(), "ayahs", []float32{0, 1, 0}, nil, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].ID)
	assert.InDelta(t, 0.0, results[0].Score, 1e-9)
	assert.LessOrEqual(t, results[0].Score, results[1].Score)
}

func TestStorage_QueryFilterAndDimension(t *testing.T) {
	ctx := context.Background()
	s := seed(t, domain.DistanceCosine)
	f, err := filter.Compile(map[string]any{"surah_number": 2})
	require.NoError(t, err)

	results, err := s.Query(ctx, "ayahs", []float32{1, 0, 0}, f, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].ID)

	_, err = s.Query(ctx, "ayahs", []float32{1, 0}, nil, 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStorage_UpsertReplacesAndIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := seed(t, domain.DistanceCosine)

	require.NoError(t, s.Upsert(ctx, "ayahs", []vectorstore.Point{
		{ID: "a", Vector: []float32{0, 0, 1}, Payload: map[string]any{"text": "replaced"}},
	}))
	got, err := s.Retrieve(ctx, "ayahs", []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "replaced", got[0].Text())
	assert.NotContains(t, got[0].Payload, "surah_number")

	err = s.Upsert(ctx, "ayahs", []vectorstore.Point{
		{ID: "d", Vector: []float32{1, 1, 1}},
		{ID: "e", Vector: []float32{1, 1}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	n, err := s.Count(ctx, "ayahs", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStorage_ScrollKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := seed(t, domain.DistanceCosine)

	page, err := s.Scroll(ctx, "ayahs", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	require.NoError(t, s.Delete(ctx, "ayahs", []string{"a", "missing"}))
	page, err = s.Scroll(ctx, "ayahs", nil, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)
	assert.Equal(t, "c", page[1].ID)
}

func TestStorage_PayloadIsCopied(t *testing.T) {
	ctx := context.Background()
	s := seed(t, domain.DistanceCosine)
	got, err := s.Retrieve(ctx, "ayahs", []string{"b"})
	require.NoError(t, err)
	got[0].Payload["text"] = "mutated"

	again, err := s.Retrieve(ctx, "ayahs", []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, "second", again[0].Text())
}

func TestStorage_Count(t *testing.T) {
	ctx := context.Background()
	s := seed(t, domain.DistanceCosine)
	f, err := filter.Compile(map[string]any{"surah_number": map[string]any{"gte": 2}})
	require.NoError(t, err)
	n, err := s.Count(ctx, "ayahs", f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Count(ctx, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
