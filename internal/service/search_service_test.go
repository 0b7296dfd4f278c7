package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"huda/internal/domain"
	"huda/internal/embedding/hashing"
	"huda/internal/retrieval"
	"huda/internal/vectorstore/memory"
)

func newSearch(t *testing.T) *SearchService {
	t.Helper()
	ctx := context.Background()
	logger := arbor.NewLogger()
	emb := hashing.NewEmbedder(64)
	store := retrieval.NewStore(memory.NewStorage(), retrieval.Options{DefaultVectorSize: 64}, logger)

	for _, a := range []struct {
		id, text    string
		surah, ayah int
	}{
		{"1:1", "In the name of Allah, the Entirely Merciful, the Especially Merciful", 1, 1},
		{"2:153", "seek help through patience and prayer", 2, 153},
		{"94:5", "with hardship comes ease", 94, 5},
	} {
		vec, err := emb.EmbedOne(ctx, a.text)
		require.NoError(t, err)
		_, err = store.InsertAyah(ctx, a.id, a.text, vec, domain.AyahFields{SurahNumber: a.surah, AyahNumber: a.ayah})
		require.NoError(t, err)
	}
	return NewSearchService(store, emb, logger)
}

func TestSearch_Modes(t *testing.T) {
	ctx := context.Background()
	s := newSearch(t)

	for _, mode := range []Mode{ModeKeyword, ModeSemantic, ModeHybrid} {
		t.Run(string(mode), func(t *testing.T) {
			res, err := s.Search(ctx, Request{Mode: mode, Collection: domain.CollectionAyahs, Query: "patience prayer", Limit: 2})
			require.NoError(t, err)
			require.NotEmpty(t, res)
			assert.Equal(t, "2:153", res[0].ID)
			assert.LessOrEqual(t, len(res), 2)
		})
	}
}

func TestSearch_FilterAndWeights(t *testing.T) {
	s := newSearch(t)
	res, err := s.Search(context.Background(), Request{
		Mode:          ModeHybrid,
		Collection:    domain.CollectionAyahs,
		Query:         "merciful",
		Filter:        map[string]any{"surah_number": map[string]any{"gte": 2}},
		KeywordWeight: 1,
	})
	require.NoError(t, err)
	for _, r := range res {
		assert.NotEqual(t, "1:1", r.ID)
	}
}

func TestSearch_ZeroVectorFallsBackToKeyword(t *testing.T) {
	s := newSearch(t)
	res, err := s.Search(context.Background(), Request{Mode: ModeSemantic, Collection: domain.CollectionAyahs, Query: "with"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "94:5", res[0].ID)
}

func TestSearch_Errors(t *testing.T) {
	s := newSearch(t)
	_, err := s.Search(context.Background(), Request{Mode: ModeKeyword, Collection: domain.CollectionAyahs, Query: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.Search(context.Background(), Request{Mode: "fuzzy", Collection: domain.CollectionAyahs, Query: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.Search(context.Background(), Request{Mode: ModeSemantic, Collection: "missing", Query: "patience"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseModeAndNext(t *testing.T) {
	m, err := ParseMode(" Hybrid ")
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, m)
	_, err = ParseMode("fuzzy")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, ModeSemantic, ModeKeyword.Next())
	assert.Equal(t, ModeHybrid, ModeSemantic.Next())
	assert.Equal(t, ModeKeyword, ModeHybrid.Next())
	assert.Equal(t, ModeKeyword, Mode("").Next())
}
