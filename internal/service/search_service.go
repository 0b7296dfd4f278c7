// Package service turns text queries into retrieval calls: it embeds the
// query when the strategy needs a vector and dispatches to the store.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"huda/internal/domain"
)

// Mode selects a search strategy.
type Mode string

const (
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

var modes = []Mode{ModeKeyword, ModeSemantic, ModeHybrid}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range modes {
		if m == known {
			return m, nil
		}
	}
	return "", domain.Validationf("unknown search mode %q", s)
}

// Next cycles keyword -> semantic -> hybrid -> keyword.
func (m Mode) Next() Mode {
	for i, known := range modes {
		if m == known {
			return modes[(i+1)%len(modes)]
		}
	}
	return ModeKeyword
}

// Request is a text search. Zero weights mean equal hybrid weights.
type Request struct {
	Mode           Mode
	Collection     string
	Query          string
	Filter         map[string]any
	Limit          int
	Offset         int
	KeywordWeight  float64
	SemanticWeight float64
}

// SearchService implements text search over a VectorStore.
type SearchService struct {
	store    domain.VectorStore
	embedder domain.Embedder
	logger   arbor.ILogger
}

func NewSearchService(store domain.VectorStore, embedder domain.Embedder, logger arbor.ILogger) *SearchService {
	return &SearchService{store: store, embedder: embedder, logger: logger}
}

// Search runs req. A semantic query whose embedding is the zero vector
// (nothing but stopwords for the hashing embedder) is answered by the
// keyword strategy instead.
func (s *SearchService) Search(ctx context.Context, req Request) ([]domain.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.Validationf("query is empty")
	}
	switch req.Mode {
	case ModeKeyword, "":
		return s.store.KeywordSearch(ctx, req.Collection, query, req.Filter, req.Limit, req.Offset)
	case ModeSemantic:
		vec, err := s.embed(ctx, query)
		if err != nil {
			return nil, err
		}
		if isZero(vec) {
			s.logger.Debug().Str("query", query).Msg("Query has no embedding signal, using keyword search")
			return s.store.KeywordSearch(ctx, req.Collection, query, req.Filter, req.Limit, req.Offset)
		}
		return s.store.SemanticSearch(ctx, req.Collection, vec, req.Filter, req.Limit)
	case ModeHybrid:
		vec, err := s.embed(ctx, query)
		if err != nil {
			return nil, err
		}
		q := domain.NewHybridQuery(req.Collection, query, vec, req.Limit)
		q.Filter = req.Filter
		if req.KeywordWeight != 0 || req.SemanticWeight != 0 {
			q.KeywordWeight, q.SemanticWeight = req.KeywordWeight, req.SemanticWeight
		}
		return s.store.HybridSearch(ctx, q)
	}
	return nil, domain.Validationf("unknown search mode %q", req.Mode)
}

func (s *SearchService) embed(ctx context.Context, query string) ([]float32, error) {
	vec, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
