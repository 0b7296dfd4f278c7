package retrieval

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"huda/internal/domain"
	"huda/internal/filter"
)

// HybridSearch fuses semantic and keyword results. Both legs run
// concurrently at twice the requested limit; the fused score is
// sw*semantic + kw*keyword with a missing side counting as 0. The two
// scores live on different scales, so weights are a tuning knob rather than
// a calibrated mix.
func (s *Store) HybridSearch(ctx context.Context, q domain.HybridQuery) ([]domain.SearchResult, error) {
	if q.KeywordWeight < 0 || q.SemanticWeight < 0 {
		return nil, domain.Validationf("hybrid weights must not be negative (keyword=%v, semantic=%v)", q.KeywordWeight, q.SemanticWeight)
	}
	f, err := filter.Compile(q.Filter)
	if err != nil {
		return nil, err
	}
	limit := s.limitOr(q.Limit, s.opts.DefaultLimit)
	candidates := 2 * limit

	var (
		semantic, keyword []domain.SearchResult
		distance          domain.Distance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semantic, distance, err = s.semantic(gctx, q.Collection, q.Vector, f, candidates)
		return err
	})
	g.Go(func() error {
		var err error
		keyword, err = s.keyword(gctx, q.Collection, q.Query, f, candidates, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if distance == domain.DistanceEuclid {
		// distances rank ascending; turn them into a similarity first
		for i := range semantic {
			semantic[i].Score = 1 / (1 + semantic[i].Score)
		}
	}
	fused := Fuse(semantic, keyword, q.SemanticWeight, q.KeywordWeight)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	s.logger.Debug().
		Str("collection", q.Collection).
		Int("semantic", len(semantic)).
		Int("keyword", len(keyword)).
		Int("fused", len(fused)).
		Msg("Hybrid search completed")
	return fused, nil
}

// Fuse merges two ranked lists by id. Payloads come from the semantic hit
// when both sides have the id. Equal fused scores are ordered by rank in the
// more heavily weighted list, then by rank in the other.
func Fuse(semantic, keyword []domain.SearchResult, semanticWeight, keywordWeight float64) []domain.SearchResult {
	type entry struct {
		result           domain.SearchResult
		semScore         float64
		keyScore         float64
		semRank, keyRank int
	}
	absent := len(semantic) + len(keyword)
	byID := make(map[string]*entry, absent)
	entries := make([]*entry, 0, absent)

	for i, r := range semantic {
		if _, seen := byID[r.ID]; seen {
			continue
		}
		e := &entry{result: r, semScore: r.Score, semRank: i, keyRank: absent}
		byID[r.ID] = e
		entries = append(entries, e)
	}
	for i, r := range keyword {
		if e, ok := byID[r.ID]; ok {
			if e.keyRank == absent {
				e.keyScore, e.keyRank = r.Score, i
			}
			continue
		}
		e := &entry{result: r, keyScore: r.Score, semRank: absent, keyRank: i}
		byID[r.ID] = e
		entries = append(entries, e)
	}

	for _, e := range entries {
		e.result.Score = semanticWeight*e.semScore + keywordWeight*e.keyScore
	}
	semanticFirst := semanticWeight >= keywordWeight
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.result.Score != b.result.Score {
			return a.result.Score > b.result.Score
		}
		if semanticFirst {
			if a.semRank != b.semRank {
				return a.semRank < b.semRank
			}
			return a.keyRank < b.keyRank
		}
		if a.keyRank != b.keyRank {
			return a.keyRank < b.keyRank
		}
		return a.semRank < b.semRank
	})

	out := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		out[i] = e.result
	}
	return out
}
