package retrieval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"huda/internal/domain"
	"huda/internal/filter"
)

// SemanticSearch returns the nearest neighbours of vector ordered by the
// collection's similarity. An unknown collection or a vector of the wrong
// length fails instead of returning no hits.
func (s *Store) SemanticSearch(ctx context.Context, collection string, vector []float32, filterMap map[string]any, limit int) ([]domain.SearchResult, error) {
	f, err := filter.Compile(filterMap)
	if err != nil {
		return nil, err
	}
	results, _, err := s.semantic(ctx, collection, vector, f, s.limitOr(limit, s.opts.DefaultLimit))
	return results, err
}

// semantic also reports the collection's distance so callers can interpret
// the scores.
func (s *Store) semantic(ctx context.Context, collection string, vector []float32, f *filter.Filter, limit int) ([]domain.SearchResult, domain.Distance, error) {
	if len(vector) == 0 {
		return nil, "", domain.Validationf("query vector is empty")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	info, err := s.backend.Collection(ctx, collection)
	if err != nil {
		return nil, "", classify("semantic search "+collection, err)
	}
	if info.VectorSize > 0 && len(vector) != info.VectorSize {
		return nil, "", domain.Validationf("query vector dimension mismatch: collection %q expects %d, got %d",
			collection, info.VectorSize, len(vector))
	}
	results, err := s.backend.Query(ctx, collection, vector, f, limit)
	if err != nil {
		return nil, "", classify("semantic search "+collection, err)
	}
	return results, info.Distance, nil
}

// SearchByEmbeddings runs one semantic search per vector. Results keep the
// order of the input vectors.
func (s *Store) SearchByEmbeddings(ctx context.Context, collection string, vectors [][]float32, limit int) ([][]domain.SearchResult, error) {
	if len(vectors) == 0 {
		return nil, domain.Validationf("no query vectors")
	}
	limit = s.limitOr(limit, s.opts.DefaultLimit)
	out := make([][]domain.SearchResult, len(vectors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, v := range vectors {
		g.Go(func() error {
			results, _, err := s.semantic(gctx, collection, v, nil, limit)
			if err != nil {
				return err
			}
			out[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
