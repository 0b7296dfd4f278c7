package retrieval

import (
	"context"
	"errors"
	"math"

	"huda/internal/domain"
	"huda/internal/filter"
)

// DeleteByReference removes every document whose referenced_ayahs list
// contains ref. Without explicit collections only tafseers is scanned. Each
// collection contributes one bounded page of candidates, deleted in a single
// batch. The total number of deleted documents is returned.
func (s *Store) DeleteByReference(ctx context.Context, ref domain.AyahRef, collections ...string) (int, error) {
	if ref.SurahNumber <= 0 || ref.AyahNumber <= 0 {
		return 0, domain.Validationf("invalid ayah reference %s", ref)
	}
	if len(collections) == 0 {
		collections = []string{domain.CollectionTafseers}
	}

	total := 0
	for _, collection := range collections {
		n, err := s.deleteReferencing(ctx, collection, ref)
		if err != nil {
			return total, err
		}
		total += n
	}
	s.logger.Info().
		Str("reference", ref.String()).
		Strs("collections", collections).
		Int("deleted", total).
		Msg("Deleted documents by ayah reference")
	return total, nil
}

func (s *Store) deleteReferencing(ctx context.Context, collection string, ref domain.AyahRef) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	page, err := s.backend.Scroll(ctx, collection, nil, s.opts.ReferencePageSize)
	if err != nil {
		return 0, classify("delete by reference "+collection, err)
	}
	var ids []string
	for _, doc := range page {
		for _, r := range ReferencedAyahs(doc.Payload) {
			if r == ref {
				ids = append(ids, doc.ID)
				break
			}
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.backend.Delete(ctx, collection, ids); err != nil {
		return 0, classify("delete by reference "+collection, err)
	}
	return len(ids), nil
}

// DeleteDocument removes every point whose parent_id is parentID except the
// ids in keep, and returns how many were removed. One page of candidates is
// scanned, as for reference deletion. A missing collection removes nothing.
func (s *Store) DeleteDocument(ctx context.Context, collection, parentID string, keep ...string) (int, error) {
	if parentID == "" {
		return 0, domain.Validationf("document id is required")
	}
	f, err := filter.Compile(map[string]any{domain.PayloadParentID: parentID})
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	page, err := s.backend.Scroll(ctx, collection, f, s.opts.ReferencePageSize)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, classify("delete document "+collection, err)
	}
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	var ids []string
	for _, p := range page {
		if _, ok := kept[p.ID]; !ok {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.backend.Delete(ctx, collection, ids); err != nil {
		return 0, classify("delete document "+collection, err)
	}
	s.logger.Debug().
		Str("collection", collection).
		Str("parent_id", parentID).
		Int("deleted", len(ids)).
		Msg("Removed document points")
	return len(ids), nil
}

// Count returns the number of points matching filterMap. A missing
// collection counts as 0.
func (s *Store) Count(ctx context.Context, collection string, filterMap map[string]any) (int, error) {
	f, err := filter.Compile(filterMap)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.backend.Count(ctx, collection, f)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, classify("count "+collection, err)
	}
	return n, nil
}

// Get fetches one document by id.
func (s *Store) Get(ctx context.Context, collection, id string) (domain.SearchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	found, err := s.backend.Retrieve(ctx, collection, []string{id})
	if err != nil {
		return domain.SearchResult{}, classify("get "+collection, err)
	}
	if len(found) == 0 {
		return domain.SearchResult{}, domain.NotFoundf("document %q in %q", id, collection)
	}
	return found[0], nil
}

// DeleteByID removes one document, failing with domain.ErrNotFound when the
// id is unknown.
func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	if _, err := s.Get(ctx, collection, id); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.backend.Delete(ctx, collection, []string{id}); err != nil {
		return classify("delete "+collection, err)
	}
	s.logger.Debug().Str("collection", collection).Str("id", id).Msg("Document deleted")
	return nil
}

// SearchByMetadata lists documents matching the filter in backend order.
// Scores are zero.
func (s *Store) SearchByMetadata(ctx context.Context, collection string, filterMap map[string]any, limit int) ([]domain.SearchResult, error) {
	f, err := filter.Compile(filterMap)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	results, err := s.backend.Scroll(ctx, collection, f, s.limitOr(limit, s.opts.MetadataLimit))
	if err != nil {
		return nil, classify("metadata search "+collection, err)
	}
	return results, nil
}

// intValue accepts integral numbers of any numeric kind.
func intValue(v any) (int, bool) {
	n, ok := filter.Number(v)
	if !ok || n != math.Trunc(n) {
		return 0, false
	}
	return int(n), true
}
