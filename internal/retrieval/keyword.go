package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"huda/internal/domain"
	"huda/internal/filter"
)

const (
	substringBonus = 100
	lengthBonusMax = 50
	lengthBonusGap = 50
)

// KeywordSearch scores one bounded page of the collection against query.
// Documents beyond that page are never considered; this is a heuristic,
// not a full-text index.
func (s *Store) KeywordSearch(ctx context.Context, collection, query string, filterMap map[string]any, limit, offset int) ([]domain.SearchResult, error) {
	f, err := filter.Compile(filterMap)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, domain.Validationf("offset must not be negative, got %d", offset)
	}
	return s.keyword(ctx, collection, query, f, s.limitOr(limit, s.opts.DefaultLimit), offset)
}

func (s *Store) keyword(ctx context.Context, collection, query string, f *filter.Filter, limit, offset int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.Validationf("keyword query is empty")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	page, err := s.backend.Scroll(ctx, collection, f, s.opts.KeywordPageSize)
	if err != nil {
		return nil, classify("keyword search "+collection, err)
	}

	matches := make([]domain.SearchResult, 0, len(page))
	for _, doc := range page {
		score := KeywordScore(doc.Text(), query)
		if score == 0 {
			continue
		}
		doc.Score = float64(score)
		matches = append(matches, doc)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if offset >= len(matches) {
		return []domain.SearchResult{}, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end], nil
}

// KeywordScore is the heuristic relevance of text for query, both case
// folded. A whole-query substring earns 100 plus up to 50 more for texts
// close to the query's length; every query token found in the text adds 1.
func KeywordScore(text, query string) int {
	t := strings.ToLower(text)
	q := strings.ToLower(query)
	score := 0
	if q != "" && strings.Contains(t, q) {
		score += substringBonus
		extra := utf8.RuneCountInString(t) - utf8.RuneCountInString(q)
		if bonus := lengthBonusMax - extra/lengthBonusGap; bonus > 0 {
			score += bonus
		}
	}
	for _, token := range strings.Fields(q) {
		if strings.Contains(t, token) {
			score++
		}
	}
	return score
}
