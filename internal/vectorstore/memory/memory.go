package memory

import (
	"context"
	"sort"
	"sync"

	"huda/internal/domain"
	"huda/internal/filter"
	"huda/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force similarity.
// Points keep their first insertion order so scrolls are stable.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	size     int
	distance domain.Distance
	order    []string
	points   map[string]vectorstore.Point
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

func (s *Storage) Collection(_ context.Context, name string) (domain.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.CollectionInfo{}, domain.NotFoundf("collection %q", name)
	}
	return domain.CollectionInfo{Name: name, VectorSize: c.size, Distance: c.distance, PointsCount: len(c.points)}, nil
}

func (s *Storage) CreateCollection(_ context.Context, name string, size int, distance domain.Distance) error {
	if size <= 0 {
		return domain.Validationf("invalid dimension %d", size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return domain.ErrAlreadyExists
	}
	s.collections[name] = &collection{size: size, distance: distance, points: make(map[string]vectorstore.Point)}
	return nil
}

func (s *Storage) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return domain.NotFoundf("collection %q", name)
	}
	delete(s.collections, name)
	return nil
}

func (s *Storage) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != c.size {
			return domain.Validationf("vector dimension mismatch: collection %q expects %d, got %d", name, c.size, len(p.Vector))
		}
	}
	for _, p := range points {
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		c.points[p.ID] = vectorstore.Point{ID: p.ID, Vector: vec, Payload: vectorstore.ClonePayload(p.Payload)}
	}
	return nil
}

func (s *Storage) Query(_ context.Context, name string, vector []float32, f *filter.Filter, limit int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	if len(vector) != c.size {
		return nil, domain.Validationf("query vector dimension mismatch: collection %q expects %d, got %d", name, c.size, len(vector))
	}
	results := make([]domain.SearchResult, 0, len(c.points))
	for _, id := range c.order {
		p := c.points[id]
		if !f.Match(p.Payload) {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:      id,
			Score:   vectorstore.Score(c.distance, vector, p.Vector),
			Payload: vectorstore.ClonePayload(p.Payload),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return vectorstore.Better(c.distance, results[i].Score, results[j].Score)
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (s *Storage) Scroll(_ context.Context, name string, f *filter.Filter, limit int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	var out []domain.SearchResult
	for _, id := range c.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		p := c.points[id]
		if !f.Match(p.Payload) {
			continue
		}
		out = append(out, domain.SearchResult{ID: id, Payload: vectorstore.ClonePayload(p.Payload)})
	}
	return out, nil
}

func (s *Storage) Retrieve(_ context.Context, name string, ids []string) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	var out []domain.SearchResult
	for _, id := range ids {
		if p, ok := c.points[id]; ok {
			out = append(out, domain.SearchResult{ID: id, Payload: vectorstore.ClonePayload(p.Payload)})
		}
	}
	return out, nil
}

func (s *Storage) Delete(_ context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.points[id]; ok {
			delete(c.points, id)
			removed[id] = struct{}{}
		}
	}
	if len(removed) == 0 {
		return nil
	}
	kept := c.order[:0]
	for _, id := range c.order {
		if _, gone := removed[id]; !gone {
			kept = append(kept, id)
		}
	}
	c.order = kept
	return nil
}

func (s *Storage) Count(_ context.Context, name string, f *filter.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return len(c.points), nil
	}
	n := 0
	for _, p := range c.points {
		if f.Match(p.Payload) {
			n++
		}
	}
	return n, nil
}

func (s *Storage) Close() error { return nil }

func (s *Storage) get(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, domain.NotFoundf("collection %q", name)
	}
	return c, nil
}
