package vectorstore

import (
	"context"

	"huda/internal/domain"
	"huda/internal/filter"
)

// Point is one vector with its payload, addressed by a string id.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Storage is the backend capability set the retrieval core is written
// against. Implementations report missing collections with
// domain.ErrNotFound, create races with domain.ErrAlreadyExists, and
// transport failures with domain.ErrConnectivity.
type Storage interface {
	Collection(ctx context.Context, name string) (domain.CollectionInfo, error)
	CreateCollection(ctx context.Context, name string, size int, distance domain.Distance) error
	DeleteCollection(ctx context.Context, name string) error

	// Upsert writes all points or none; an existing id is fully replaced.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Query returns nearest neighbours ordered best first.
	Query(ctx context.Context, collection string, vector []float32, f *filter.Filter, limit int) ([]domain.SearchResult, error)
	// Scroll returns up to limit points in a stable backend order.
	Scroll(ctx context.Context, collection string, f *filter.Filter, limit int) ([]domain.SearchResult, error)
	Retrieve(ctx context.Context, collection string, ids []string) ([]domain.SearchResult, error)
	Delete(ctx context.Context, collection string, ids []string) error
	Count(ctx context.Context, collection string, f *filter.Filter) (int, error)

	Close() error
}
