// Package retrieval is the multi-collection retrieval core: collection
// lifecycle, document ingestion, keyword/semantic/hybrid search and
// reference-scoped maintenance, written once against vectorstore.Storage.
package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"huda/internal/domain"
	"huda/internal/vectorstore"
)

const (
	defaultVectorSize        = 1536
	defaultKeywordPageSize   = 512
	defaultReferencePageSize = 1000
	defaultLimit             = 10
	defaultMetadataLimit     = 50
)

// Options tunes the retrieval core. Zero values fall back to defaults.
type Options struct {
	DefaultVectorSize int
	DefaultDistance   domain.Distance
	KeywordPageSize   int
	ReferencePageSize int
	DefaultLimit      int
	MetadataLimit     int
	// Timeout bounds every backend call; zero leaves the caller's context alone.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultVectorSize <= 0 {
		o.DefaultVectorSize = defaultVectorSize
	}
	if o.DefaultDistance == "" {
		o.DefaultDistance = domain.DistanceCosine
	}
	if o.KeywordPageSize <= 0 {
		o.KeywordPageSize = defaultKeywordPageSize
	}
	if o.ReferencePageSize <= 0 {
		o.ReferencePageSize = defaultReferencePageSize
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = defaultLimit
	}
	if o.MetadataLimit <= 0 {
		o.MetadataLimit = defaultMetadataLimit
	}
	return o
}

// Store implements domain.VectorStore on top of a backend.
type Store struct {
	backend  vectorstore.Storage
	opts     Options
	logger   arbor.ILogger
	validate *validator.Validate
}

var _ domain.VectorStore = (*Store)(nil)

func NewStore(backend vectorstore.Storage, opts Options, logger arbor.ILogger) *Store {
	return &Store{
		backend:  backend,
		opts:     opts.withDefaults(),
		logger:   logger,
		validate: validator.New(),
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

func (s *Store) limitOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}

// classify reports an expired deadline as a connectivity failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrConnectivity) {
		return domain.Connectivity(op, err)
	}
	return err
}
