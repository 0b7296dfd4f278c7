package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"huda/internal/domain"
)

// WellKnownCollections are created by Initialize. The duaas collection is
// left to lazy creation on first write.
var WellKnownCollections = []string{
	domain.CollectionAyahs,
	domain.CollectionTafseers,
	domain.CollectionHadiths,
}

// Initialize ensures every well-known collection exists. With recreate set
// each one is dropped and rebuilt empty.
func (s *Store) Initialize(ctx context.Context, recreate bool) error {
	for _, name := range WellKnownCollections {
		if recreate {
			if err := s.Recreate(ctx, name, s.opts.DefaultVectorSize, s.opts.DefaultDistance); err != nil {
				return err
			}
			continue
		}
		if _, err := s.Ensure(ctx, name); err != nil {
			return err
		}
	}
	s.logger.Info().
		Int("collections", len(WellKnownCollections)).
		Bool("recreate", recreate).
		Msg("Vector store initialized")
	return nil
}

// Ensure creates the collection with the default size and distance when it
// is missing. It reports whether the collection already existed; losing a
// creation race counts as existing.
func (s *Store) Ensure(ctx context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.backend.Collection(ctx, name)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, classify("ensure "+name, err)
	}

	err = s.backend.CreateCollection(ctx, name, s.opts.DefaultVectorSize, s.opts.DefaultDistance)
	if errors.Is(err, domain.ErrAlreadyExists) {
		s.logger.Debug().Str("collection", name).Msg("Collection created concurrently")
		return true, nil
	}
	if err != nil {
		return false, classify("create "+name, err)
	}
	s.logger.Info().
		Str("collection", name).
		Int("vector_size", s.opts.DefaultVectorSize).
		Str("distance", string(s.opts.DefaultDistance)).
		Msg("Created missing collection")
	return false, nil
}

// CollectionExists asks the backend; existence is never cached.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.backend.Collection(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	}
	return false, classify("collection "+name, err)
}

// Info returns the backend's view of a collection.
func (s *Store) Info(ctx context.Context, name string) (domain.CollectionInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	info, err := s.backend.Collection(ctx, name)
	return info, classify("collection "+name, err)
}

// Create makes a new empty collection. An existing collection yields
// domain.ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, name string, size int, distance domain.Distance) error {
	if err := checkName(name); err != nil {
		return err
	}
	if size <= 0 {
		return domain.Validationf("vector size must be positive, got %d", size)
	}
	if distance == "" {
		distance = s.opts.DefaultDistance
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.backend.CreateCollection(ctx, name, size, distance); err != nil {
		return classify("create "+name, err)
	}
	s.logger.Info().Str("collection", name).Int("vector_size", size).Str("distance", string(distance)).Msg("Collection created")
	return nil
}

// Recreate drops the collection if present and builds it again empty. If the
// drop succeeds but the rebuild fails the error says so; the collection is
// then absent.
func (s *Store) Recreate(ctx context.Context, name string, size int, distance domain.Distance) error {
	if err := checkName(name); err != nil {
		return err
	}
	if size <= 0 {
		return domain.Validationf("vector size must be positive, got %d", size)
	}
	if err := s.DeleteCollection(ctx, name); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("recreate %q: %w", name, err)
	}
	if err := s.Create(ctx, name, size, distance); err != nil {
		return fmt.Errorf("recreate %q: dropped but not rebuilt: %w", name, err)
	}
	s.logger.Warn().Str("collection", name).Msg("Collection recreated, previous points discarded")
	return nil
}

// DeleteCollection removes a collection and all of its points.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.backend.DeleteCollection(ctx, name); err != nil {
		return classify("delete collection "+name, err)
	}
	s.logger.Info().Str("collection", name).Msg("Collection deleted")
	return nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.Validationf("collection name must not be empty")
	}
	return nil
}
