// Package badger persists collections on local disk with badgerhold and
// answers similarity queries by brute force, like the memory backend.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"huda/internal/domain"
	"huda/internal/filter"
	"huda/internal/vectorstore"
)

const sequenceKey = "huda/point-seq"

type collectionRecord struct {
	Name     string
	Size     int
	Distance string
}

type pointRecord struct {
	Key        string
	Collection string `badgerholdIndex:"Collection"`
	ID         string
	Seq        uint64
	Vector     []float32
	Payload    []byte
}

func (r pointRecord) result(score float64) (domain.SearchResult, error) {
	payload, err := vectorstore.DecodePayload(r.Payload)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("decode payload of %q: %w", r.ID, err)
	}
	return domain.SearchResult{ID: r.ID, Score: score, Payload: payload}, nil
}

func pointKey(collection, id string) string { return collection + "\x00" + id }

// Storage is a vectorstore.Storage backed by an embedded Badger database.
type Storage struct {
	store  *badgerhold.Store
	seq    *badgerdb.Sequence
	logger arbor.ILogger
}

type Config struct {
	Path string
}

var _ vectorstore.Storage = (*Storage)(nil)

// Open creates the data directory if needed and opens the database.
func Open(cfg Config, logger arbor.ILogger) (*Storage, error) {
	if cfg.Path == "" {
		return nil, domain.Validationf("badger path is required")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	logger.Debug().Str("path", cfg.Path).Msg("Opening Badger vector store")

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	seq, err := store.Badger().GetSequence([]byte(sequenceKey), 128)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open point sequence: %w", err)
	}
	return &Storage{store: store, seq: seq, logger: logger}, nil
}

func (s *Storage) Close() error {
	var errs []error
	if s.seq != nil {
		errs = append(errs, s.seq.Release())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

func (s *Storage) collection(name string) (collectionRecord, error) {
	var rec collectionRecord
	if err := s.store.Get(name, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return rec, domain.NotFoundf("collection %q", name)
		}
		return rec, fmt.Errorf("failed to read collection %q: %w", name, err)
	}
	return rec, nil
}

func (s *Storage) Collection(_ context.Context, name string) (domain.CollectionInfo, error) {
	rec, err := s.collection(name)
	if err != nil {
		return domain.CollectionInfo{}, err
	}
	count, err := s.store.Count(&pointRecord{}, badgerhold.Where("Collection").Eq(name).Index("Collection"))
	if err != nil {
		return domain.CollectionInfo{}, fmt.Errorf("failed to count points of %q: %w", name, err)
	}
	return domain.CollectionInfo{
		Name:        name,
		VectorSize:  rec.Size,
		Distance:    domain.Distance(rec.Distance),
		PointsCount: int(count),
	}, nil
}

func (s *Storage) CreateCollection(_ context.Context, name string, size int, distance domain.Distance) error {
	if size <= 0 {
		return domain.Validationf("invalid dimension %d", size)
	}
	if distance == "" {
		distance = domain.DistanceCosine
	}
	err := s.store.Insert(name, collectionRecord{Name: name, Size: size, Distance: string(distance)})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("collection %q: %w", name, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	return nil
}

func (s *Storage) DeleteCollection(_ context.Context, name string) error {
	if err := s.store.Delete(name, &collectionRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.NotFoundf("collection %q", name)
		}
		return fmt.Errorf("failed to delete collection %q: %w", name, err)
	}
	if err := s.store.DeleteMatching(&pointRecord{}, badgerhold.Where("Collection").Eq(name).Index("Collection")); err != nil {
		return fmt.Errorf("failed to delete points of %q: %w", name, err)
	}
	return nil
}

// Upsert writes every point in one Badger transaction.
func (s *Storage) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	rec, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != rec.Size {
			return domain.Validationf("vector dimension mismatch: collection %q expects %d, got %d", name, rec.Size, len(p.Vector))
		}
	}
	return s.store.Badger().Update(func(tx *badgerdb.Txn) error {
		for _, p := range points {
			key := pointKey(name, p.ID)
			var existing pointRecord
			seq := uint64(0)
			switch err := s.store.TxGet(tx, key, &existing); {
			case err == nil:
				seq = existing.Seq
			case errors.Is(err, badgerhold.ErrNotFound):
				if seq, err = s.seq.Next(); err != nil {
					return fmt.Errorf("failed to allocate sequence: %w", err)
				}
			default:
				return fmt.Errorf("failed to read point %q: %w", p.ID, err)
			}
			payload, err := json.Marshal(p.Payload)
			if err != nil {
				return domain.Validationf("payload of %q is not serialisable: %v", p.ID, err)
			}
			record := pointRecord{Key: key, Collection: name, ID: p.ID, Seq: seq, Vector: p.Vector, Payload: payload}
			if err := s.store.TxUpsert(tx, key, record); err != nil {
				return fmt.Errorf("failed to write point %q: %w", p.ID, err)
			}
		}
		return nil
	})
}

// points loads every record of a collection in insertion order.
func (s *Storage) points(name string) ([]pointRecord, collectionRecord, error) {
	rec, err := s.collection(name)
	if err != nil {
		return nil, rec, err
	}
	var records []pointRecord
	if err := s.store.Find(&records, badgerhold.Where("Collection").Eq(name).Index("Collection")); err != nil {
		return nil, rec, fmt.Errorf("failed to load points of %q: %w", name, err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records, rec, nil
}

func (s *Storage) Query(_ context.Context, name string, vector []float32, f *filter.Filter, limit int) ([]domain.SearchResult, error) {
	records, rec, err := s.points(name)
	if err != nil {
		return nil, err
	}
	if len(vector) != rec.Size {
		return nil, domain.Validationf("query vector dimension mismatch: collection %q expects %d, got %d", name, rec.Size, len(vector))
	}
	distance := domain.Distance(rec.Distance)
	results := make([]domain.SearchResult, 0, len(records))
	for _, r := range records {
		res, err := r.result(vectorstore.Score(distance, vector, r.Vector))
		if err != nil {
			return nil, err
		}
		if !f.Match(res.Payload) {
			continue
		}
		results = append(results, res)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return vectorstore.Better(distance, results[i].Score, results[j].Score)
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (s *Storage) Scroll(_ context.Context, name string, f *filter.Filter, limit int) ([]domain.SearchResult, error) {
	records, _, err := s.points(name)
	if err != nil {
		return nil, err
	}
	var out []domain.SearchResult
	for _, r := range records {
		if limit > 0 && len(out) >= limit {
			break
		}
		res, err := r.result(0)
		if err != nil {
			return nil, err
		}
		if f.Match(res.Payload) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (s *Storage) Retrieve(_ context.Context, name string, ids []string) ([]domain.SearchResult, error) {
	if _, err := s.collection(name); err != nil {
		return nil, err
	}
	var out []domain.SearchResult
	for _, id := range ids {
		var r pointRecord
		if err := s.store.Get(pointKey(name, id), &r); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to read point %q: %w", id, err)
		}
		res, err := r.result(0)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *Storage) Delete(_ context.Context, name string, ids []string) error {
	if _, err := s.collection(name); err != nil {
		return err
	}
	return s.store.Badger().Update(func(tx *badgerdb.Txn) error {
		for _, id := range ids {
			err := s.store.TxDelete(tx, pointKey(name, id), &pointRecord{})
			if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("failed to delete point %q: %w", id, err)
			}
		}
		return nil
	})
}

func (s *Storage) Count(ctx context.Context, name string, f *filter.Filter) (int, error) {
	if f == nil {
		info, err := s.Collection(ctx, name)
		return info.PointsCount, err
	}
	matched, err := s.Scroll(ctx, name, f, 0)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}
