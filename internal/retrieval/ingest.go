package retrieval

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"huda/internal/domain"
	"huda/internal/vectorstore"
)

const statusOK = "ok"

// Insert validates a document, lazily ensures its collection and upserts a
// single point. Re-inserting an id replaces the previous point entirely.
func (s *Store) Insert(ctx context.Context, doc domain.Document) (domain.InsertResult, error) {
	if err := s.validateDocument(doc); err != nil {
		return domain.InsertResult{}, err
	}
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		id = uuid.NewString()
	}
	collection := doc.CollectionName()
	payload, dropped := buildPayload(doc, id)
	if len(dropped) > 0 {
		s.logger.Debug().
			Str("id", id).
			Strs("keys", dropped).
			Msg("Ignored extra metadata keys that shadow reserved fields")
	}

	if _, err := s.Ensure(ctx, collection); err != nil {
		return domain.InsertResult{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	info, err := s.backend.Collection(ctx, collection)
	if err != nil {
		return domain.InsertResult{}, classify("insert "+collection, err)
	}
	if info.VectorSize > 0 && len(doc.Vector) != info.VectorSize {
		return domain.InsertResult{}, domain.Validationf(
			"vector dimension mismatch: collection %q expects %d, got %d", collection, info.VectorSize, len(doc.Vector))
	}

	point := vectorstore.Point{ID: id, Vector: doc.Vector, Payload: payload}
	if err := s.backend.Upsert(ctx, collection, []vectorstore.Point{point}); err != nil {
		return domain.InsertResult{}, classify("insert "+collection, err)
	}
	s.logger.Debug().Str("collection", collection).Str("id", id).Str("kind", string(doc.Kind)).Msg("Document upserted")
	return domain.InsertResult{ID: id, Status: statusOK}, nil
}

func (s *Store) validateDocument(doc domain.Document) error {
	if err := s.validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" failed "+fe.Tag())
			}
			return domain.Validationf("document: %s", strings.Join(fields, "; "))
		}
		return domain.Validationf("document: %v", err)
	}

	blocks := map[domain.Kind]bool{
		domain.KindAyah:    doc.Ayah != nil,
		domain.KindTafseer: doc.Tafseer != nil,
		domain.KindHadith:  doc.Hadith != nil,
		domain.KindDuaa:    doc.Duaa != nil,
	}
	for kind, set := range blocks {
		if set && kind != doc.Kind {
			return domain.Validationf("%s document carries %s fields", doc.Kind, kind)
		}
	}
	if (doc.Kind == domain.KindAyah || doc.Kind == domain.KindDuaa) && !blocks[doc.Kind] {
		return domain.Validationf("%s document is missing its %s fields", doc.Kind, doc.Kind)
	}
	return nil
}

// InsertAyah stores a verse.
func (s *Store) InsertAyah(ctx context.Context, id, text string, vector []float32, fields domain.AyahFields) (domain.InsertResult, error) {
	return s.Insert(ctx, domain.NewAyah(id, text, vector, fields))
}

// InsertTafseer stores a commentary entry.
func (s *Store) InsertTafseer(ctx context.Context, id, text string, vector []float32, fields domain.TafseerFields) (domain.InsertResult, error) {
	return s.Insert(ctx, domain.NewTafseer(id, text, vector, fields))
}

// InsertHadith stores a tradition.
func (s *Store) InsertHadith(ctx context.Context, id, text string, vector []float32, fields domain.HadithFields) (domain.InsertResult, error) {
	return s.Insert(ctx, domain.NewHadith(id, text, vector, fields))
}

// InsertDuaa stores an invocation.
func (s *Store) InsertDuaa(ctx context.Context, id, text string, vector []float32, fields domain.DuaaFields) (domain.InsertResult, error) {
	return s.Insert(ctx, domain.NewDuaa(id, text, vector, fields))
}
