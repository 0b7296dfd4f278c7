// Package ingest loads JSON batch files into the retrieval core. A bad item
// is recorded as a failure and the rest of the batch continues; only an
// unparseable envelope fails the whole call.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"huda/internal/domain"
)

// Report statuses.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Failure describes one item that could not be ingested. BatchIndex is
// 1-based.
type Failure struct {
	BatchIndex int    `json:"batch_index"`
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error"`
}

// Report summarises a batch run.
type Report struct {
	Status        string    `json:"status"`
	InsertedIDs   []string  `json:"inserted_ids"`
	TotalInserted int       `json:"total_inserted"`
	Failures      []Failure `json:"failures,omitempty"`
}

func (r *Report) inserted(id string) {
	r.InsertedIDs = append(r.InsertedIDs, id)
	r.TotalInserted++
}

func (r *Report) failed(batch int, id string, err error) {
	r.Failures = append(r.Failures, Failure{BatchIndex: batch, DocumentID: id, Error: err.Error()})
}

func (r *Report) finish() Report {
	switch {
	case len(r.Failures) == 0:
		r.Status = StatusOK
	case r.TotalInserted > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusFailed
	}
	if r.InsertedIDs == nil {
		r.InsertedIDs = []string{}
	}
	return *r
}

// Ingestor embeds and inserts batch records.
type Ingestor struct {
	store    domain.VectorStore
	embedder domain.Embedder
	chunker  domain.Chunker
	logger   arbor.ILogger
	validate *validator.Validate
	// duaaCollection overrides the default duaas collection when set.
	duaaCollection string
}

// NewIngestor wires the ingestion pipeline. A nil chunker stores every text
// as a single point.
func NewIngestor(store domain.VectorStore, embedder domain.Embedder, chunker domain.Chunker, logger arbor.ILogger) *Ingestor {
	return &Ingestor{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		logger:   logger,
		validate: validator.New(),
	}
}

// WithDuaaCollection routes duaa inserts to name instead of "duaas".
func (in *Ingestor) WithDuaaCollection(name string) *Ingestor {
	in.duaaCollection = name
	return in
}

// IngestFile reads path and dispatches on kind.
func (in *Ingestor) IngestFile(ctx context.Context, kind domain.Kind, path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read batch file: %w", err)
	}
	switch kind {
	case domain.KindDuaa:
		return in.IngestDuaas(ctx, data)
	case domain.KindAyah:
		return ingestRecords[AyahRecord](ctx, in, data)
	case domain.KindTafseer:
		return ingestRecords[TafseerRecord](ctx, in, data)
	case domain.KindHadith:
		return ingestRecords[HadithRecord](ctx, in, data)
	}
	return Report{}, domain.Validationf("unknown document kind %q", kind)
}

// IngestDuaas accepts a list of DuaaBatch objects or a single one.
func (in *Ingestor) IngestDuaas(ctx context.Context, data []byte) (Report, error) {
	raw, err := envelope(data)
	if err != nil {
		return Report{}, err
	}
	var report Report
	for i, item := range raw {
		batchIndex := i + 1
		var batch DuaaBatch
		if err := json.Unmarshal(item, &batch); err != nil {
			in.logger.Warn().Err(err).Int("batch_index", batchIndex).Msg("Duaa batch could not be decoded")
			report.failed(batchIndex, "", domain.Validationf("decode batch: %v", err))
			continue
		}
		if err := in.check(batch); err != nil {
			in.logger.Warn().Err(err).Int("batch_index", batchIndex).Msg("Duaa batch validation failed")
			report.failed(batchIndex, "", err)
			continue
		}
		for _, dua := range batch.Duas {
			id, err := in.insertDuaa(ctx, batch, dua)
			if err != nil {
				in.logger.Warn().Err(err).Str("dua_id", dua.ID).Int("batch_index", batchIndex).Msg("Failed to insert duaa")
				report.failed(batchIndex, dua.ID, err)
				continue
			}
			report.inserted(id)
		}
	}
	out := report.finish()
	in.logger.Info().
		Str("status", out.Status).
		Int("batches", len(raw)).
		Int("inserted", out.TotalInserted).
		Int("failures", len(out.Failures)).
		Msg("Duaa ingestion finished")
	return out, nil
}

// AddDuaa embeds and inserts a single duaa.
func (in *Ingestor) AddDuaa(ctx context.Context, batch DuaaBatch, dua DuaEntry) (string, error) {
	batch.Duas = []DuaEntry{dua}
	if err := in.check(batch); err != nil {
		return "", err
	}
	return in.insertDuaa(ctx, batch, dua)
}

func (in *Ingestor) insertDuaa(ctx context.Context, batch DuaaBatch, dua DuaEntry) (string, error) {
	vec, err := in.embedder.EmbedOne(ctx, dua.Arabic)
	if err != nil {
		return "", fmt.Errorf("embed duaa: %w", err)
	}
	doc := batch.document(dua)
	doc.Vector = vec
	doc.Collection = in.duaaCollection
	res, err := in.store.Insert(ctx, doc)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

type record interface {
	AyahRecord | TafseerRecord | HadithRecord
	document() domain.Document
}

// IngestAyahs ingests a JSON array of ayah records.
func (in *Ingestor) IngestAyahs(ctx context.Context, data []byte) (Report, error) {
	return ingestRecords[AyahRecord](ctx, in, data)
}

// IngestTafseers ingests a JSON array of tafseer records.
func (in *Ingestor) IngestTafseers(ctx context.Context, data []byte) (Report, error) {
	return ingestRecords[TafseerRecord](ctx, in, data)
}

// IngestHadiths ingests a JSON array of hadith records.
func (in *Ingestor) IngestHadiths(ctx context.Context, data []byte) (Report, error) {
	return ingestRecords[HadithRecord](ctx, in, data)
}

// IngestAyah stores a single ayah. A record without an id is keyed by its
// surah:ayah reference so fetching the same verse twice replaces it.
func (in *Ingestor) IngestAyah(ctx context.Context, rec AyahRecord) ([]string, error) {
	if err := in.check(rec); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = domain.AyahRef{SurahNumber: rec.SurahNumber, AyahNumber: rec.AyahNumber}.String()
	}
	ids, err := in.insertChunked(ctx, rec.document())
	if err != nil {
		return ids, err
	}
	in.logger.Info().Str("id", rec.ID).Int("points", len(ids)).Msg("Ayah ingested")
	return ids, nil
}

func ingestRecords[R record](ctx context.Context, in *Ingestor, data []byte) (Report, error) {
	raw, err := envelope(data)
	if err != nil {
		return Report{}, err
	}
	var report Report
	for i, item := range raw {
		index := i + 1
		var rec R
		if err := json.Unmarshal(item, &rec); err != nil {
			report.failed(index, "", domain.Validationf("decode record: %v", err))
			continue
		}
		doc := rec.document()
		if err := in.check(rec); err != nil {
			report.failed(index, doc.ID, err)
			continue
		}
		ids, err := in.insertChunked(ctx, doc)
		for _, id := range ids {
			report.inserted(id)
		}
		if err != nil {
			in.logger.Warn().Err(err).Str("id", doc.ID).Int("index", index).Msg("Failed to ingest record")
			report.failed(index, doc.ID, err)
		}
	}
	out := report.finish()
	in.logger.Info().
		Str("status", out.Status).
		Int("records", len(raw)).
		Int("inserted", out.TotalInserted).
		Int("failures", len(out.Failures)).
		Msg("Batch ingestion finished")
	return out, nil
}

// insertChunked stores doc as one point per chunk. Multi-chunk documents
// get ids of the form <id>:<n>. Every point carries the logical id as
// parent_id, and points left over from an earlier ingest of the same id
// are removed once the new ones are written. The ids inserted before a
// failure are returned with the error.
func (in *Ingestor) insertChunked(ctx context.Context, doc domain.Document) ([]string, error) {
	chunks := []domain.Chunk{{Index: 0, Text: doc.Text}}
	if in.chunker != nil {
		if c := in.chunker.Chunk(doc.Text); len(c) > 0 {
			chunks = c
		}
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := in.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
	}

	base := strings.TrimSpace(doc.ID)
	if base == "" && len(chunks) > 1 {
		base = uuid.NewString()
	}
	var ids []string
	for i, c := range chunks {
		part := doc
		part.Text = c.Text
		part.Vector = vecs[i]
		part.ChunkIndex = c.Index
		part.ParentID = base
		if len(chunks) > 1 {
			part.ID = base + ":" + strconv.Itoa(c.Index)
		}
		res, err := in.store.Insert(ctx, part)
		if err != nil {
			return ids, err
		}
		ids = append(ids, res.ID)
	}
	if base == "" {
		return ids, nil
	}
	stale, err := in.store.DeleteDocument(ctx, doc.CollectionName(), base, ids...)
	if err != nil {
		return ids, fmt.Errorf("remove stale points of %s: %w", base, err)
	}
	if stale > 0 {
		in.logger.Debug().Str("id", base).Int("removed", stale).Msg("Replaced earlier points of document")
	}
	return ids, nil
}

func (in *Ingestor) check(v any) error {
	if err := in.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" failed "+fe.Tag())
			}
			return domain.Validationf("%s", strings.Join(fields, "; "))
		}
		return domain.Validationf("%v", err)
	}
	return nil
}

// envelope splits a JSON array into its elements; a single object is
// treated as a one-element list.
func envelope(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, domain.Validationf("batch file is empty")
	}
	if trimmed[0] == '{' {
		if !json.Valid(trimmed) {
			return nil, domain.Validationf("batch file is not valid JSON")
		}
		return []json.RawMessage{trimmed}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, domain.Validationf("batch file must be a JSON array or object: %v", err)
	}
	return items, nil
}
