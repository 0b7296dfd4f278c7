package domain

import (
	"fmt"
	"strings"
)

// Kind discriminates the document variants stored by the retrieval core.
type Kind string

const (
	KindAyah    Kind = "ayah"
	KindTafseer Kind = "tafseer"
	KindHadith  Kind = "hadith"
	KindDuaa    Kind = "duaa"
)

// Well-known collection names, one per document kind.
const (
	CollectionAyahs    = "ayahs"
	CollectionTafseers = "tafseers"
	CollectionHadiths  = "hadiths"
	CollectionDuaas    = "duaas"
)

// Reserved payload keys present on every stored point.
const (
	PayloadText            = "text"
	PayloadType            = "type"
	PayloadDocID           = "doc_id"
	PayloadReferencedAyahs = "referenced_ayahs"
	// PayloadParentID names the logical document a point belongs to. Chunks
	// of one text share it; an unchunked point carries its own id.
	PayloadParentID = "parent_id"
)

// Collection returns the collection a kind is stored in.
func (k Kind) Collection() string {
	switch k {
	case KindAyah:
		return CollectionAyahs
	case KindTafseer:
		return CollectionTafseers
	case KindHadith:
		return CollectionHadiths
	case KindDuaa:
		return CollectionDuaas
	}
	return ""
}

// IDKey is the kind-specific payload key that mirrors the document id.
func (k Kind) IDKey() string { return string(k) + "_id" }

// ParseKind accepts a kind or its collection name ("ayah" or "ayahs").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ayah", CollectionAyahs:
		return KindAyah, nil
	case "tafseer", "tafsir", CollectionTafseers:
		return KindTafseer, nil
	case "hadith", CollectionHadiths:
		return KindHadith, nil
	case "duaa", "dua", CollectionDuaas:
		return KindDuaa, nil
	}
	return "", Validationf("unknown document kind %q", s)
}

// Distance is the similarity metric a collection is configured with.
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceDot    Distance = "Dot"
	DistanceEuclid Distance = "Euclid"
)

// ParseDistance normalises a metric name; empty means cosine.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine":
		return DistanceCosine, nil
	case "dot":
		return DistanceDot, nil
	case "euclid", "euclidean":
		return DistanceEuclid, nil
	}
	return "", Validationf("unsupported distance %q", s)
}

// AyahRef identifies a single verse by surah and ayah number.
type AyahRef struct {
	SurahNumber int `json:"surah_number" yaml:"surah_number" validate:"required,min=1,max=114"`
	AyahNumber  int `json:"ayah_number" yaml:"ayah_number" validate:"required,min=1"`
}

func (r AyahRef) String() string { return fmt.Sprintf("%d:%d", r.SurahNumber, r.AyahNumber) }

// AyahFields are the schema fields of a verse.
type AyahFields struct {
	SurahNumber int    `validate:"required,min=1,max=114"`
	AyahNumber  int    `validate:"required,min=1"`
	JuzNumber   *int   `validate:"omitempty,min=1,max=30"`
	AyahType    string `validate:"omitempty,max=64"`
}

// TafseerFields are the schema fields of a commentary entry.
type TafseerFields struct {
	ReferencedAyahs []AyahRef `validate:"dive"`
	TafseerType     string
}

// HadithFields are the schema fields of a tradition.
type HadithFields struct {
	HadithNumber     string
	SourceCollection string
	Explanation      string
}

// DuaaFields are the schema fields of an invocation.
type DuaaFields struct {
	Feeling   string `validate:"required"`
	URL       string `validate:"omitempty,url"`
	DuaNumber string
	Source    string
	DuasCount *int `validate:"omitempty,min=0"`
}

// Document is the tagged variant ingested into a collection. Only the block
// matching Kind may be set; ayah and duaa documents require theirs.
type Document struct {
	ID              string
	Kind            Kind      `validate:"required,oneof=ayah tafseer hadith duaa"`
	Text            string    `validate:"required"`
	Vector          []float32 `validate:"required,min=1"`
	Transliteration string
	Translation     string
	Feelings        []string
	ChunkIndex      int `validate:"min=0"`
	// ParentID groups the chunks of one logical document; empty means the
	// point is its own parent.
	ParentID string

	Ayah    *AyahFields
	Tafseer *TafseerFields
	Hadith  *HadithFields
	Duaa    *DuaaFields

	ExtraMetadata map[string]any

	// Collection overrides the kind's default collection when set.
	Collection string
}

// CollectionName is the collection the document is written to.
func (d Document) CollectionName() string {
	if d.Collection != "" {
		return d.Collection
	}
	return d.Kind.Collection()
}

// NewAyah builds an ayah document.
func NewAyah(id, text string, vector []float32, fields AyahFields) Document {
	return Document{ID: id, Kind: KindAyah, Text: text, Vector: vector, Ayah: &fields}
}

// NewTafseer builds a tafseer document.
func NewTafseer(id, text string, vector []float32, fields TafseerFields) Document {
	return Document{ID: id, Kind: KindTafseer, Text: text, Vector: vector, Tafseer: &fields}
}

// NewHadith builds a hadith document.
func NewHadith(id, text string, vector []float32, fields HadithFields) Document {
	return Document{ID: id, Kind: KindHadith, Text: text, Vector: vector, Hadith: &fields}
}

// NewDuaa builds a duaa document.
func NewDuaa(id, text string, vector []float32, fields DuaaFields) Document {
	return Document{ID: id, Kind: KindDuaa, Text: text, Vector: vector, Duaa: &fields}
}

// SearchResult is one ranked hit. Score semantics depend on the strategy.
type SearchResult struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Text returns the reserved text payload value.
func (r SearchResult) Text() string {
	s, _ := r.Payload[PayloadText].(string)
	return s
}

// InsertResult reports a stored document id.
type InsertResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CollectionInfo describes a collection as reported by the backend.
type CollectionInfo struct {
	Name        string
	VectorSize  int
	Distance    Distance
	PointsCount int
}

// HybridQuery parameterises a fused keyword + semantic search.
type HybridQuery struct {
	Collection     string
	Query          string
	Vector         []float32
	Filter         map[string]any
	KeywordWeight  float64
	SemanticWeight float64
	Limit          int
}

// NewHybridQuery returns a query with equal weights.
func NewHybridQuery(collection, query string, vector []float32, limit int) HybridQuery {
	return HybridQuery{
		Collection:     collection,
		Query:          query,
		Vector:         vector,
		KeywordWeight:  0.5,
		SemanticWeight: 0.5,
		Limit:          limit,
	}
}
