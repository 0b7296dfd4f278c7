package domain

import (
	"context"
	"time"
)

// Embedder converts free text into a fixed-length vector. The dimension must
// agree with the target collection's configured size.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerationMetadata describes a completed generation call.
type GenerationMetadata struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	TokensUsed   int           `json:"tokens_used"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Latency      time.Duration `json:"latency"`
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, GenerationMetadata, error)
}

// Chunk is one piece of a long text.
type Chunk struct {
	Index int
	Text  string
}

// Chunker splits long text into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(text string) []Chunk
}

// VectorStore is the capability set of the retrieval core: collection
// lifecycle, ingestion, three search strategies, and maintenance.
type VectorStore interface {
	Initialize(ctx context.Context, recreate bool) error
	Ensure(ctx context.Context, collection string) (bool, error)
	Create(ctx context.Context, collection string, size int, distance Distance) error
	Recreate(ctx context.Context, collection string, size int, distance Distance) error
	DeleteCollection(ctx context.Context, collection string) error

	Insert(ctx context.Context, doc Document) (InsertResult, error)

	SemanticSearch(ctx context.Context, collection string, vector []float32, filter map[string]any, limit int) ([]SearchResult, error)
	SearchByEmbeddings(ctx context.Context, collection string, vectors [][]float32, limit int) ([][]SearchResult, error)
	KeywordSearch(ctx context.Context, collection, query string, filter map[string]any, limit, offset int) ([]SearchResult, error)
	HybridSearch(ctx context.Context, q HybridQuery) ([]SearchResult, error)
	SearchByMetadata(ctx context.Context, collection string, filter map[string]any, limit int) ([]SearchResult, error)

	Get(ctx context.Context, collection, id string) (SearchResult, error)
	DeleteByID(ctx context.Context, collection, id string) error
	DeleteDocument(ctx context.Context, collection, parentID string, keep ...string) (int, error)
	DeleteByReference(ctx context.Context, ref AyahRef, collections ...string) (int, error)
	Count(ctx context.Context, collection string, filter map[string]any) (int, error)
}
