// Package gemini embeds text with Google's Gemini embedding models through
// the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"huda/internal/domain"
)

const (
	defaultModel     = "gemini-embedding-001"
	defaultDimension = 768
	// The embed endpoint accepts at most 100 contents per request.
	maxBatch = 100
)

// Config configures the Gemini embedder.
type Config struct {
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// embedAPI is the slice of genai.Models the embedder uses.
type embedAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder implements domain.Embedder on Gemini.
type Embedder struct {
	models    embedAPI
	model     string
	dimension int
	timeout   time.Duration
	logger    arbor.ILogger
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder builds a genai client for the Gemini API backend.
func NewEmbedder(ctx context.Context, cfg Config, logger arbor.ILogger) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Google API key is required for the gemini embedder")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return newEmbedder(client.Models, cfg, logger), nil
}

func newEmbedder(models embedAPI, cfg Config, logger arbor.ILogger) *Embedder {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = defaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Embedder{
		models:    models,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

func (e *Embedder) Name() string   { return "gemini" }
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedOne returns the embedding of a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds texts in requests of up to 100 contents each.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, domain.Validationf("text %d is empty", i)
		}
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	outputDim := int32(e.dimension)
	started := time.Now()
	result, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		e.logger.Error().Err(err).Int("texts", len(texts)).Msg("Embedding generation failed")
		if domain.IsConnectivity(err) {
			return nil, domain.Connectivity("gemini embeddings", err)
		}
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", embeddingCount(result), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) != e.dimension {
			got := 0
			if emb != nil {
				got = len(emb.Values)
			}
			return nil, domain.Validationf("embedding dimension mismatch: expected %d, got %d", e.dimension, got)
		}
		vecs[i] = emb.Values
	}
	e.logger.Debug().
		Int("texts", len(texts)).
		Int("embedding_dim", e.dimension).
		Dur("duration", time.Since(started)).
		Msg("Embedding generation completed")
	return vecs, nil
}

func embeddingCount(r *genai.EmbedContentResponse) int {
	if r == nil {
		return 0
	}
	return len(r.Embeddings)
}
