package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"huda/internal/domain"
)

const defaultBatchSize = 32

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
// It also understands the Ollama-native response shape.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	batchSize  int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	// Dimension is requested from the API and enforced on every response.
	Dimension         int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	// BatchSize caps the number of texts sent in one request.
	BatchSize int
	// HTTPClient overrides the transport; used by tests.
	HTTPClient *http.Client
}

var _ domain.Embedder = (*Client)(nil)

// NewClient creates a new embeddings client using the provided configuration.
// A missing key is only an error against the default OpenAI endpoint; local
// OpenAI-compatible servers usually run without one.
func NewClient(cfg Config) (*Client, error) {
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
		if key == "" {
			return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
		}
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: t}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 5
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		client:     httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: retries,
		batchSize:  batch,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the configured dimensionality; zero means unknown until
// the first response.
func (c *Client) Dimension() int { return c.dimension }

// EmbedOne returns an embedding vector for the given text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds texts in requests of at most batchSize inputs. A server
// that answers an array with fewer embeddings than inputs gets one request
// per text instead.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.embedBatch(ctx, texts[start:end], start)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string, offset int) ([][]float32, error) {
	vecs, err := c.embed(ctx, texts)
	if err == nil {
		return vecs, nil
	}
	if !errors.Is(err, errShortBatch) {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.EmbedOne(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", offset+i, err)
		}
		out[i] = v
	}
	return out, nil
}

var errShortBatch = errors.New("server returned fewer embeddings than inputs")

type reqBody struct {
	Input      any    `json:"input,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body := reqBody{Input: texts, Model: c.model, Dimensions: c.dimension}
	if len(texts) == 1 {
		// Ollama's native endpoint reads "prompt"
		body.Input, body.Prompt = texts[0], texts[0]
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode embeddings request: %w", err)
	}
	url := c.baseURL + "/embeddings"

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, domain.Connectivity("openai embeddings", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("build embeddings request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				if err := sleep(ctx, retryDelay(attempt)); err != nil {
					return nil, domain.Connectivity("openai embeddings", err)
				}
				continue
			}
			return nil, domain.Connectivity("openai embeddings", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			wait := retryDelay(attempt)
			// Respect Retry-After if provided
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				wait = time.Duration(secs) * time.Second
			}
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				if err := sleep(ctx, wait); err != nil {
					return nil, domain.Connectivity("openai embeddings", err)
				}
				continue
			}
			return nil, domain.Connectivity("openai embeddings", fmt.Errorf("status %s", resp.Status))
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("openai embeddings failed: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		}
		if err != nil {
			if attempt < c.maxRetries {
				continue
			}
			return nil, domain.Connectivity("openai embeddings", err)
		}

		vecs, err := decode(payload)
		if err != nil {
			return nil, err
		}
		if len(vecs) < len(texts) {
			return nil, errShortBatch
		}
		for _, v := range vecs {
			if c.dimension > 0 && len(v) != c.dimension {
				return nil, domain.Validationf("embedding dimension mismatch: expected %d, got %d", c.dimension, len(v))
			}
		}
		if c.dimension == 0 {
			c.dimension = len(vecs[0])
		}
		return vecs[:len(texts)], nil
	}
	return nil, errors.New("no embedding returned")
}

// decode accepts the OpenAI shape {"data":[{"embedding":[...]}]} first and
// the Ollama-native {"embedding":[...]} second.
func decode(payload []byte) ([][]float32, error) {
	var openaiOut struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) > 0 {
		out := make([][]float32, len(openaiOut.Data))
		for i, d := range openaiOut.Data {
			idx := d.Index
			if idx < 0 || idx >= len(out) || out[idx] != nil {
				idx = i
			}
			out[idx] = d.Embedding
		}
		return out, nil
	}
	var ollamaOut struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embedding) > 0 {
		return [][]float32{ollamaOut.Embedding}, nil
	}
	return nil, errors.New("no embedding returned")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
