// Package openai generates text with an OpenAI-compatible chat completions
// endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"huda/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4.1-mini"
)

// Config configures the chat completions generator.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// System is sent as the system message of every request.
	System            string
	RequestsPerSecond float64
	MaxRetries        int
	// HTTPClient overrides the transport; used by tests.
	HTTPClient *http.Client
}

// Generator implements domain.Generator on chat completions.
type Generator struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	temp       float64
	system     string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     arbor.ILogger
}

var _ domain.Generator = (*Generator)(nil)

// NewGenerator validates the configuration. A missing key is only an error
// against the default OpenAI endpoint.
func NewGenerator(cfg Config, logger arbor.ILogger) (*Generator, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIKey == "" && strings.TrimRight(cfg.BaseURL, "/") == defaultBaseURL {
		return nil, errors.New("OpenAI API key is required for the openai generator")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	logger.Info().
		Str("model", cfg.Model).
		Str("base_url", cfg.BaseURL).
		Dur("timeout", cfg.Timeout).
		Msg("OpenAI generator initialized")
	return &Generator{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		temp:       cfg.Temperature,
		system:     cfg.System,
		client:     httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: retries,
		logger:     logger,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends prompt as the user message, after the system message when
// one is configured.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, domain.GenerationMetadata, error) {
	meta := domain.GenerationMetadata{Provider: "openai", Model: g.model}
	if strings.TrimSpace(prompt) == "" {
		return "", meta, domain.Validationf("prompt is empty")
	}

	body := chatRequest{Model: g.model, MaxTokens: g.maxTokens, Temperature: g.temp}
	if g.system != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: g.system})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: prompt})
	data, err := json.Marshal(body)
	if err != nil {
		return "", meta, fmt.Errorf("encode chat request: %w", err)
	}

	started := time.Now()
	out, err := g.complete(ctx, data)
	meta.Latency = time.Since(started)
	if err != nil {
		g.logger.Error().Err(err).Str("model", g.model).Msg("OpenAI API call failed")
		return "", meta, err
	}

	if out.Model != "" {
		meta.Model = out.Model
	}
	meta.TokensUsed = out.Usage.TotalTokens
	if len(out.Choices) == 0 {
		return "", meta, errors.New("no response generated from OpenAI API")
	}
	meta.FinishReason = out.Choices[0].FinishReason
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", meta, errors.New("no response generated from OpenAI API")
	}

	g.logger.Debug().
		Int("tokens", meta.TokensUsed).
		Str("finish_reason", meta.FinishReason).
		Dur("latency", meta.Latency).
		Msg("OpenAI generation completed")
	return text, meta, nil
}

// complete posts one chat request, retrying throttled and failed attempts.
func (g *Generator) complete(ctx context.Context, data []byte) (*chatResponse, error) {
	url := g.baseURL + "/chat/completions"
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, domain.Connectivity("openai generate", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("build chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if g.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+g.apiKey)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			if attempt < g.maxRetries && ctx.Err() == nil {
				if err := sleep(ctx, retryDelay(attempt)); err != nil {
					return nil, domain.Connectivity("openai generate", err)
				}
				continue
			}
			return nil, domain.Connectivity("openai generate", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			wait := retryDelay(attempt)
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				wait = time.Duration(secs) * time.Second
			}
			_ = resp.Body.Close()
			if attempt < g.maxRetries {
				if err := sleep(ctx, wait); err != nil {
					return nil, domain.Connectivity("openai generate", err)
				}
				continue
			}
			return nil, domain.Connectivity("openai generate", fmt.Errorf("status %s", resp.Status))
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("openai chat completion failed: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		}
		if err != nil {
			return nil, domain.Connectivity("openai generate", err)
		}
		var out chatResponse
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("decode chat response: %w", err)
		}
		return &out, nil
	}
	return nil, errors.New("no response generated from OpenAI API")
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

// retryDelay backs off exponentially from 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << max(attempt, 0)
	return min(d, 5*time.Second)
}
