// Package claude generates text with Anthropic's Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"huda/internal/domain"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 8192
)

// Config configures the Claude generator.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// System is sent as the system prompt of every request.
	System string
	// BaseURL overrides the API endpoint; used by tests.
	BaseURL string
}

// Generator implements domain.Generator on Claude.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int
	temp      float64
	timeout   time.Duration
	system    string
	logger    arbor.ILogger
}

var _ domain.Generator = (*Generator)(nil)

// NewGenerator validates the configuration and builds the SDK client.
func NewGenerator(cfg Config, logger arbor.ILogger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Anthropic API key is required for the claude generator")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL), option.WithMaxRetries(0))
	}
	logger.Info().
		Str("model", cfg.Model).
		Int("max_tokens", cfg.MaxTokens).
		Dur("timeout", cfg.Timeout).
		Msg("Claude generator initialized")
	return &Generator{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		temp:      cfg.Temperature,
		timeout:   cfg.Timeout,
		system:    cfg.System,
		logger:    logger,
	}, nil
}

// Generate sends prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, domain.GenerationMetadata, error) {
	meta := domain.GenerationMetadata{Provider: "claude", Model: g.model}
	if strings.TrimSpace(prompt) == "" {
		return "", meta, domain.Validationf("prompt is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.temp > 0 {
		params.Temperature = anthropic.Float(g.temp)
	}
	if g.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: g.system}}
	}

	started := time.Now()
	resp, err := g.client.Messages.New(ctx, params)
	meta.Latency = time.Since(started)
	if err != nil {
		g.logger.Error().Err(err).Str("model", g.model).Msg("Claude API call failed")
		if domain.IsConnectivity(err) {
			return "", meta, domain.Connectivity("claude generate", err)
		}
		return "", meta, fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	meta.TokensUsed = int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	meta.FinishReason = string(resp.StopReason)
	if response.Len() == 0 {
		return "", meta, errors.New("no response generated from Claude API")
	}

	g.logger.Debug().
		Int("tokens", meta.TokensUsed).
		Str("finish_reason", meta.FinishReason).
		Dur("latency", meta.Latency).
		Msg("Claude generation completed")
	return response.String(), meta, nil
}
