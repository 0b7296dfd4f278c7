// Package gemini generates text with Google's Gemini chat models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"huda/internal/domain"
)

const defaultModel = "gemini-2.0-flash"

// Config configures the Gemini generator.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	// System is sent as the system instruction of every request.
	System string
}

type generateAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator implements domain.Generator on Gemini.
type Generator struct {
	models  generateAPI
	model   string
	temp    float32
	timeout time.Duration
	system  string
	logger  arbor.ILogger
}

var _ domain.Generator = (*Generator)(nil)

// NewGenerator builds a genai client for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, logger arbor.ILogger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Google API key is required for the gemini generator")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	g := newGenerator(client.Models, cfg, logger)
	logger.Info().Str("chat_model", g.model).Dur("timeout", g.timeout).Msg("Gemini generator initialized")
	return g, nil
}

func newGenerator(models generateAPI, cfg Config, logger arbor.ILogger) *Generator {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Generator{
		models:  models,
		model:   cfg.Model,
		temp:    cfg.Temperature,
		timeout: cfg.Timeout,
		system:  cfg.System,
		logger:  logger,
	}
}

// Generate sends prompt as a single user turn.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, domain.GenerationMetadata, error) {
	meta := domain.GenerationMetadata{Provider: "gemini", Model: g.model}
	if strings.TrimSpace(prompt) == "" {
		return "", meta, domain.Validationf("prompt is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temp),
	}
	if g.system != "" {
		config.SystemInstruction = genai.NewContentFromText(g.system, genai.RoleUser)
	}

	started := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, config)
	meta.Latency = time.Since(started)
	if err != nil {
		g.logger.Error().Err(err).Str("model", g.model).Msg("Chat generation failed")
		if domain.IsConnectivity(err) {
			return "", meta, domain.Connectivity("gemini generate", err)
		}
		return "", meta, fmt.Errorf("chat generation failed: %w", err)
	}

	// iterate candidates until non-empty text is found
	var response strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part != nil && part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				meta.FinishReason = string(candidate.FinishReason)
				break
			}
		}
		if resp.UsageMetadata != nil {
			meta.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
		}
	}
	if response.Len() == 0 {
		return "", meta, errors.New("no response generated from chat model")
	}
	return response.String(), meta, nil
}
