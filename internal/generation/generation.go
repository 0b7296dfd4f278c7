// Package generation selects the configured text generation provider.
package generation

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"huda/internal/config"
	"huda/internal/domain"
	"huda/internal/generation/claude"
	"huda/internal/generation/gemini"
	"huda/internal/generation/openai"
)

// New builds the generator named by cfg.Type. Type "none" yields a nil
// generator; callers that need one report that as a configuration error.
func New(ctx context.Context, cfg config.GeneratorConfig, system string, logger arbor.ILogger) (domain.Generator, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		key := ""
		if cfg.OpenAI.APIKeyEnv != "" {
			key = os.Getenv(cfg.OpenAI.APIKeyEnv)
		}
		return openai.NewGenerator(openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKey:            key,
			Model:             cfg.OpenAI.Model,
			MaxTokens:         cfg.OpenAI.MaxTokens,
			Temperature:       cfg.OpenAI.Temperature,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			System:            system,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		}, logger)
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini generator config missing")
		}
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey:      os.Getenv(cfg.Gemini.APIKeyEnv),
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
			Timeout:     time.Duration(cfg.Gemini.TimeoutSecs) * time.Second,
			System:      system,
		}, logger)
	case "claude":
		if cfg.Claude == nil {
			return nil, fmt.Errorf("claude generator config missing")
		}
		return claude.NewGenerator(claude.Config{
			APIKey:      os.Getenv(cfg.Claude.APIKeyEnv),
			Model:       cfg.Claude.Model,
			MaxTokens:   cfg.Claude.MaxTokens,
			Temperature: cfg.Claude.Temperature,
			Timeout:     time.Duration(cfg.Claude.TimeoutSecs) * time.Second,
			System:      system,
		}, logger)
	}
	return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
}
