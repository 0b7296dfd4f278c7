// Package embedding selects the configured text embedder.
package embedding

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"huda/internal/config"
	"huda/internal/domain"
	"huda/internal/embedding/gemini"
	"huda/internal/embedding/hashing"
	"huda/internal/embedding/openai"
)

// New builds the embedder named by cfg.Type.
func New(ctx context.Context, cfg config.EmbedderConfig, logger arbor.ILogger) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Dimension:         cfg.Dimension,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
			BatchSize:         cfg.OpenAI.BatchSize,
		})
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini embedder config missing")
		}
		return gemini.NewEmbedder(ctx, gemini.Config{
			APIKey:    os.Getenv(cfg.Gemini.APIKeyEnv),
			Model:     cfg.Gemini.Model,
			Dimension: cfg.Dimension,
			Timeout:   time.Duration(cfg.Gemini.TimeoutSecs) * time.Second,
		}, logger)
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
}
