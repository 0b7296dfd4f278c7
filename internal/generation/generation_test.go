package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"huda/internal/config"
	"huda/internal/generation/openai"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := arbor.NewLogger()

	gen, err := New(ctx, config.GeneratorConfig{Type: "none"}, "", logger)
	require.NoError(t, err)
	assert.Nil(t, gen)

	t.Setenv("HUDA_TEST_OPENAI_KEY", "k")
	gen, err = New(ctx, config.GeneratorConfig{
		Type: "openai",
		OpenAI: &config.OpenAIGeneratorConfig{
			APIKeyEnv: "HUDA_TEST_OPENAI_KEY",
			Model:     "gpt-test",
		},
	}, "system", logger)
	require.NoError(t, err)
	assert.IsType(t, &openai.Generator{}, gen)

	_, err = New(ctx, config.GeneratorConfig{Type: "openai"}, "", logger)
	assert.Error(t, err)

	_, err = New(ctx, config.GeneratorConfig{Type: "llama"}, "", logger)
	assert.Error(t, err)
}
