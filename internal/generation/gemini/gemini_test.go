package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"huda/internal/domain"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	config *genai.GenerateContentConfig
	prompt string
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.config = cfg
	f.prompt = contents[0].Parts[0].Text
	return f.resp, f.err
}

func candidate(text string) *genai.Candidate {
	return &genai.Candidate{
		Content:      genai.NewContentFromText(text, genai.RoleModel),
		FinishReason: genai.FinishReasonStop,
	}
}

func TestGenerate_SkipsEmptyCandidates(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates:    []*genai.Candidate{{Content: &genai.Content{}}, candidate("peace be upon you")},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{TotalTokenCount: 21},
	}}
	g := newGenerator(fake, Config{System: "be kind", Temperature: 0.2}, arbor.NewLogger())

	text, meta, err := g.Generate(context.Background(), "grief")
	require.NoError(t, err)
	assert.Equal(t, "peace be upon you", text)
	assert.Equal(t, "gemini", meta.Provider)
	assert.Equal(t, defaultModel, meta.Model)
	assert.Equal(t, 21, meta.TokensUsed)
	assert.Equal(t, string(genai.FinishReasonStop), meta.FinishReason)
	assert.Equal(t, "grief", fake.prompt)
	require.NotNil(t, fake.config.SystemInstruction)
	assert.InDelta(t, 0.2, *fake.config.Temperature, 1e-6)
}

func TestGenerate_NoText(t *testing.T) {
	g := newGenerator(&fakeModels{resp: &genai.GenerateContentResponse{}}, Config{}, arbor.NewLogger())
	_, _, err := g.Generate(context.Background(), "x")
	assert.Error(t, err)
}

func TestGenerate_Errors(t *testing.T) {
	g := newGenerator(&fakeModels{err: context.DeadlineExceeded}, Config{}, arbor.NewLogger())
	_, _, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrConnectivity)

	g = newGenerator(&fakeModels{err: errors.New("blocked")}, Config{}, arbor.NewLogger())
	_, _, err = g.Generate(context.Background(), "x")
	assert.NotErrorIs(t, err, domain.ErrConnectivity)

	_, _, err = g.Generate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
