package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/lorekeeper/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"npcs": `),
				genai.Blob{MIMEType: "image/png"},
				genai.Text(`[]}`),
			}}},
		},
	}
	assert.Equal(t, `{"npcs": []}`, responseText(resp))
}

func TestNewProvider_RequiresKey(t *testing.T) {
	cfg := ai.NewConfig(ai.WithProvider(ai.ProviderGemini))
	_, err := NewProvider(context.Background(), cfg)
	require.ErrorIs(t, err, ai.ErrMissingCredentials)
}
