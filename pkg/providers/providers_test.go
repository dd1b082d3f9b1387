package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, "openai", WithAPIKey("sk-test"), WithBaseURL("http://localhost:1/v1/"))
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = New(ctx, "llama")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestGeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := Gemini(context.Background(), ProviderParams{})
	require.Error(t, err)

	c, err := New(context.Background(), "gemini")
	require.Error(t, err)
	assert.True(t, c == nil, "failed construction must return a nil Client, got %T", c)
}

func TestOpenAiSystemPrompt(t *testing.T) {
	c := OpenAi(context.Background(), WithSystemPrompt("steer"), WithAPIKey("k"))
	assert.Equal(t, "steer", c.system)
}
