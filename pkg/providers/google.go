package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
	system string
}

// Gemini builds a Google AI client; the key falls back to GEMINI_API_KEY.
func Gemini(ctx context.Context, params ProviderParams) (*GeminiClient, error) {
	apiKey := params.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGoogleAI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client: client,
		system: params.SystemPrompt,
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	if c.system != "" {
		prompt = c.system + "\n\n" + prompt
	}
	parts := []*genai.Part{
		{Text: prompt},
	}
	result, err := c.client.Models.GenerateContent(ctx, model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
