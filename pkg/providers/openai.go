package providers

import (
	"context"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/"

type OpenAIClient struct {
	client *openai.Client
	system string
}

func newOpenAIClient(params ProviderParams) *OpenAIClient {
	opts := []option.RequestOption{option.WithBaseURL(params.BaseURL)}
	if params.APIKey != "" {
		opts = append(opts, option.WithAPIKey(params.APIKey))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		system: params.SystemPrompt,
	}
}

// OpenAi builds a chat-completions client. Base URL and key fall back to
// OPENAI_API_BASE_URL and OPENAI_API_KEY.
func OpenAi(ctx context.Context, opts ...ProviderOption) *OpenAIClient {
	params := &ProviderParams{}
	for _, opt := range opts {
		opt(params)
	}

	if params.BaseURL == "" {
		params.BaseURL = os.Getenv("OPENAI_API_BASE_URL")
		if params.BaseURL == "" {
			params.BaseURL = defaultOpenAIBaseURL
		}
	}
	if params.APIKey == "" {
		params.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return newOpenAIClient(*params)
}

func (c *OpenAIClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if c.system != "" {
		messages = append(messages, openai.SystemMessage(c.system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(model),
	})
	if err != nil {
		return "", err
	}
	if len(chatCompletion.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return chatCompletion.Choices[0].Message.Content, nil
}
