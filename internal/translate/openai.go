package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAI translates through the chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI returns the provider; baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: openai.GPT4oMini}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Metered() bool { return true }

func (o *OpenAI) Translate(ctx context.Context, text, locale string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: Prompt(text, locale),
			},
		},
		MaxCompletionTokens: 1000,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from openai")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Prompt is the instruction shared by the AI providers.
func Prompt(text, locale string) string {
	return fmt.Sprintf(`Translate the following space news text to %s.
Keep the meaning and the journalistic tone.
Do not translate names of missions, spacecraft or organisations.
Reply with the translation only, without comments.

Text to translate:
%s`, LanguageName(locale), text)
}
