package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ChatProvider generates completions through an OpenAI-compatible chat
// API. It serves both OpenAI itself and Groq, which exposes the same
// API surface under a different base URL.
type ChatProvider struct {
	name   string
	client *openai.Client
	model  string
}

// ChatOptions configures a ChatProvider.
type ChatOptions struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

// NewChatProvider creates an OpenAI-compatible chat provider.
func NewChatProvider(opts ChatOptions) (*ChatProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", opts.Name)
	}

	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}

	return &ChatProvider{
		name:   opts.Name,
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Name returns the provider name
func (p *ChatProvider) Name() string {
	return p.name
}

// Generate produces a completion for the prompt.
func (p *ChatProvider) Generate(ctx context.Context, task Task, prompt string) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.3,
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", p.name)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from %s", p.name)
	}

	return text, nil
}
