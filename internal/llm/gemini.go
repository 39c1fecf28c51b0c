package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider generates completions through the Google Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// GeminiOptions configures a GeminiProvider.
type GeminiOptions struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, opts GeminiOptions) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Generate produces a completion for the prompt.
func (p *GeminiProvider) Generate(ctx context.Context, task Task, prompt string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: p.maxTokens,
		Temperature:     genai.Ptr(p.temperature),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
