package llm

import (
	"context"
	"fmt"

	"helder/internal/config"
	"helder/internal/logger"
)

// BuildChain constructs the provider chain from configuration. Providers
// listed in the chain but missing credentials are skipped with a warning
// so a partially configured deployment still runs; an unknown provider
// name is a hard error. A chain with no usable providers is returned
// empty, leaving classification and summarization to their deterministic
// fallbacks.
func BuildChain(ctx context.Context, cfg config.LLM) (*Chain, error) {
	var providers []Provider

	for _, name := range cfg.Chain {
		switch name {
		case "gemini":
			if cfg.Gemini.APIKey == "" {
				logger.Warn("Skipping gemini provider, no API key configured")
				continue
			}
			p, err := NewGeminiProvider(ctx, GeminiOptions{
				APIKey:      cfg.Gemini.APIKey,
				Model:       cfg.Gemini.Model,
				MaxTokens:   cfg.Gemini.MaxTokens,
				Temperature: cfg.Gemini.Temperature,
			})
			if err != nil {
				return nil, fmt.Errorf("gemini provider: %w", err)
			}
			providers = append(providers, p)

		case "groq":
			if cfg.Groq.APIKey == "" {
				logger.Warn("Skipping groq provider, no API key configured")
				continue
			}
			p, err := NewChatProvider(ChatOptions{
				Name:    "groq",
				APIKey:  cfg.Groq.APIKey,
				BaseURL: cfg.Groq.BaseURL,
				Model:   cfg.Groq.Model,
			})
			if err != nil {
				return nil, fmt.Errorf("groq provider: %w", err)
			}
			providers = append(providers, p)

		case "openai":
			if cfg.OpenAI.APIKey == "" {
				logger.Warn("Skipping openai provider, no API key configured")
				continue
			}
			p, err := NewChatProvider(ChatOptions{
				Name:    "openai",
				APIKey:  cfg.OpenAI.APIKey,
				BaseURL: cfg.OpenAI.BaseURL,
				Model:   cfg.OpenAI.Model,
			})
			if err != nil {
				return nil, fmt.Errorf("openai provider: %w", err)
			}
			providers = append(providers, p)

		case "ollama":
			p, err := NewOllamaProvider(OllamaProviderOptions{
				BaseURL: cfg.Ollama.BaseURL,
				Model:   cfg.Ollama.Model,
			})
			if err != nil {
				logger.Warn("Skipping ollama provider", "error", err)
				continue
			}
			providers = append(providers, p)

		default:
			return nil, fmt.Errorf("unknown provider in chain: %s (supported: gemini, groq, openai, ollama)", name)
		}
	}

	chain := NewChain(providers, ChainOptions{
		AttemptTimeout:    cfg.AttemptTimeoutDuration(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})
	if len(providers) == 0 {
		logger.Warn("No usable providers configured, classification and summarization will use deterministic fallbacks")
	} else {
		logger.Info("Provider chain ready", "providers", chain.Providers())
	}
	return chain, nil
}
