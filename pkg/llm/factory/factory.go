package factory

import (
	"context"
	"fmt"

	"trawell-be/pkg/llm"
	"trawell-be/pkg/llm/gemini"
	"trawell-be/pkg/llm/ollama"
)

type Config struct {
	Provider     string // "ollama" | "gemini"
	Model        string
	OllamaURL    string
	GeminiAPIKey string
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama", "":
		baseURL := cfg.OllamaURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "gemini":
		return gemini.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
