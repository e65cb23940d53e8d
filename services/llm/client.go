package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// NewClientFromEnv constructs the backend selected by LLM_BACKEND_TYPE
// (gemini, openai, or ollama). An unset variable defaults to gemini.
func NewClientFromEnv(ctx context.Context) (LLMClient, error) {
	backendType := os.Getenv("LLM_BACKEND_TYPE")
	if backendType == "" {
		backendType = "gemini"
		slog.Warn("LLM_BACKEND_TYPE not set, defaulting to gemini")
	}

	switch backendType {
	case "gemini":
		return NewGeminiClient(ctx)
	case "openai":
		return NewOpenAIClient()
	case "ollama":
		return NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND_TYPE %q (expected gemini, openai, or ollama)", backendType)
	}
}
